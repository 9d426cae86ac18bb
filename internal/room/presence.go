package room

import "sync"

// UserLocation is the last known position of one remote room member.
type UserLocation struct {
	UserID    string
	Username  string
	Latitude  float64
	Longitude float64
}

// Presence maps each remote user to their last reported location. Last write
// wins by arrival order; entries never expire on their own, only Clear
// removes them. The session is the only writer. Every mutation publishes a
// full snapshot to subscribers.
type Presence struct {
	mu    sync.RWMutex
	users map[string]UserLocation
	subs  []chan map[string]UserLocation
}

// NewPresence creates an empty presence store.
func NewPresence() *Presence {
	return &Presence{users: make(map[string]UserLocation)}
}

// Set records or replaces a user's location.
func (p *Presence) Set(loc UserLocation) {
	p.mu.Lock()
	p.users[loc.UserID] = loc
	snap := snapshotMap(p.users)
	subs := append([]chan map[string]UserLocation(nil), p.subs...)
	p.mu.Unlock()

	publish(subs, snap)
}

// Clear removes every entry.
func (p *Presence) Clear() {
	p.mu.Lock()
	p.users = make(map[string]UserLocation)
	snap := snapshotMap(p.users)
	subs := append([]chan map[string]UserLocation(nil), p.subs...)
	p.mu.Unlock()

	publish(subs, snap)
}

// Snapshot returns a copy of the current mapping.
func (p *Presence) Snapshot() map[string]UserLocation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshotMap(p.users)
}

// Subscribe registers a channel that receives the full mapping after every
// mutation. The channel conflates: a slow reader sees the newest snapshot,
// not every intermediate one.
func (p *Presence) Subscribe() <-chan map[string]UserLocation {
	ch := make(chan map[string]UserLocation, 1)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

func snapshotMap(users map[string]UserLocation) map[string]UserLocation {
	snap := make(map[string]UserLocation, len(users))
	for id, loc := range users {
		snap[id] = loc
	}
	return snap
}

// publish offers a snapshot to each subscriber, replacing any unread older
// snapshot rather than blocking. A reader racing the drain empties the slot
// itself, so the send is retried until it lands.
func publish[T any](subs []chan T, snap T) {
	for _, ch := range subs {
		for {
			select {
			case ch <- snap:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
