package location

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Phase of the provider as shown to the UI.
type Phase int

const (
	Initial Phase = iota
	Loading
	Active
	Failed
)

func (p Phase) String() string {
	switch p {
	case Initial:
		return "initial"
	case Loading:
		return "loading"
	case Active:
		return "active"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the observable provider status.
type State struct {
	Phase Phase
	Err   error    // set when Phase is Failed
	Last  Position // last forwarded fix, valid when Phase is Active
}

// Sender is the slice of the session the watcher needs.
type Sender interface {
	SendLocation(lat, lon float64)
}

// Watcher forwards provider fixes to the session and tracks provider state
// as a snapshot cell.
type Watcher struct {
	provider Provider
	sender   Sender
	log      *slog.Logger

	mu    sync.RWMutex
	state State
	subs  []chan State
}

// NewWatcher wires a provider to a sender.
func NewWatcher(p Provider, s Sender, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		provider: p,
		sender:   s,
		log:      log.With("component", "location"),
	}
}

// State returns the current provider status.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Subscribe registers a channel receiving the status after every change,
// conflated to the newest value.
func (w *Watcher) Subscribe() <-chan State {
	ch := make(chan State, 1)
	w.mu.Lock()
	w.subs = append(w.subs, ch)
	w.mu.Unlock()
	return ch
}

// Run consumes the provider until ctx is cancelled, forwarding each fix via
// the sender. It returns the terminal error, or nil on cancellation.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	w.setState(State{Phase: Loading})

	updates, err := w.provider.Updates(ctx, interval)
	if err != nil {
		w.log.Warn("location provider unavailable", "err", err)
		w.setState(State{Phase: Failed, Err: err})
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case pos, ok := <-updates:
			if !ok {
				w.log.Warn("location stream ended")
				w.setState(State{Phase: Failed, Err: ErrStreamEnded})
				return ErrStreamEnded
			}
			w.setState(State{Phase: Active, Last: pos})
			w.sender.SendLocation(pos.Latitude, pos.Longitude)
		}
	}
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	subs := append([]chan State(nil), w.subs...)
	w.mu.Unlock()

	for _, ch := range subs {
		for {
			select {
			case ch <- s:
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
