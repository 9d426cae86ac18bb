// Package room implements the client side of one meetup room: joining and
// leaving, outbound event construction, and reduction of inbound events into
// the message log and the presence store.
package room

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ziyoura/wemeet-client/internal/conn"
	"github.com/ziyoura/wemeet-client/internal/identity"
	"github.com/ziyoura/wemeet-client/internal/transport"
	"github.com/ziyoura/wemeet-client/pkg/protocol"
)

// Config assembles a session.
type Config struct {
	Identity identity.Identity
	Dialer   transport.Dialer
	Endpoint transport.Endpoint
	Conn     conn.Options
	Logger   *slog.Logger
}

// Session coordinates one room for one user: it drives the connection
// manager, constructs outbound events carrying the session identity, and is
// the only writer of the message log and the presence store. Inbound frames
// arrive serialized from the manager's receive goroutine, so history order
// is arrival order.
type Session struct {
	id       identity.Identity
	mgr      *conn.Manager
	messages *Log
	presence *Presence
	log      *slog.Logger

	now  func() time.Time // injection points for deterministic tests
	nano func() int64
}

// NewSession builds a session for the room named by cfg.Identity.PinCode.
// Nothing is dialed until Connect.
func NewSession(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		id:       cfg.Identity,
		messages: NewLog(),
		presence: NewPresence(),
		log:      log.With("component", "room", "pin", cfg.Identity.PinCode),
		now:      time.Now,
		nano:     func() int64 { return time.Now().UnixNano() },
	}
	s.mgr = conn.NewManager(
		cfg.Dialer,
		cfg.Endpoint.RoomURL(cfg.Identity.PinCode),
		cfg.Endpoint.Origin,
		s.handleFrame,
		withLogger(cfg.Conn, log),
	)
	return s
}

func withLogger(opts conn.Options, log *slog.Logger) conn.Options {
	if opts.Logger == nil {
		opts.Logger = log
	}
	return opts
}

// Identity returns the pairing values the session was built with.
func (s *Session) Identity() identity.Identity { return s.id }

// Messages returns the observable chat history.
func (s *Session) Messages() *Log { return s.messages }

// Presence returns the observable remote-user location map.
func (s *Session) Presence() *Presence { return s.presence }

// State returns the current connection state.
func (s *Session) State() conn.State { return s.mgr.State() }

// Connect establishes the room transport. Failures schedule reconnection
// internally; the error is informational.
func (s *Session) Connect() error { return s.mgr.Connect() }

// Join announces the user to the room. Best-effort: nothing is sent while
// the transport is down.
func (s *Session) Join() {
	s.sendEvent(protocol.RoomEvent{
		PinCode:   s.id.PinCode,
		UserID:    s.id.UserID,
		Name:      s.id.DisplayName,
		EventType: protocol.RoomJoin,
	})
}

// Leave announces departure, closes the transport with a normal-closure
// code, discards the handle and clears the presence map. Safe to call
// repeatedly and in any connection state.
func (s *Session) Leave() {
	s.sendEvent(protocol.RoomEvent{
		PinCode:   s.id.PinCode,
		UserID:    s.id.UserID,
		Name:      s.id.DisplayName,
		EventType: protocol.RoomLeave,
	})
	s.mgr.CloseConn("leaving room")
	s.presence.Clear()
}

// SendChatMessage sends a chat line stamped with the current wall clock.
// Best-effort: a message sent while disconnected is lost. The message shows
// up in the log only once the server reflects it back, keeping a single
// ordering authority for the history.
func (s *Session) SendChatMessage(text string) {
	s.sendEvent(protocol.ChatMessage{
		PinCode:   s.id.PinCode,
		UserID:    s.id.UserID,
		Name:      s.id.DisplayName,
		Message:   text,
		Timestamp: s.now().UnixMilli(),
	})
}

// SendLocation reports the device position to the room. Best-effort.
func (s *Session) SendLocation(lat, lon float64) {
	s.sendEvent(protocol.LocationUpdate{
		PinCode:   s.id.PinCode,
		UserID:    s.id.UserID,
		Username:  s.id.DisplayName,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: s.now().UnixMilli(),
	})
}

// Close disposes the session: heartbeat, reconnect loop and transport are
// torn down in that order and no further callbacks fire.
func (s *Session) Close() {
	s.mgr.Close("client closed")
}

func (s *Session) sendEvent(ev protocol.Event) {
	data, err := protocol.Encode(ev)
	if err != nil {
		s.log.Error("encode outbound event", "err", err)
		return
	}
	s.mgr.Send(data)
}

// handleFrame reduces one inbound frame into the stores. Decode failures are
// logged and dropped; they never affect the connection or later frames.
func (s *Session) handleFrame(data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		s.log.Warn("dropping undecodable frame", "err", err)
		return
	}

	switch ev := ev.(type) {
	case protocol.ChatMessage:
		// Own messages come back through here too; appending the reflected
		// copy keeps everyone's history in server order.
		s.messages.Append(Message{
			SenderID:   ev.UserID,
			SenderName: ev.Name,
			Body:       ev.Message,
			Time:       time.UnixMilli(ev.Timestamp).Format(TimeFormat),
			ID:         fmt.Sprintf("%d_%d", ev.Timestamp, s.nano()),
		})
	case protocol.LocationUpdate:
		if ev.UserID == s.id.UserID {
			s.log.Debug("ignored self location echo")
			return
		}
		s.presence.Set(UserLocation{
			UserID:    ev.UserID,
			Username:  ev.Username,
			Latitude:  ev.Latitude,
			Longitude: ev.Longitude,
		})
	case protocol.RoomEvent:
		// Membership frames carry no client-side state yet; accepted as a
		// no-op so they can never break the dispatch loop.
		s.log.Debug("room event", "eventType", ev.EventType, "user", ev.Name)
	}
}
