// Package roomtest hosts an in-process stand-in for the room server. It
// mimics the observed production behavior: connections arrive on /ws/{pin},
// a text "ping" is answered with a text "pong", and every other text frame
// is broadcast to all members of that pin's room, the sender included.
//
// It exists for tests only; the real server is an external collaborator.
package roomtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Frame is one non-heartbeat text frame received by the server.
type Frame struct {
	Pin  string
	Data []byte
}

// Server is the in-process room server.
type Server struct {
	hs       *httptest.Server
	upgrader websocket.Upgrader

	silencePongs atomic.Bool
	rejectAll    atomic.Bool

	mu      sync.Mutex
	rooms   map[string]map[*member]bool
	origins []string
	frames  []Frame

	received chan Frame
}

type member struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (m *member) write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn.WriteMessage(websocket.TextMessage, data)
}

// New starts the server. The caller must Close it.
func New() *Server {
	s := &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		rooms:    make(map[string]map[*member]bool),
		received: make(chan Frame, 64),
	}
	s.hs = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BaseURL returns the ws:// base URL of the server.
func (s *Server) BaseURL() string {
	return "ws" + strings.TrimPrefix(s.hs.URL, "http")
}

// RoomURL returns a ready connection URL for one pin.
func (s *Server) RoomURL(pin string) string {
	return s.BaseURL() + "/ws/" + pin + "?l=test"
}

// SilencePongs makes the server stop answering pings, so heartbeat timeouts
// can be provoked.
func (s *Server) SilencePongs(on bool) { s.silencePongs.Store(on) }

// RejectConnections makes new upgrade attempts fail with 503, so reconnect
// behavior can be observed.
func (s *Server) RejectConnections(on bool) { s.rejectAll.Store(on) }

// Received delivers every recorded frame in arrival order.
func (s *Server) Received() <-chan Frame { return s.received }

// Frames returns a copy of all recorded frames so far.
func (s *Server) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := make([]Frame, len(s.frames))
	copy(frames, s.frames)
	return frames
}

// Origins returns the Origin header of every accepted handshake, in order.
func (s *Server) Origins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	origins := make([]string, len(s.origins))
	copy(origins, s.origins)
	return origins
}

// ClientCount returns the number of live connections in one room.
func (s *Server) ClientCount(pin string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms[pin])
}

// Broadcast sends a raw frame to every member of a room, as the real server
// does when it relays events.
func (s *Server) Broadcast(pin string, data []byte) {
	s.mu.Lock()
	members := make([]*member, 0, len(s.rooms[pin]))
	for m := range s.rooms[pin] {
		members = append(members, m)
	}
	s.mu.Unlock()

	for _, m := range members {
		_ = m.write(data)
	}
}

// CloseConnections force-closes every connection in a room without a closing
// handshake, simulating a network failure.
func (s *Server) CloseConnections(pin string) {
	s.mu.Lock()
	members := make([]*member, 0, len(s.rooms[pin]))
	for m := range s.rooms[pin] {
		members = append(members, m)
	}
	s.mu.Unlock()

	for _, m := range members {
		_ = m.conn.Close()
	}
}

// Close shuts the server down and drops every connection.
func (s *Server) Close() {
	s.mu.Lock()
	for _, room := range s.rooms {
		for m := range room {
			_ = m.conn.Close()
		}
	}
	s.rooms = make(map[string]map[*member]bool)
	s.mu.Unlock()
	s.hs.Close()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if s.rejectAll.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	pin := strings.TrimPrefix(r.URL.Path, "/ws/")
	if pin == "" || pin == r.URL.Path {
		http.Error(w, "not a room path", http.StatusNotFound)
		return
	}

	origin := r.Header.Get("Origin")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m := &member{conn: conn}
	s.mu.Lock()
	if s.rooms[pin] == nil {
		s.rooms[pin] = make(map[*member]bool)
	}
	s.rooms[pin][m] = true
	s.origins = append(s.origins, origin)
	s.mu.Unlock()

	go s.serve(pin, m)
}

func (s *Server) serve(pin string, m *member) {
	defer func() {
		s.mu.Lock()
		delete(s.rooms[pin], m)
		s.mu.Unlock()
		_ = m.conn.Close()
	}()

	for {
		mt, data, err := m.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		if string(data) == "ping" {
			if !s.silencePongs.Load() {
				_ = m.write([]byte("pong"))
			}
			continue
		}

		frame := Frame{Pin: pin, Data: data}
		s.mu.Lock()
		s.frames = append(s.frames, frame)
		s.mu.Unlock()
		select {
		case s.received <- frame:
		default:
		}

		s.Broadcast(pin, data)
	}
}
