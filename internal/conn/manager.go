// Package conn owns the connection lifecycle for a room session: the
// connect/reconnect state machine and the application-level heartbeat.
package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ziyoura/wemeet-client/internal/transport"
	"github.com/ziyoura/wemeet-client/pkg/protocol"
)

// Default timings, matching the production client.
const (
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultHeartbeatTimeout  = 10 * time.Second
	DefaultRetryInterval     = 5 * time.Second
)

// ErrClosed is returned by Connect after the manager has been disposed.
var ErrClosed = errors.New("conn: manager closed")

// Options tune the manager. Zero durations fall back to the defaults; a nil
// logger falls back to slog.Default.
type Options struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	RetryInterval     time.Duration
	Logger            *slog.Logger
}

// Manager owns the transport handle for one room session. It is the only
// writer of the connection State; at most one live transport exists at any
// time. Inbound frames are delivered serially to the onFrame callback from a
// single receive goroutine.
type Manager struct {
	dialer  transport.Dialer
	url     string
	origin  string
	onFrame func([]byte)
	log     *slog.Logger

	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	retryInterval     time.Duration

	ctx    context.Context // session lifetime, parent of heartbeat and retry loops
	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	conn         transport.Conn
	hb           *heartbeat
	gen          int // bumped on every connect/teardown; stale callbacks check it
	reconnecting bool
	retryCtx     context.Context // identifies the active retry loop
	stopRetry    context.CancelFunc
	closed       bool
}

// NewManager builds a manager dialing url with the given Origin header.
// onFrame receives every inbound non-pong frame; it may be nil.
func NewManager(d transport.Dialer, url, origin string, onFrame func([]byte), opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		dialer:            d,
		url:               url,
		origin:            origin,
		onFrame:           onFrame,
		log:               log.With("component", "conn"),
		heartbeatInterval: opts.HeartbeatInterval,
		heartbeatTimeout:  opts.HeartbeatTimeout,
		retryInterval:     opts.RetryInterval,
		ctx:               ctx,
		cancel:            cancel,
	}
	if m.heartbeatInterval <= 0 {
		m.heartbeatInterval = DefaultHeartbeatInterval
	}
	if m.heartbeatTimeout <= 0 {
		m.heartbeatTimeout = DefaultHeartbeatTimeout
	}
	if m.retryInterval <= 0 {
		m.retryInterval = DefaultRetryInterval
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect tears down any existing transport, then dials a new one. On
// success the state becomes Connected, any pending retry loop is cancelled
// and the heartbeat starts. On failure the state returns to Disconnected and
// a retry loop is scheduled.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.teardownLocked()
	m.gen++
	gen := m.gen
	m.state = Connecting
	m.mu.Unlock()

	c, err := m.dialer.Dial(m.ctx, m.url, m.origin)
	if err != nil {
		m.mu.Lock()
		if m.gen == gen && !m.closed {
			m.state = Disconnected
		}
		m.mu.Unlock()
		m.log.Warn("connect failed", "url", m.url, "err", err)
		m.StartReconnection()
		return fmt.Errorf("connect: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = c.Abort()
		return ErrClosed
	}
	if m.gen != gen {
		// A newer Connect superseded this dial; its transport wins.
		m.mu.Unlock()
		_ = c.Abort()
		return nil
	}
	m.conn = c
	m.state = Connected
	m.stopRetryLocked()
	hb := newHeartbeat(
		m.ctx,
		m.heartbeatInterval,
		m.heartbeatTimeout,
		func() error { return c.WriteMessage([]byte(protocol.Ping)) },
		func() { _ = c.Abort() }, // read loop notices and drives the failure path
		m.log,
	)
	m.hb = hb
	m.mu.Unlock()

	m.log.Info("connected", "url", m.url)
	hb.start()
	go m.readLoop(c, gen)
	return nil
}

// Send writes one frame if a transport is currently open. Frames sent while
// disconnected are dropped silently; delivery is best-effort by design.
func (m *Manager) Send(data []byte) {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c == nil {
		m.log.Debug("send dropped, no open transport")
		return
	}
	if err := c.WriteMessage(data); err != nil {
		m.log.Debug("send failed", "err", err)
	}
}

// StartReconnection launches the retry loop: wait the retry interval, then
// attempt Connect, until the state becomes Connected. Calling it while a
// loop is already active is a no-op.
func (m *Manager) StartReconnection() {
	m.mu.Lock()
	if m.closed || m.reconnecting {
		m.mu.Unlock()
		return
	}
	m.reconnecting = true
	ctx, cancel := context.WithCancel(m.ctx)
	m.retryCtx = ctx
	m.stopRetry = cancel
	m.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			m.mu.Lock()
			// Only clear state still owned by this loop; a cancelled loop
			// must not clobber a successor armed in the meantime.
			if m.retryCtx == ctx {
				m.reconnecting = false
				m.retryCtx = nil
				m.stopRetry = nil
			}
			m.mu.Unlock()
		}()
		for {
			if m.State() == Connected {
				return
			}
			if !sleep(ctx, m.retryInterval) {
				return
			}
			if m.State() == Connected {
				return
			}
			m.log.Info("attempting to reconnect", "url", m.url)
			_ = m.Connect()
		}
	}()
}

// CloseConn closes the current transport with a normal-closure code and
// discards the handle. The heartbeat and any retry loop stop; no reconnect
// is scheduled. The manager itself stays usable.
func (m *Manager) CloseConn(reason string) {
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	if m.hb != nil {
		m.hb.stop()
		m.hb = nil
	}
	m.stopRetryLocked()
	m.gen++
	m.state = Disconnected
	m.mu.Unlock()

	if c != nil {
		_ = c.Close(reason)
		m.log.Info("connection closed", "reason", reason)
	}
}

// Close disposes the manager: the heartbeat stops, the retry loop stops,
// then the transport is closed with a normal-closure code. No callbacks fire
// afterwards and Connect returns ErrClosed.
func (m *Manager) Close(reason string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.CloseConn(reason)
}

func (m *Manager) readLoop(c transport.Conn, gen int) {
	for {
		data, err := c.ReadMessage()
		if err != nil {
			m.connectionLost(gen, err)
			return
		}

		if protocol.IsPong(data) {
			m.mu.Lock()
			hb := m.hb
			stale := m.gen != gen
			m.mu.Unlock()
			if !stale && hb != nil {
				hb.pongReceived()
				m.log.Debug("pong received")
			}
			continue
		}

		m.mu.Lock()
		stale := m.gen != gen || m.closed
		m.mu.Unlock()
		if stale {
			return
		}
		if m.onFrame != nil {
			m.onFrame(data)
		}
	}
}

// connectionLost handles a transport failure (including heartbeat-provoked
// aborts): state flips to Disconnected, the heartbeat stops and exactly one
// retry loop is scheduled. Stale generations are ignored.
func (m *Manager) connectionLost(gen int, err error) {
	m.mu.Lock()
	if m.closed || m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.teardownLocked()
	m.state = Disconnected
	m.mu.Unlock()

	m.log.Warn("connection lost", "err", err)
	m.StartReconnection()
}

// stopRetryLocked cancels any active retry loop and clears the flag in the
// same critical section, so a connection lost right afterwards can arm a
// fresh loop without waiting for the cancelled goroutine to wind down.
// Callers hold m.mu.
func (m *Manager) stopRetryLocked() {
	if m.stopRetry == nil {
		return
	}
	m.stopRetry()
	m.reconnecting = false
	m.retryCtx = nil
	m.stopRetry = nil
}

// teardownLocked discards the transport handle and stops the heartbeat.
// Callers hold m.mu.
func (m *Manager) teardownLocked() {
	if m.hb != nil {
		m.hb.stop()
		m.hb = nil
	}
	if m.conn != nil {
		_ = m.conn.Abort()
		m.conn = nil
	}
}
