package conn

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// heartbeat probes the server with the ping literal while the connection is
// up and declares the connection dead when no pong arrives inside the
// timeout window. One cycle is: send ping, wait the full timeout, check,
// then wait out the remainder of the interval.
type heartbeat struct {
	interval time.Duration
	timeout  time.Duration
	ping     func() error // writes the probe to the active transport
	expire   func()       // called once when a pong is missed
	log      *slog.Logger

	pong   atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// newHeartbeat builds a monitor scoped under parent. The cancel handle is
// ready before the value escapes, so stop is safe even when it races start.
func newHeartbeat(parent context.Context, interval, timeout time.Duration, ping func() error, expire func(), log *slog.Logger) *heartbeat {
	ctx, cancel := context.WithCancel(parent)
	return &heartbeat{
		interval: interval,
		timeout:  timeout,
		ping:     ping,
		expire:   expire,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// start launches the probe loop. It stops when the context is cancelled,
// when a probe cannot be written, or after expiring the connection.
func (h *heartbeat) start() {
	go h.run(h.ctx)
}

// stop cancels the loop without waiting for it; the loop holds no locks and
// exits at its next wakeup.
func (h *heartbeat) stop() {
	h.cancel()
}

// pongReceived clears the awaiting-reply flag for the current cycle.
func (h *heartbeat) pongReceived() {
	h.pong.Store(true)
}

func (h *heartbeat) run(ctx context.Context) {
	defer close(h.done)

	for {
		h.pong.Store(false)
		if err := h.ping(); err != nil {
			// A transport that cannot carry the probe is as dead as one
			// that never answers it.
			h.log.Warn("heartbeat probe failed, dropping connection", "err", err)
			h.expire()
			return
		}
		h.log.Debug("ping sent")

		if !sleep(ctx, h.timeout) {
			return
		}
		if !h.pong.Load() {
			h.log.Warn("pong not received within timeout, dropping connection",
				"timeout", h.timeout)
			h.expire()
			return
		}

		if !sleep(ctx, h.interval-h.timeout) {
			return
		}
	}
}

// sleep waits d or until ctx is done; it reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
