// Package location adapts a device position source to the room session. The
// session treats each emission as an opaque coordinate pair; provider
// failures are reported as an observable state and never touch the
// transport.
package location

import (
	"context"
	"errors"
	"time"
)

// Position is one device fix.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Provider delivers a stream of positions until the context is cancelled.
// The returned channel is closed when the stream ends.
type Provider interface {
	Updates(ctx context.Context, interval time.Duration) (<-chan Position, error)
}

// ErrStreamEnded reports a provider that stopped emitting on its own.
var ErrStreamEnded = errors.New("location: position stream ended")

// Route is a Provider replaying a fixed sequence of positions, cycling one
// point per interval. It stands in for device GPS in the terminal client and
// in tests.
type Route struct {
	Points []Position
}

// Updates implements Provider.
func (r Route) Updates(ctx context.Context, interval time.Duration) (<-chan Position, error) {
	if len(r.Points) == 0 {
		return nil, errors.New("location: route has no points")
	}
	ch := make(chan Position)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			select {
			case ch <- r.Points[i%len(r.Points)]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
