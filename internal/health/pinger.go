// Package health reports whether the service's dependencies are reachable.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pinger is a dependency that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// retryInterval is the pause between failed pings in WaitFor.
var retryInterval = time.Second

// WaitFor pings p until it answers or ctx is done.
func WaitFor(ctx context.Context, name string, p Pinger, logger *slog.Logger) error {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		err := p.Ping(ctx)
		if err == nil {
			return nil
		}

		logger.WarnContext(ctx, "dependency not reachable, retrying",
			"dependency", name,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s connection timed out or was cancelled: %w (last error: %v)", name, ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
