package shortener

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// DefaultClickTimeout bounds a single click increment.
const DefaultClickTimeout = 2 * time.Second

// ClickStore is the part of Repository the ClickAccountant needs.
type ClickStore interface {
	IncrementClicks(ctx context.Context, code string) error
}

// ClickAccountant records visits without ever failing the redirect that
// triggered them.
type ClickAccountant struct {
	store   ClickStore
	timeout time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

// ClickAccountantConfig holds configuration for the ClickAccountant.
type ClickAccountantConfig struct {
	Timeout time.Duration
	Metrics *Metrics
	Logger  *slog.Logger
}

func NewClickAccountant(store ClickStore, config *ClickAccountantConfig) *ClickAccountant {
	if config == nil {
		config = &ClickAccountantConfig{}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultClickTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ClickAccountant{
		store:   store,
		timeout: timeout,
		metrics: config.Metrics,
		logger:  logger,
	}
}

// RecordVisit adds one to the click counter for code. The increment outlives
// cancellation of ctx; failures are logged and counted, never returned.
func (a *ClickAccountant) RecordVisit(ctx context.Context, code string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	if err := a.store.IncrementClicks(ctx, code); err != nil {
		a.metrics.click(statusError)
		a.logger.WarnContext(ctx, "click not recorded",
			"code", code,
			"error", err,
		)
		return
	}
	a.metrics.click(statusSuccess)
}
