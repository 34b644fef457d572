package seo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/spree-storefront/pkg/logger"
)

// WarmerParams configure the sitemap warmer.
type WarmerParams struct {
	Service  Service
	Lock     Lock
	Interval time.Duration
	Logger   *logger.Logger
}

// Warmer rebuilds the cached sitemap on a fixed cadence so crawlers rarely
// wait on a catalog walk.
type Warmer struct {
	svc      Service
	lock     Lock
	interval time.Duration
	logg     *logger.Logger
}

func NewWarmer(params WarmerParams) (*Warmer, error) {
	if params.Service == nil {
		return nil, fmt.Errorf("seo service required")
	}
	if params.Interval <= 0 {
		return nil, fmt.Errorf("warm interval must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Warmer{svc: params.Service, lock: params.Lock, interval: params.Interval, logg: logg}, nil
}

// Run warms once immediately, then on every tick until ctx is canceled.
func (w *Warmer) Run(ctx context.Context) error {
	w.runCycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "seo.warmer.stopped")
			return ctx.Err()
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *Warmer) runCycle(ctx context.Context) {
	if w.lock != nil {
		locked, err := w.lock.Acquire(ctx)
		if err != nil {
			w.logg.Error(ctx, "seo.warmer.lock_failed", err)
			return
		}
		if !locked {
			w.logg.Debug(ctx, "seo.warmer.skipped")
			return
		}
		defer func() {
			if err := w.lock.Release(context.WithoutCancel(ctx)); err != nil {
				w.logg.Error(ctx, "seo.warmer.unlock_failed", err)
			}
		}()
	}

	start := time.Now()
	err := w.svc.Warm(ctx)
	logCtx := w.logg.WithField(ctx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logg.Error(logCtx, "seo.warmer.failed", err)
	}
}
