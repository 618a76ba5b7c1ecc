package worker

import (
	"context"
	"log/slog"
	"time"

	"patdash/internal/log"
	"patdash/internal/services"
)

// Loader is the part of the dashboard service the refresher drives.
type Loader interface {
	Refresh(ctx context.Context) (services.Snapshot, error)
}

// Refresher re-runs the pipeline on a fixed interval so the cache is warm
// when the page polls. A failed cycle is logged and the next one still runs.
type Refresher struct {
	loader   Loader
	interval time.Duration
	timeout  time.Duration
	onResult func(services.Snapshot, error)
}

// NewRefresher creates a refresher ticking every interval. Each cycle is
// bounded by timeout (defaults to the interval).
func NewRefresher(loader Loader, interval, timeout time.Duration) *Refresher {
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Refresher{loader: loader, interval: interval, timeout: timeout}
}

// OnResult registers a callback invoked after every cycle.
func (r *Refresher) OnResult(fn func(services.Snapshot, error)) {
	r.onResult = fn
}

// Run blocks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Refresher started", log.FieldComponent, log.ComponentWorker, "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Refresher stopped", log.FieldComponent, log.ComponentWorker)
			return nil
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single refresh cycle.
func (r *Refresher) RunOnce(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	snap, err := r.loader.Refresh(cctx)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled refresh failed",
			log.NewFields().WithComponent(log.ComponentWorker).WithOperation(log.OpRefresh).WithError(err).ToSlice()...)
	} else {
		slog.DebugContext(ctx, "Scheduled refresh completed",
			log.FieldComponent, log.ComponentWorker,
			log.FieldRecords, snap.Table.Len(),
			log.FieldDuration, time.Since(start).Milliseconds())
	}
	if r.onResult != nil {
		r.onResult(snap, err)
	}
}
