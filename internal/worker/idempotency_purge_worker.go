package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/fcy-position/internal/observability"
	"go.uber.org/zap"
)

const idempotencyPurgeWorkerName = "idempotency_purge"

// KeyPurger drops idempotency records that have left the replay window.
type KeyPurger interface {
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// IdempotencyPurgeWorker keeps the idempotency table bounded.
type IdempotencyPurgeWorker struct {
	purger   KeyPurger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewIdempotencyPurgeWorker(purger KeyPurger) *IdempotencyPurgeWorker {
	return &IdempotencyPurgeWorker{
		purger:   purger,
		interval: time.Hour,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *IdempotencyPurgeWorker) WithInterval(interval time.Duration) *IdempotencyPurgeWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

func (w *IdempotencyPurgeWorker) Start(ctx context.Context) {
	zap.L().Info("idempotency purge worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *IdempotencyPurgeWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *IdempotencyPurgeWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *IdempotencyPurgeWorker) RunOnce(ctx context.Context) {
	n, err := w.purger.Purge(ctx, time.Now().UTC())
	if err != nil {
		observability.IncrementWorkerRun(idempotencyPurgeWorkerName, "failed")
		zap.L().Warn("idempotency purge failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun(idempotencyPurgeWorkerName, "success")
	if n > 0 {
		zap.L().Info("idempotency keys purged", zap.Int64("count", n))
	}
}
