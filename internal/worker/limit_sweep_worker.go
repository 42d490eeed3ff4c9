package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/fcy-position/internal/observability"
	"github.com/ayo6706/fcy-position/internal/service"
	"go.uber.org/zap"
)

const limitSweepWorkerName = "limit_sweep"

// LimitSweeper re-evaluates correspondent concentration limits for a date.
type LimitSweeper interface {
	SweepLimits(ctx context.Context, date time.Time) (service.SweepResult, error)
}

// LimitSweepWorker periodically re-checks every active correspondent bank so
// alerts follow shifts caused by other banks' balance writes.
type LimitSweepWorker struct {
	sweeper  LimitSweeper
	interval time.Duration
	clock    func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLimitSweepWorker constructs a worker with a default 15 minute interval.
func NewLimitSweepWorker(sweeper LimitSweeper) *LimitSweepWorker {
	return &LimitSweepWorker{
		sweeper:  sweeper,
		interval: 15 * time.Minute,
		clock:    func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *LimitSweepWorker) WithInterval(interval time.Duration) *LimitSweepWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and sweeps today's balances at the configured interval.
func (w *LimitSweepWorker) Start(ctx context.Context) {
	zap.L().Info("limit sweep worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("limit sweep worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("limit sweep worker stop signal received")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *LimitSweepWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *LimitSweepWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// RunOnce performs a single sweep for the current day.
func (w *LimitSweepWorker) RunOnce(ctx context.Context) {
	res, err := w.sweeper.SweepLimits(ctx, w.clock())
	if err != nil {
		observability.IncrementWorkerRun(limitSweepWorkerName, "failed")
		zap.L().Error("limit sweep failed", zap.Error(err))
		return
	}
	result := "success"
	if res.Failed > 0 {
		result = "partial"
	}
	observability.IncrementWorkerRun(limitSweepWorkerName, result)
	zap.L().Info("limit sweep completed",
		zap.Int("checked", res.Checked),
		zap.Int("failed", res.Failed),
		zap.Int("raised", res.Raised),
	)
}
