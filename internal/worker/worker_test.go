package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/fcy-position/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) SweepLimits(ctx context.Context, date time.Time) (service.SweepResult, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(service.SweepResult), args.Error(1)
}

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) Purge(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestLimitSweepWorkerSweepsToday(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	sweeper := new(mockSweeper)
	sweeper.On("SweepLimits", ctx, now).Return(service.SweepResult{Checked: 3, Raised: 1}, nil).Once()

	w := NewLimitSweepWorker(sweeper)
	w.clock = func() time.Time { return now }
	w.RunOnce(ctx)

	sweeper.AssertExpectations(t)
}

func TestLimitSweepWorkerSurvivesFailure(t *testing.T) {
	ctx := context.Background()
	sweeper := new(mockSweeper)
	sweeper.On("SweepLimits", ctx, mock.Anything).Return(service.SweepResult{}, errors.New("pool closed"))

	w := NewLimitSweepWorker(sweeper)
	assert.NotPanics(t, func() { w.RunOnce(ctx) })
}

func TestLimitSweepWorkerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := new(mockSweeper)
	sweeper.On("SweepLimits", mock.Anything, mock.Anything).Return(service.SweepResult{}, nil)

	w := NewLimitSweepWorker(sweeper).WithInterval(time.Millisecond)
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	// a second Stop after cancellation must not panic
	w.Stop()
	w.Stop()
}

func TestIdempotencyPurgeWorkerRunOnce(t *testing.T) {
	ctx := context.Background()
	purger := new(mockPurger)
	purger.On("Purge", ctx, mock.AnythingOfType("time.Time")).Return(int64(4), nil).Once()
	purger.On("Purge", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("timeout")).Once()

	w := NewIdempotencyPurgeWorker(purger)
	w.RunOnce(ctx)
	w.RunOnce(ctx)
	purger.AssertExpectations(t)
}
