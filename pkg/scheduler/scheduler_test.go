package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingSweeper struct {
	calls atomic.Int64
	block chan struct{}
}

func (s *countingSweeper) RunAll(_ context.Context) error {
	s.calls.Add(1)

	if s.block != nil {
		<-s.block
	}

	return nil
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	scheduler := New("not a cron spec", time.UTC, &countingSweeper{}, testLogger())

	err := scheduler.Start(context.Background())

	require.Error(t, err)
}

func TestSchedulerSweeps(t *testing.T) {
	sweeper := &countingSweeper{}
	scheduler := New("@every 10ms", time.UTC, sweeper, testLogger())

	require.NoError(t, scheduler.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	scheduler.Stop()
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	sweeper := &countingSweeper{block: make(chan struct{})}
	scheduler := New("@every 10ms", time.UTC, sweeper, testLogger())

	require.NoError(t, scheduler.Start(context.Background()))

	// The first sweep blocks; later ticks must be skipped, not stacked.
	require.Eventually(t, func() bool {
		return sweeper.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), sweeper.calls.Load())

	close(sweeper.block)
	scheduler.Stop()
}
