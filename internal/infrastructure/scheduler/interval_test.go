package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerRunsAndStops(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewIntervalScheduler(10 * time.Millisecond)
	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(1) }))
	require.NoError(t, s.Start(context.Background(), func(time.Time) { t.Error("second start must be ignored") }))

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerStopWaitsForJob(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var finished atomic.Bool
	s := NewIntervalScheduler(5 * time.Millisecond)
	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		select {
		case started <- struct{}{}:
		default:
			return
		}
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}))

	<-started
	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, finished.Load())
}

func TestIntervalSchedulerRejectsZeroPeriod(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewIntervalScheduler(0).Start(context.Background(), func(time.Time) {}))
	assert.NoError(t, NewIntervalScheduler(0).Start(context.Background(), nil))
}
