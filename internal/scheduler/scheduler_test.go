package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplysnap/backend/internal/cache"
	"github.com/supplysnap/backend/internal/config"
	"github.com/supplysnap/backend/internal/model"
	"github.com/supplysnap/backend/internal/store"
)

// fakeCapturer fails its first `failures` calls, then succeeds.
type fakeCapturer struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (f *fakeCapturer) Capture(ctx context.Context, now time.Time) (model.RawData, model.ProcessedData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, model.ProcessedData{}, errors.New("sources unavailable")
	}
	return model.RawData{"inventory": {}}, model.ProcessedData{
		CapturedAt: now,
		Periode:    model.Periode(now),
	}, nil
}

func (f *fakeCapturer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type armedTimer struct {
	delay time.Duration
	fn    func()
}

// testEngine wires an engine with a fixed clock and a timer stub that records
// armed retries instead of running them.
func testEngine(t *testing.T, fc *fakeCapturer, st store.Store, schedules []config.Schedule, at time.Time) (*Engine, *[]armedTimer) {
	t.Helper()
	e := New(fc, st, cache.New(), schedules, time.Hour)
	timers := &[]armedTimer{}
	e.now = func() time.Time { return at }
	e.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		*timers = append(*timers, armedTimer{d, fn})
		return time.NewTimer(time.Hour)
	}
	return e, timers
}

func evening() config.Schedule {
	return config.Schedule{
		Name:          "evening",
		FireHour:      18,
		MaxRetries:    6,
		RetryInterval: 10 * time.Minute,
	}
}

func TestRetryUntilSuccess(t *testing.T) {
	fc := &fakeCapturer{failures: 3}
	mem := store.NewMemory()
	at := time.Date(2024, time.May, 10, 18, 0, 0, 0, time.UTC)
	e, timers := testEngine(t, fc, mem, []config.Schedule{evening()}, at)
	e.Start(context.Background())
	defer e.Stop()

	// initial fire fails, arms first retry
	e.evaluate(context.Background())
	require.Len(t, *timers, 1)
	assert.Equal(t, 10*time.Minute, (*timers)[0].delay)

	// ticking again while a retry is pending must not fire
	e.evaluate(context.Background())
	assert.Equal(t, 1, fc.callCount())

	// two more failing retries, each re-armed at the same interval
	(*timers)[0].fn()
	require.Len(t, *timers, 2)
	assert.Equal(t, 10*time.Minute, (*timers)[1].delay)
	(*timers)[1].fn()
	require.Len(t, *timers, 3)

	// fourth attempt succeeds
	(*timers)[2].fn()
	require.Len(t, *timers, 3, "no retry after success")
	assert.Equal(t, 4, fc.callCount())

	st := e.states["evening"]
	e.mu.Lock()
	assert.Equal(t, "2024-05-10", st.lastSuccess)
	assert.Equal(t, 0, st.retryCount)
	assert.Nil(t, st.retryTimer)
	e.mu.Unlock()

	// snapshot landed exactly once
	snap, err := mem.GetByDate(context.Background(), at)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "SYSTEM_EVENING", snap.CreatedBy)
	assert.False(t, snap.IsManual)

	// and the schedule does not fire again today
	e.evaluate(context.Background())
	assert.Equal(t, 4, fc.callCount())
}

func TestEvaluateRespectsWindow(t *testing.T) {
	fc := &fakeCapturer{}
	mem := store.NewMemory()
	schedules := []config.Schedule{
		{Name: "noon", FireHour: 12, MaxRetries: 1, RetryInterval: time.Minute},
		{Name: "evening", FireHour: 18, MaxRetries: 1, RetryInterval: time.Minute},
	}
	at := time.Date(2024, time.May, 10, 11, 59, 0, 0, time.UTC)
	e, _ := testEngine(t, fc, mem, schedules, at)
	e.Start(context.Background())
	defer e.Stop()

	// before any fire time: nothing runs
	e.evaluate(context.Background())
	assert.Equal(t, 0, fc.callCount())

	// inside noon's window only noon fires
	e.now = func() time.Time { return time.Date(2024, time.May, 10, 12, 30, 0, 0, time.UTC) }
	e.evaluate(context.Background())
	assert.Equal(t, 1, fc.callCount())
	snap, err := mem.GetByDate(context.Background(), at)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "SYSTEM_NOON", snap.CreatedBy)

	// evening's window: evening fires, upserting the same date
	e.now = func() time.Time { return time.Date(2024, time.May, 10, 18, 0, 0, 0, time.UTC) }
	e.evaluate(context.Background())
	assert.Equal(t, 2, fc.callCount())
	metas, err := mem.ListByPeriode(context.Background(), "202405")
	require.NoError(t, err)
	assert.Len(t, metas, 1, "both schedules share the one automatic row per date")
	assert.Equal(t, "SYSTEM_EVENING", metas[0].CreatedBy)
}

func TestStoreAuthoritativeGuard(t *testing.T) {
	// Simulates a restart: empty in-memory state but today's automatic
	// snapshot already persisted by this schedule.
	fc := &fakeCapturer{}
	mem := store.NewMemory()
	at := time.Date(2024, time.May, 10, 18, 5, 0, 0, time.UTC)

	_, err := mem.Save(context.Background(), store.SaveParams{
		Periode:       "202405",
		SnapshotDate:  at,
		RawData:       []byte(`{}`),
		ProcessedData: []byte(`{}`),
		CreatedBy:     "SYSTEM_EVENING",
	})
	require.NoError(t, err)

	e, _ := testEngine(t, fc, mem, []config.Schedule{evening()}, at)
	e.Start(context.Background())
	defer e.Stop()

	e.evaluate(context.Background())
	assert.Equal(t, 0, fc.callCount(), "existing snapshot suppresses the fire")

	e.mu.Lock()
	assert.Equal(t, "2024-05-10", e.states["evening"].lastSuccess)
	e.mu.Unlock()
}

func TestExhaustedTodayReadmitsNextDay(t *testing.T) {
	fc := &fakeCapturer{failures: 1}
	mem := store.NewMemory()
	sched := evening()
	sched.MaxRetries = 1
	at := time.Date(2024, time.May, 10, 18, 0, 0, 0, time.UTC)
	e, timers := testEngine(t, fc, mem, []config.Schedule{sched}, at)
	e.Start(context.Background())
	defer e.Stop()

	e.evaluate(context.Background())
	assert.Empty(t, *timers, "no retry when maxRetries is consumed")

	e.mu.Lock()
	st := e.states["evening"]
	assert.Equal(t, "2024-05-10", st.exhaustedDate)
	assert.Equal(t, 0, st.retryCount, "counter reset for the next day")
	e.mu.Unlock()

	// same day: still exhausted
	e.evaluate(context.Background())
	assert.Equal(t, 1, fc.callCount())

	// next day: re-admitted and succeeds
	e.now = func() time.Time { return time.Date(2024, time.May, 11, 18, 0, 0, 0, time.UTC) }
	e.evaluate(context.Background())
	assert.Equal(t, 2, fc.callCount())
	e.mu.Lock()
	assert.Equal(t, "2024-05-11", st.lastSuccess)
	e.mu.Unlock()
}

func TestTriggerNow(t *testing.T) {
	fc := &fakeCapturer{}
	mem := store.NewMemory()
	at := time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC) // outside the window
	e, _ := testEngine(t, fc, mem, []config.Schedule{evening()}, at)

	require.NoError(t, e.TriggerNow("evening"))
	require.NoError(t, e.TriggerNow("evening"))

	metas, err := mem.ListByPeriode(context.Background(), "202405")
	require.NoError(t, err)
	assert.Len(t, metas, 1, "double trigger collapses onto one automatic row")

	err = e.TriggerNow("nope")
	assert.ErrorIs(t, err, ErrUnknownSchedule)
}

func TestTriggerNowFailure(t *testing.T) {
	fc := &fakeCapturer{failures: 99}
	e, timers := testEngine(t, fc, store.NewMemory(), []config.Schedule{evening()},
		time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC))

	err := e.TriggerNow("evening")
	assert.Error(t, err)
	assert.Len(t, *timers, 1, "failed manual trigger enters the retry path")
}

func TestStartIdempotentAndStop(t *testing.T) {
	fc := &fakeCapturer{}
	e, _ := testEngine(t, fc, store.NewMemory(), []config.Schedule{evening()},
		time.Date(2024, time.May, 10, 18, 0, 0, 0, time.UTC))

	e.Start(context.Background())
	e.Start(context.Background()) // no-op, no panic
	e.Stop()
	e.Stop() // idempotent

	// retries do not run once stopped
	e.mu.Lock()
	e.states["evening"].retryCount = 1
	e.mu.Unlock()
	e.retry(evening())
	assert.Equal(t, 0, fc.callCount())
}
