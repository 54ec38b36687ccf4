package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/supplysnap/backend/internal/cache"
	"github.com/supplysnap/backend/internal/config"
	"github.com/supplysnap/backend/internal/model"
	"github.com/supplysnap/backend/internal/store"
)

// ErrUnknownSchedule is returned by TriggerNow for a name that was never
// configured.
var ErrUnknownSchedule = errors.New("unknown schedule")

// capturer is the slice of the aggregator the engine needs.
type capturer interface {
	Capture(ctx context.Context, now time.Time) (model.RawData, model.ProcessedData, error)
}

// runState is the in-memory, process-lifetime state of one schedule. A
// restart resets it; the store check in evaluate keeps a restart from
// double-saving the same day.
type runState struct {
	lastSuccess   string // calendar date of the last successful run, "" if none
	retryCount    int
	retryTimer    *time.Timer
	firing        bool
	exhaustedDate string // date on which all retries were consumed
}

// Engine owns the named daily schedules. A single coarse ticker drives all
// schedule evaluation; retries are independent one-shot timers.
type Engine struct {
	capturer  capturer
	store     store.Store
	cache     *cache.Cache
	schedules []config.Schedule

	checkInterval time.Duration

	// injectable for tests
	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	states  map[string]*runState
}

func New(c capturer, st store.Store, cch *cache.Cache, schedules []config.Schedule, checkInterval time.Duration) *Engine {
	states := make(map[string]*runState, len(schedules))
	for _, s := range schedules {
		states[s.Name] = &runState{}
	}
	return &Engine{
		capturer:      c,
		store:         st,
		cache:         cch,
		schedules:     schedules,
		checkInterval: checkInterval,
		now:           time.Now,
		afterFunc:     time.AfterFunc,
		states:        states,
	}
}

// Start launches the evaluation loop. Calling Start on a running engine is a
// no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	slog.Info("schedule engine started",
		"schedules", len(e.schedules), "check_interval", e.checkInterval)

	go func() {
		ticker := time.NewTicker(e.checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.evaluate(ctx)
			case <-stop:
				slog.Info("schedule engine stopped")
				return
			case <-ctx.Done():
				slog.Info("schedule engine context cancelled")
				return
			}
		}
	}()
}

// Stop cancels the evaluation loop and every pending retry timer. In-flight
// capture-and-save work is left to finish on its own. Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	close(e.stop)
	for name, st := range e.states {
		if st.retryTimer != nil {
			st.retryTimer.Stop()
			st.retryTimer = nil
			slog.Info("cancelled pending retry", "schedule", name)
		}
	}
}

// evaluate walks the schedules once and fires any that are due. A schedule is
// due when the wall clock is inside its window (its fire time up to the next
// schedule's fire time), it has not succeeded today, is not mid-retry, and
// has not exhausted today's retries.
func (e *Engine) evaluate(ctx context.Context) {
	now := e.now()
	today := dateKey(now)
	minutes := now.Hour()*60 + now.Minute()

	for i, sched := range e.schedules {
		fireAt := sched.FireHour*60 + sched.FireMinute
		windowEnd := 24 * 60
		if i+1 < len(e.schedules) {
			next := e.schedules[i+1]
			windowEnd = next.FireHour*60 + next.FireMinute
		}
		if minutes < fireAt || minutes >= windowEnd {
			continue
		}

		e.mu.Lock()
		st := e.states[sched.Name]
		skip := st.firing || st.retryTimer != nil ||
			st.lastSuccess == today || st.exhaustedDate == today
		e.mu.Unlock()
		if skip {
			continue
		}

		// The durable store is authoritative for "already ran today": after
		// a restart the in-memory state is empty, but an existing automatic
		// snapshot bearing this schedule's tag means the work is done.
		if snap, err := e.store.GetByDate(ctx, now); err == nil &&
			snap != nil && !snap.IsManual && snap.CreatedBy == sched.Tag() {
			e.mu.Lock()
			st.lastSuccess = today
			e.mu.Unlock()
			slog.Info("skipping schedule, snapshot already saved today", "schedule", sched.Name)
			continue
		}

		e.mu.Lock()
		st.firing = true
		e.mu.Unlock()
		e.fire(sched)
	}
}

// fire runs one capture-and-save attempt and applies the success/failure
// transition. It deliberately does not use the loop context: stopping the
// engine must not cancel an attempt already in progress.
func (e *Engine) fire(sched config.Schedule) {
	runID := uuid.NewString()
	now := e.now()
	today := dateKey(now)

	slog.Info("schedule firing", "schedule", sched.Name, "run_id", runID)
	err := e.captureAndSave(context.Background(), now, sched.Tag())

	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.states[sched.Name]
	st.firing = false

	if err == nil {
		st.lastSuccess = today
		st.retryCount = 0
		if st.retryTimer != nil {
			st.retryTimer.Stop()
			st.retryTimer = nil
		}
		runsTotal.WithLabelValues(sched.Name, "success").Inc()
		slog.Info("schedule run succeeded", "schedule", sched.Name, "run_id", runID)
		return
	}

	st.retryCount++
	if st.retryCount < sched.MaxRetries {
		retriesScheduled.WithLabelValues(sched.Name).Inc()
		runsTotal.WithLabelValues(sched.Name, "failure").Inc()
		slog.Error("schedule run failed, retry scheduled",
			"schedule", sched.Name, "run_id", runID,
			"attempt", st.retryCount, "retry_in", sched.RetryInterval, "error", err)
		st.retryTimer = e.afterFunc(sched.RetryInterval, func() {
			e.retry(sched)
		})
		return
	}

	// All retries consumed: give up until the date guard re-admits the
	// schedule tomorrow. Non-fatal to the process.
	st.retryCount = 0
	st.exhaustedDate = today
	runsTotal.WithLabelValues(sched.Name, "exhausted").Inc()
	slog.Error("schedule retries exhausted for today",
		"schedule", sched.Name, "run_id", runID, "error", err)
}

// retry is the one-shot timer callback re-entering the firing transition.
func (e *Engine) retry(sched config.Schedule) {
	e.mu.Lock()
	st := e.states[sched.Name]
	st.retryTimer = nil
	if !e.running || st.firing {
		e.mu.Unlock()
		return
	}
	st.firing = true
	e.mu.Unlock()
	e.fire(sched)
}

// TriggerNow forces an immediate out-of-band run of the named schedule,
// bypassing the time window and the already-ran-today guard. Two racing
// triggers for the same date are collapsed by the store's upsert.
func (e *Engine) TriggerNow(scheduleName string) error {
	var sched *config.Schedule
	for i := range e.schedules {
		if e.schedules[i].Name == scheduleName {
			sched = &e.schedules[i]
			break
		}
	}
	if sched == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSchedule, scheduleName)
	}

	e.mu.Lock()
	st := e.states[sched.Name]
	st.lastSuccess = ""
	st.retryCount = 0
	st.exhaustedDate = ""
	if st.retryTimer != nil {
		st.retryTimer.Stop()
		st.retryTimer = nil
	}
	st.firing = true
	e.mu.Unlock()

	e.fire(*sched)

	e.mu.Lock()
	defer e.mu.Unlock()
	if st.lastSuccess == "" {
		return fmt.Errorf("manual trigger of %q failed", scheduleName)
	}
	return nil
}

// captureAndSave runs the aggregator and persists the result as an automatic
// snapshot tagged with the schedule's provenance string.
func (e *Engine) captureAndSave(ctx context.Context, now time.Time, tag string) error {
	raw, processed, err := e.capturer.Capture(ctx, now)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal raw data: %w", err)
	}
	processedJSON, err := json.Marshal(processed)
	if err != nil {
		return fmt.Errorf("marshal processed data: %w", err)
	}

	res, err := e.store.Save(ctx, store.SaveParams{
		Periode:       model.Periode(now),
		SnapshotDate:  model.DateOnly(now),
		RawData:       rawJSON,
		ProcessedData: processedJSON,
		CreatedBy:     tag,
		IsMonthEnd:    model.IsMonthEnd(now),
		IsManual:      false,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if e.cache != nil {
		e.cache.Invalidate()
	}
	slog.Info("snapshot saved", "id", res.ID, "result", res.Kind,
		"periode", model.Periode(now), "month_end", model.IsMonthEnd(now))
	return nil
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
