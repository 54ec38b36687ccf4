package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/supplysnap/backend/internal/model"
)

// Memory is an in-process Store with the same semantics as the Postgres
// implementation. It backs tests and local development without a database.
// Save holds the lock for the whole check-then-write, which stands in for the
// Postgres single-statement upsert.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Snapshot
}

func NewMemory() *Memory {
	return &Memory{rows: map[int64]*model.Snapshot{}}
}

func (m *Memory) Migrate(ctx context.Context) error { return nil }

func (m *Memory) Save(ctx context.Context, p SaveParams) (SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	date := model.DateOnly(p.SnapshotDate)
	now := time.Now().UTC()

	if !p.IsManual {
		for _, s := range m.rows {
			if !s.IsManual && s.SnapshotDate.Equal(date) {
				s.Periode = p.Periode
				s.RawData = append([]byte(nil), p.RawData...)
				s.ProcessedData = append([]byte(nil), p.ProcessedData...)
				s.CreatedBy = p.CreatedBy
				s.IsMonthEnd = p.IsMonthEnd
				s.Notes = p.Notes
				s.CreatedAt = now
				return SaveResult{ID: s.ID, Kind: SaveUpdated}, nil
			}
		}
	}

	m.nextID++
	s := &model.Snapshot{
		ID:            m.nextID,
		Periode:       p.Periode,
		SnapshotDate:  date,
		RawData:       append([]byte(nil), p.RawData...),
		ProcessedData: append([]byte(nil), p.ProcessedData...),
		CreatedBy:     p.CreatedBy,
		IsMonthEnd:    p.IsMonthEnd,
		IsManual:      p.IsManual,
		Notes:         p.Notes,
		CreatedAt:     now,
	}
	m.rows[s.ID] = s
	return SaveResult{ID: s.ID, Kind: SaveCreated}, nil
}

func (m *Memory) GetByDate(ctx context.Context, date time.Time) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := model.DateOnly(date)
	var best *model.Snapshot
	for _, s := range m.rows {
		if !s.SnapshotDate.Equal(d) {
			continue
		}
		if best == nil || better(s, best) {
			best = s
		}
	}
	return copySnapshot(best), nil
}

// better orders automatic before manual, then newest first; mirrors the
// Postgres ORDER BY is_manual ASC, created_at DESC, id DESC.
func better(a, b *model.Snapshot) bool {
	if a.IsManual != b.IsManual {
		return !a.IsManual
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (m *Memory) GetByPeriode(ctx context.Context, periode string) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *model.Snapshot
	for _, s := range m.rows {
		if s.Periode != periode {
			continue
		}
		if best == nil || newer(s, best) {
			best = s
		}
	}
	return copySnapshot(best), nil
}

// newer orders by snapshot date, then creation order; mirrors the Postgres
// ORDER BY snapshot_date DESC, created_at DESC, id DESC.
func newer(a, b *model.Snapshot) bool {
	if !a.SnapshotDate.Equal(b.SnapshotDate) {
		return a.SnapshotDate.After(b.SnapshotDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (m *Memory) GetByID(ctx context.Context, id int64) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.rows[id]), nil
}

func (m *Memory) ListAvailable(ctx context.Context) (*model.AvailableSnapshots, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := &model.AvailableSnapshots{
		Periods:       []model.PeriodSummary{},
		AutoSaveDates: []time.Time{},
		ManualSaves:   []model.ManualSave{},
	}

	byPeriode := map[string]*model.PeriodSummary{}
	for _, s := range m.rows {
		ps, ok := byPeriode[s.Periode]
		if !ok {
			ps = &model.PeriodSummary{
				Periode:   s.Periode,
				FirstDate: s.SnapshotDate,
				LastDate:  s.SnapshotDate,
			}
			byPeriode[s.Periode] = ps
		}
		ps.SnapshotCount++
		if s.SnapshotDate.Before(ps.FirstDate) {
			ps.FirstDate = s.SnapshotDate
		}
		if s.SnapshotDate.After(ps.LastDate) {
			ps.LastDate = s.SnapshotDate
		}
		if s.IsMonthEnd {
			ps.HasMonthEnd = true
		}

		if s.IsManual {
			out.ManualSaves = append(out.ManualSaves, model.ManualSave{
				ID:           s.ID,
				SnapshotDate: s.SnapshotDate,
				CreatedBy:    s.CreatedBy,
				Notes:        s.Notes,
				CreatedAt:    s.CreatedAt,
			})
		} else {
			out.AutoSaveDates = append(out.AutoSaveDates, s.SnapshotDate)
		}
	}

	for _, ps := range byPeriode {
		out.Periods = append(out.Periods, *ps)
	}
	sort.Slice(out.Periods, func(i, j int) bool {
		return out.Periods[i].Periode > out.Periods[j].Periode
	})
	sort.Slice(out.AutoSaveDates, func(i, j int) bool {
		return out.AutoSaveDates[i].After(out.AutoSaveDates[j])
	})
	sort.Slice(out.ManualSaves, func(i, j int) bool {
		a, b := out.ManualSaves[i], out.ManualSaves[j]
		if !a.SnapshotDate.Equal(b.SnapshotDate) {
			return a.SnapshotDate.After(b.SnapshotDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListByPeriode(ctx context.Context, periode string) ([]model.SnapshotMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*model.Snapshot{}
	for _, s := range m.rows {
		if s.Periode == periode {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return newer(matched[i], matched[j]) })

	out := make([]model.SnapshotMeta, 0, len(matched))
	for _, s := range matched {
		out = append(out, s.Meta())
	}
	return out, nil
}

func (m *Memory) DeleteByID(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *Memory) DeleteByDate(ctx context.Context, date time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := model.DateOnly(date)
	var n int64
	for id, s := range m.rows {
		if !s.IsManual && s.SnapshotDate.Equal(d) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func copySnapshot(s *model.Snapshot) *model.Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.RawData = append([]byte(nil), s.RawData...)
	out.ProcessedData = append([]byte(nil), s.ProcessedData...)
	return &out
}
