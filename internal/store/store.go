package store

import (
	"context"
	"time"

	"github.com/supplysnap/backend/internal/model"
)

// SaveKind reports whether a save created a new row or overwrote the
// automatic row already present for the date.
type SaveKind string

const (
	SaveCreated SaveKind = "created"
	SaveUpdated SaveKind = "updated"
)

// SaveParams carries everything needed to persist one snapshot.
type SaveParams struct {
	Periode       string
	SnapshotDate  time.Time
	RawData       []byte
	ProcessedData []byte
	CreatedBy     string
	IsMonthEnd    bool
	IsManual      bool
	Notes         string
}

// SaveResult is the outcome of a Save call.
type SaveResult struct {
	ID   int64
	Kind SaveKind
}

// Store is the repository interface for snapshot persistence. Lookups return
// (nil, nil) when no row matches; errors mean the store itself failed. The
// store never retries; retry policy belongs to the scheduler.
type Store interface {
	// Save persists a snapshot. Automatic saves upsert by date: a second
	// automatic save for the same date overwrites the first row in place.
	// Manual saves always append a new row.
	Save(ctx context.Context, p SaveParams) (SaveResult, error)
	// GetByDate returns the automatic (or, failing that, latest) snapshot
	// for the date.
	GetByDate(ctx context.Context, date time.Time) (*model.Snapshot, error)
	// GetByPeriode returns the most recent snapshot within the period.
	GetByPeriode(ctx context.Context, periode string) (*model.Snapshot, error)
	GetByID(ctx context.Context, id int64) (*model.Snapshot, error)
	// ListAvailable returns the three availability views.
	ListAvailable(ctx context.Context) (*model.AvailableSnapshots, error)
	// ListByPeriode returns snapshot metadata for the period, newest first.
	ListByPeriode(ctx context.Context, periode string) ([]model.SnapshotMeta, error)
	// DeleteByID removes exactly that row. Absent targets yield count 0.
	DeleteByID(ctx context.Context, id int64) (int64, error)
	// DeleteByDate removes the automatic snapshot for the date; manual
	// snapshots on the same date are untouched.
	DeleteByDate(ctx context.Context, date time.Time) (int64, error)
	// Migrate runs database migrations.
	Migrate(ctx context.Context) error
}
