package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/supplysnap/backend/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id              BIGSERIAL PRIMARY KEY,
			periode         CHAR(6) NOT NULL,
			snapshot_date   DATE NOT NULL,
			raw_data        JSONB NOT NULL,
			processed_data  JSONB NOT NULL,
			created_by      TEXT NOT NULL,
			is_month_end    BOOLEAN NOT NULL DEFAULT FALSE,
			is_manual       BOOLEAN NOT NULL DEFAULT FALSE,
			notes           TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_auto_date
			ON snapshots (snapshot_date) WHERE NOT is_manual;
		CREATE INDEX IF NOT EXISTS idx_snapshots_periode ON snapshots (periode);
	`
	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *Postgres) Save(ctx context.Context, sp SaveParams) (SaveResult, error) {
	date := model.DateOnly(sp.SnapshotDate)

	if sp.IsManual {
		var id int64
		err := p.db.QueryRowContext(ctx, `
			INSERT INTO snapshots
				(periode, snapshot_date, raw_data, processed_data, created_by, is_month_end, is_manual, notes)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
			RETURNING id`,
			sp.Periode, date, sp.RawData, sp.ProcessedData, sp.CreatedBy, sp.IsMonthEnd, sp.Notes,
		).Scan(&id)
		if err != nil {
			return SaveResult{}, fmt.Errorf("save manual snapshot: %w", err)
		}
		return SaveResult{ID: id, Kind: SaveCreated}, nil
	}

	// Single-statement upsert keyed on the partial unique index, so a manual
	// trigger racing a scheduled fire cannot produce two automatic rows.
	// xmax is non-zero only when the row was updated rather than inserted.
	var (
		id      int64
		updated bool
	)
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO snapshots
			(periode, snapshot_date, raw_data, processed_data, created_by, is_month_end, is_manual, notes)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (snapshot_date) WHERE NOT is_manual DO UPDATE SET
			periode        = EXCLUDED.periode,
			raw_data       = EXCLUDED.raw_data,
			processed_data = EXCLUDED.processed_data,
			created_by     = EXCLUDED.created_by,
			is_month_end   = EXCLUDED.is_month_end,
			notes          = EXCLUDED.notes,
			created_at     = NOW()
		RETURNING id, (xmax <> 0)`,
		sp.Periode, date, sp.RawData, sp.ProcessedData, sp.CreatedBy, sp.IsMonthEnd, sp.Notes,
	).Scan(&id, &updated)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save snapshot: %w", err)
	}
	kind := SaveCreated
	if updated {
		kind = SaveUpdated
	}
	return SaveResult{ID: id, Kind: kind}, nil
}

const snapshotColumns = `id, periode, snapshot_date, raw_data, processed_data,
	created_by, is_month_end, is_manual, notes, created_at`

func (p *Postgres) GetByDate(ctx context.Context, date time.Time) (*model.Snapshot, error) {
	return p.getOne(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE snapshot_date = $1
		ORDER BY is_manual ASC, created_at DESC, id DESC
		LIMIT 1`, model.DateOnly(date))
}

func (p *Postgres) GetByPeriode(ctx context.Context, periode string) (*model.Snapshot, error) {
	return p.getOne(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE periode = $1
		ORDER BY snapshot_date DESC, created_at DESC, id DESC
		LIMIT 1`, periode)
}

func (p *Postgres) GetByID(ctx context.Context, id int64) (*model.Snapshot, error) {
	return p.getOne(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE id = $1`, id)
}

func (p *Postgres) getOne(ctx context.Context, query string, arg any) (*model.Snapshot, error) {
	var s model.Snapshot
	err := p.db.QueryRowContext(ctx, query, arg).Scan(
		&s.ID, &s.Periode, &s.SnapshotDate, &s.RawData, &s.ProcessedData,
		&s.CreatedBy, &s.IsMonthEnd, &s.IsManual, &s.Notes, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &s, nil
}

func (p *Postgres) ListAvailable(ctx context.Context) (*model.AvailableSnapshots, error) {
	out := &model.AvailableSnapshots{
		Periods:       []model.PeriodSummary{},
		AutoSaveDates: []time.Time{},
		ManualSaves:   []model.ManualSave{},
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT periode, COUNT(*), MIN(snapshot_date), MAX(snapshot_date), BOOL_OR(is_month_end)
		FROM snapshots
		GROUP BY periode
		ORDER BY periode DESC`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ps model.PeriodSummary
		if err := rows.Scan(&ps.Periode, &ps.SnapshotCount, &ps.FirstDate, &ps.LastDate, &ps.HasMonthEnd); err != nil {
			return nil, fmt.Errorf("scan period summary: %w", err)
		}
		out.Periods = append(out.Periods, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}

	dateRows, err := p.db.QueryContext(ctx, `
		SELECT snapshot_date
		FROM snapshots
		WHERE NOT is_manual
		ORDER BY snapshot_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list auto-save dates: %w", err)
	}
	defer dateRows.Close()
	for dateRows.Next() {
		var d time.Time
		if err := dateRows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan auto-save date: %w", err)
		}
		out.AutoSaveDates = append(out.AutoSaveDates, d)
	}
	if err := dateRows.Err(); err != nil {
		return nil, fmt.Errorf("list auto-save dates: %w", err)
	}

	manualRows, err := p.db.QueryContext(ctx, `
		SELECT id, snapshot_date, created_by, notes, created_at
		FROM snapshots
		WHERE is_manual
		ORDER BY snapshot_date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list manual saves: %w", err)
	}
	defer manualRows.Close()
	for manualRows.Next() {
		var m model.ManualSave
		if err := manualRows.Scan(&m.ID, &m.SnapshotDate, &m.CreatedBy, &m.Notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan manual save: %w", err)
		}
		out.ManualSaves = append(out.ManualSaves, m)
	}
	if err := manualRows.Err(); err != nil {
		return nil, fmt.Errorf("list manual saves: %w", err)
	}

	return out, nil
}

func (p *Postgres) ListByPeriode(ctx context.Context, periode string) ([]model.SnapshotMeta, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, periode, snapshot_date, created_by, is_month_end, is_manual, notes, created_at
		FROM snapshots
		WHERE periode = $1
		ORDER BY snapshot_date DESC, created_at DESC, id DESC`, periode)
	if err != nil {
		return nil, fmt.Errorf("list by periode: %w", err)
	}
	defer rows.Close()

	out := []model.SnapshotMeta{}
	for rows.Next() {
		var m model.SnapshotMeta
		if err := rows.Scan(&m.ID, &m.Periode, &m.SnapshotDate, &m.CreatedBy,
			&m.IsMonthEnd, &m.IsManual, &m.Notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot meta: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list by periode: %w", err)
	}
	return out, nil
}

func (p *Postgres) DeleteByID(ctx context.Context, id int64) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete by id: %w", err)
	}
	return res.RowsAffected()
}

func (p *Postgres) DeleteByDate(ctx context.Context, date time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE snapshot_date = $1 AND NOT is_manual`,
		model.DateOnly(date))
	if err != nil {
		return 0, fmt.Errorf("delete by date: %w", err)
	}
	return res.RowsAffected()
}
