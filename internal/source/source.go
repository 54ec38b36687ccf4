package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/supplysnap/backend/internal/model"
)

// FetchFunc fetches one source's records. Each source fails independently;
// the aggregator decides what to do with the error.
type FetchFunc func(ctx context.Context) ([]model.Row, error)

// Source pairs a source name with its fetcher.
type Source struct {
	Name  string
	Fetch FetchFunc
}

// Fetcher holds the shared database handle for all source queries.
type Fetcher struct {
	db *sql.DB
}

func New(db *sql.DB) *Fetcher {
	return &Fetcher{db: db}
}

// Registry returns all sources in their canonical order. The aggregator fans
// out over this list; every name here becomes a key in the raw payload.
func (f *Fetcher) Registry() []Source {
	return []Source{
		{SourceWorkInProgress, f.FetchWorkInProgress},
		{SourceOrderFulfillment, f.FetchOrderFulfillment},
		{SourceCycleTime, f.FetchCycleTime},
		{SourceForecast, f.FetchForecast},
		{SourceInventory, f.FetchInventory},
		{SourceDailySales, f.FetchDailySales},
		{SourceLostSales, f.FetchLostSales},
		{SourceOrderToAvailability, f.FetchOrderToAvailability},
		{SourceMaterialMaster, f.FetchMaterialMaster},
		{SourceBatchExpiry, f.FetchBatchExpiry},
	}
}

func (f *Fetcher) FetchWorkInProgress(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryWorkInProgress)
}

func (f *Fetcher) FetchOrderFulfillment(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryOrderFulfillment)
}

func (f *Fetcher) FetchCycleTime(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryCycleTime)
}

func (f *Fetcher) FetchForecast(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryForecast)
}

func (f *Fetcher) FetchInventory(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryInventory)
}

func (f *Fetcher) FetchDailySales(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryDailySales)
}

func (f *Fetcher) FetchLostSales(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryLostSales)
}

func (f *Fetcher) FetchOrderToAvailability(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryOrderToAvailability)
}

func (f *Fetcher) FetchMaterialMaster(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryMaterialMaster)
}

func (f *Fetcher) FetchBatchExpiry(ctx context.Context) ([]model.Row, error) {
	return f.query(ctx, queryBatchExpiry)
}

// query runs one source SELECT and scans every row into a generic map keyed
// by column name.
func (f *Fetcher) query(ctx context.Context, q string) ([]model.Row, error) {
	rows, err := f.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("source query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("source columns: %w", err)
	}

	out := []model.Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("source scan: %w", err)
		}
		rec := model.Row{}
		for i, c := range cols {
			// lib/pq returns text columns as []byte
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = vals[i]
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source rows: %w", err)
	}
	return out, nil
}
