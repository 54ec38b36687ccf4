package model

import (
	"encoding/json"
	"time"
)

// Row is a single generic record returned by a source query.
type Row map[string]any

// RawData holds the merged results of all source fetches, keyed by source
// name. Every configured source is present; a failed or empty fetch yields an
// empty slice, never a missing key.
type RawData map[string][]Row

// SummaryStats are the cheap aggregate counts computed at capture time so
// listing and history views never have to re-parse raw_data.
type SummaryStats struct {
	TotalProducts         int `json:"total_products"`
	TotalWIPBatches       int `json:"total_wip_batches"`
	TotalFulfillmentLines int `json:"total_fulfillment_lines"`
}

// ProcessedData is the derived summary stored next to the raw payload.
type ProcessedData struct {
	CapturedAt    time.Time      `json:"captured_at"`
	Periode       string         `json:"periode"`
	SnapshotDate  string         `json:"snapshot_date"`
	SummaryStats  SummaryStats   `json:"summary_stats"`
	SourceCounts  map[string]int `json:"source_counts"`
	FailedSources []string       `json:"failed_sources,omitempty"`
}

// Snapshot is the durable unit: one capture of merged cross-source data for a
// given date.
type Snapshot struct {
	ID            int64           `json:"id"`
	Periode       string          `json:"periode"`
	SnapshotDate  time.Time       `json:"snapshot_date"`
	RawData       json.RawMessage `json:"raw_data"`
	ProcessedData json.RawMessage `json:"processed_data"`
	CreatedBy     string          `json:"created_by"`
	IsMonthEnd    bool            `json:"is_month_end"`
	IsManual      bool            `json:"is_manual"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Meta returns the snapshot metadata without the payload columns.
func (s *Snapshot) Meta() SnapshotMeta {
	return SnapshotMeta{
		ID:           s.ID,
		Periode:      s.Periode,
		SnapshotDate: s.SnapshotDate,
		CreatedBy:    s.CreatedBy,
		IsMonthEnd:   s.IsMonthEnd,
		IsManual:     s.IsManual,
		Notes:        s.Notes,
		CreatedAt:    s.CreatedAt,
	}
}

// SnapshotMeta is a snapshot row without raw_data/processed_data, used by the
// history listing.
type SnapshotMeta struct {
	ID           int64     `json:"id"`
	Periode      string    `json:"periode"`
	SnapshotDate time.Time `json:"snapshot_date"`
	CreatedBy    string    `json:"created_by"`
	IsMonthEnd   bool      `json:"is_month_end"`
	IsManual     bool      `json:"is_manual"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PeriodSummary is one row per periode in the availability listing.
type PeriodSummary struct {
	Periode       string    `json:"periode"`
	SnapshotCount int       `json:"snapshot_count"`
	FirstDate     time.Time `json:"first_date"`
	LastDate      time.Time `json:"last_date"`
	HasMonthEnd   bool      `json:"has_month_end"`
}

// ManualSave describes one caller-initiated snapshot in the availability
// listing.
type ManualSave struct {
	ID           int64     `json:"id"`
	SnapshotDate time.Time `json:"snapshot_date"`
	CreatedBy    string    `json:"created_by"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AvailableSnapshots is the three-view availability listing: per-period
// aggregates, automatic-save dates for calendar UIs, and manual saves with
// their provenance.
type AvailableSnapshots struct {
	Periods       []PeriodSummary `json:"periods"`
	AutoSaveDates []time.Time     `json:"auto_save_dates"`
	ManualSaves   []ManualSave    `json:"manual_saves"`
}

// Periode derives the YYYYMM grouping key from a date.
func Periode(t time.Time) string {
	return t.Format("200601")
}

// IsMonthEnd reports whether t falls on the last calendar day of its month.
func IsMonthEnd(t time.Time) bool {
	return t.AddDate(0, 0, 1).Month() != t.Month()
}

// DateOnly truncates t to midnight UTC so snapshot dates compare by calendar
// day regardless of capture time.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
