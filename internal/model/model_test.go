package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriode(t *testing.T) {
	assert.Equal(t, "202401", Periode(date(2024, time.January, 15)))
	assert.Equal(t, "202412", Periode(date(2024, time.December, 1)))
	assert.Equal(t, "199909", Periode(date(1999, time.September, 30)))
}

func TestIsMonthEnd(t *testing.T) {
	tests := []struct {
		name string
		d    time.Time
		want bool
	}{
		{"28-day month end", date(2023, time.February, 28), true},
		{"28-day month not end", date(2023, time.February, 27), false},
		{"29-day month end", date(2024, time.February, 29), true},
		{"29-day feb 28 not end", date(2024, time.February, 28), false},
		{"30-day month end", date(2024, time.April, 30), true},
		{"30-day month not end", date(2024, time.April, 29), false},
		{"31-day month end", date(2024, time.January, 31), true},
		{"31-day month not end", date(2024, time.January, 30), false},
		{"year end", date(2024, time.December, 31), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMonthEnd(tt.d))
		})
	}
}

func TestDateOnly(t *testing.T) {
	got := DateOnly(time.Date(2024, time.March, 5, 18, 42, 7, 99, time.UTC))
	assert.Equal(t, date(2024, time.March, 5), got)
}

func TestSnapshotMeta(t *testing.T) {
	s := &Snapshot{
		ID:           7,
		Periode:      "202403",
		SnapshotDate: date(2024, time.March, 31),
		RawData:      []byte(`{"inventory":[]}`),
		CreatedBy:    "SYSTEM_EVENING",
		IsMonthEnd:   true,
		Notes:        "quarter close",
	}
	m := s.Meta()
	assert.Equal(t, int64(7), m.ID)
	assert.Equal(t, "202403", m.Periode)
	assert.True(t, m.IsMonthEnd)
	assert.Equal(t, "quarter close", m.Notes)
}
