package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/supplysnap")
	t.Setenv("SNAPSHOT_SCHEDULES", "noon=12:00,evening=18:30")
	t.Setenv("SCHEDULE_MAX_RETRIES", "3")
	t.Setenv("SCHEDULE_RETRY_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)

	schedules, err := cfg.ScheduleList()
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "noon", schedules[0].Name)
	assert.Equal(t, 12, schedules[0].FireHour)
	assert.Equal(t, 0, schedules[0].FireMinute)
	assert.Equal(t, "evening", schedules[1].Name)
	assert.Equal(t, 18, schedules[1].FireHour)
	assert.Equal(t, 30, schedules[1].FireMinute)
	assert.Equal(t, 3, schedules[1].MaxRetries)
	assert.Equal(t, 5*time.Minute, schedules[1].RetryInterval)
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestScheduleListErrors(t *testing.T) {
	tests := []struct {
		name      string
		schedules string
	}{
		{"missing equals", "evening18:00"},
		{"missing colon", "evening=1800"},
		{"bad hour", "evening=25:00"},
		{"bad minute", "evening=18:61"},
		{"empty", ""},
		{"out of order", "evening=18:00,noon=12:00"},
		{"duplicate time", "a=12:00,b=12:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Schedules: tt.schedules, MaxRetries: 6, RetryInterval: time.Minute}
			_, err := cfg.ScheduleList()
			assert.Error(t, err)
		})
	}
}

func TestScheduleTag(t *testing.T) {
	assert.Equal(t, "SYSTEM_MONTHEND", Schedule{Name: "monthend"}.Tag())
	assert.Equal(t, "SYSTEM_EVENING", Schedule{Name: "evening"}.Tag())
}
