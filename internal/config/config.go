package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Schedule is one named daily fire time. Static configuration, never
// persisted.
type Schedule struct {
	Name          string
	FireHour      int
	FireMinute    int
	MaxRetries    int
	RetryInterval time.Duration
}

// Config holds all process configuration, loaded from the environment.
type Config struct {
	DatabaseURL    string        `env:"DATABASE_URL,required"`
	Port           string        `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"https://dashboard.supplysnap.io"`
	Schedules      string        `env:"SNAPSHOT_SCHEDULES" envDefault:"evening=18:00"`
	MaxRetries     int           `env:"SCHEDULE_MAX_RETRIES" envDefault:"6"`
	RetryInterval  time.Duration `env:"SCHEDULE_RETRY_INTERVAL" envDefault:"10m"`
	CheckInterval  time.Duration `env:"SCHEDULE_CHECK_INTERVAL" envDefault:"1m"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.ScheduleList(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ScheduleList parses the SNAPSHOT_SCHEDULES value, a comma-separated list of
// name=HH:MM entries ordered by fire time, e.g. "noon=12:00,evening=18:00".
// Every schedule shares the configured retry settings.
func (c *Config) ScheduleList() ([]Schedule, error) {
	var out []Schedule
	for _, entry := range strings.Split(c.Schedules, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, at, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid schedule %q, expected name=HH:MM", entry)
		}
		hh, mm, ok := strings.Cut(at, ":")
		if !ok {
			return nil, fmt.Errorf("invalid schedule time %q, expected HH:MM", at)
		}
		hour, err := strconv.Atoi(hh)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid schedule hour %q", hh)
		}
		minute, err := strconv.Atoi(mm)
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("invalid schedule minute %q", mm)
		}
		out = append(out, Schedule{
			Name:          strings.TrimSpace(name),
			FireHour:      hour,
			FireMinute:    minute,
			MaxRetries:    c.MaxRetries,
			RetryInterval: c.RetryInterval,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no schedules configured")
	}
	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1], out[i]
		if cur.FireHour*60+cur.FireMinute <= prev.FireHour*60+prev.FireMinute {
			return nil, fmt.Errorf("schedule %q must fire after %q", cur.Name, prev.Name)
		}
	}
	return out, nil
}

// Tag returns the provenance string recorded on automatic saves made by this
// schedule.
func (s Schedule) Tag() string {
	return "SYSTEM_" + strings.ToUpper(s.Name)
}
