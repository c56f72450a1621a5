package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// loadFromEnv overrides config from DONEZO_* environment variables.
func loadFromEnv(cfg *Config) error {
	strs := []struct {
		name   string
		target *string
	}{
		{"DONEZO_DATA_DIR", &cfg.DataDir},
		{"DONEZO_BACKEND", &cfg.Backend},
		{"DONEZO_URL", &cfg.Supabase.URL},
		{"DONEZO_ANON_KEY", &cfg.Supabase.AnonKey},
		{"DONEZO_DSN", &cfg.SQL.DSN},
		{"DONEZO_USER", &cfg.SQL.User},
		{"DONEZO_LOG_LEVEL", &cfg.Log.Level},
		{"DONEZO_LOG_FORMAT", &cfg.Log.Format},
		{"DONEZO_LOG_FILE", &cfg.Log.File},
		{"DONEZO_THEME", &cfg.Theme},
	}
	for _, s := range strs {
		if v := os.Getenv(s.name); v != "" {
			*s.target = v
		}
	}

	if v := os.Getenv("DONEZO_SEED_SAMPLES"); v != "" {
		b, err := boolFromString(v)
		if err != nil {
			return fmt.Errorf("DONEZO_SEED_SAMPLES: %w", err)
		}
		cfg.SeedSamples = b
	}
	if v := os.Getenv("DONEZO_SMART_PRIORITIZE"); v != "" {
		b, err := boolFromString(v)
		if err != nil {
			return fmt.Errorf("DONEZO_SMART_PRIORITIZE: %w", err)
		}
		cfg.Features.SmartPrioritize = b
	}
	if v := os.Getenv("DONEZO_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DONEZO_TIMEOUT: %w", err)
		}
		cfg.Timeout = Duration{d}
	}
	return nil
}

func boolFromString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
