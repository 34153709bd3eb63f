package demo

import (
	"fmt"
	"strconv"
	"strings"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	Students          int
	CoursesPerStudent int
	Seed              int64
	// ParquetDir, when set, also writes the dataset as parquet files there.
	ParquetDir string
	// SkipDatabase leaves the engine untouched and only exports parquet.
	SkipDatabase bool
}

func DefaultConfig() Config {
	return Config{
		Students:          60,
		CoursesPerStudent: 3,
		Seed:              7,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyInt(lookup, "QUERYCHAT_DEMO_STUDENTS", &cfg.Students); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYCHAT_DEMO_COURSES_PER_STUDENT", &cfg.CoursesPerStudent); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "QUERYCHAT_DEMO_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	if raw, ok := lookup("QUERYCHAT_DEMO_PARQUET_DIR"); ok {
		cfg.ParquetDir = strings.TrimSpace(raw)
	}
	if raw, ok := lookup("QUERYCHAT_DEMO_SKIP_DATABASE"); ok && strings.TrimSpace(raw) != "" {
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("invalid QUERYCHAT_DEMO_SKIP_DATABASE: %w", err)
		}
		cfg.SkipDatabase = v
	}

	if cfg.Students <= 0 {
		return Config{}, fmt.Errorf("QUERYCHAT_DEMO_STUDENTS must be > 0")
	}
	if cfg.CoursesPerStudent <= 0 || cfg.CoursesPerStudent > len(courseCatalog) {
		return Config{}, fmt.Errorf("QUERYCHAT_DEMO_COURSES_PER_STUDENT must be between 1 and %d", len(courseCatalog))
	}
	if cfg.SkipDatabase && cfg.ParquetDir == "" {
		return Config{}, fmt.Errorf("QUERYCHAT_DEMO_PARQUET_DIR is required when the database is skipped")
	}
	return cfg, nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
