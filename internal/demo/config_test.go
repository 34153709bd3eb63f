package demo

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(nil))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("cfg = %#v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"QUERYCHAT_DEMO_STUDENTS":            "12",
		"QUERYCHAT_DEMO_COURSES_PER_STUDENT": "2",
		"QUERYCHAT_DEMO_SEED":                "99",
		"QUERYCHAT_DEMO_PARQUET_DIR":         " /tmp/lms ",
		"QUERYCHAT_DEMO_SKIP_DATABASE":       "true",
	}))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.Students != 12 || cfg.CoursesPerStudent != 2 || cfg.Seed != 99 {
		t.Fatalf("cfg = %#v", cfg)
	}
	if cfg.ParquetDir != "/tmp/lms" || !cfg.SkipDatabase {
		t.Fatalf("cfg = %#v", cfg)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"QUERYCHAT_DEMO_STUDENTS": "0"},
		{"QUERYCHAT_DEMO_STUDENTS": "many"},
		{"QUERYCHAT_DEMO_COURSES_PER_STUDENT": "40"},
		{"QUERYCHAT_DEMO_SEED": "x"},
		{"QUERYCHAT_DEMO_SKIP_DATABASE": "maybe"},
		{"QUERYCHAT_DEMO_SKIP_DATABASE": "true"},
	}
	for _, env := range tests {
		if _, err := LoadConfigFromEnv(mapLookup(env)); err == nil {
			t.Fatalf("expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
