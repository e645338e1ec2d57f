package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Schedule.WorkStart != "07:00" {
		t.Errorf("expected work_start 07:00, got %s", cfg.Schedule.WorkStart)
	}
	if cfg.Schedule.WorkEnd != "22:00" {
		t.Errorf("expected work_end 22:00, got %s", cfg.Schedule.WorkEnd)
	}
	if cfg.Step() != 15*time.Minute {
		t.Errorf("expected 15m step, got %v", cfg.Step())
	}
	if cfg.Schedule.BatchLimit != 5 {
		t.Errorf("expected batch_limit 5, got %d", cfg.Schedule.BatchLimit)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", cfg.Storage.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadFrom_FileNotExists(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should return defaults
	if cfg.Schedule.WorkStart != "07:00" {
		t.Errorf("expected default work_start, got %s", cfg.Schedule.WorkStart)
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[schedule]
work_start = "08:00"
work_end = "18:00"
step_minutes = 10
batch_limit = 3
timezone = "UTC"

[suggestions]
reflection_at = "19:30"
reflection_cutoff = "20:00"

[storage]
driver = "memory"

[log]
level = "debug"
format = "json"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Schedule.WorkStart != "08:00" || cfg.Schedule.WorkEnd != "18:00" {
		t.Errorf("got window %s-%s", cfg.Schedule.WorkStart, cfg.Schedule.WorkEnd)
	}
	if cfg.Step() != 10*time.Minute {
		t.Errorf("expected 10m step, got %v", cfg.Step())
	}
	if cfg.Schedule.BatchLimit != 3 {
		t.Errorf("expected batch_limit 3, got %d", cfg.Schedule.BatchLimit)
	}
	// unset keys keep their defaults
	if cfg.Schedule.DefaultEffortMinutes != 30 || cfg.Schedule.AlignCursor {
		t.Errorf("defaults lost: %+v", cfg.Schedule)
	}
	if cfg.Suggestions.ReflectionAt != "19:30" {
		t.Errorf("expected reflection_at 19:30, got %s", cfg.Suggestions.ReflectionAt)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Log.Format)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("got location %v, err %v", loc, err)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[schedule]
work_start = "08:00"
work_end = "16:00"

[storage]
db_path = "/tmp/test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set env vars
	t.Setenv("LIFEPLAN_WORK_START", "10:00")
	t.Setenv("LIFEPLAN_BATCH_LIMIT", "8")
	t.Setenv("LIFEPLAN_ALIGN_CURSOR", "true")
	t.Setenv("LIFEPLAN_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Env should override file
	if cfg.Schedule.WorkStart != "10:00" {
		t.Errorf("expected work_start 10:00 from env, got %s", cfg.Schedule.WorkStart)
	}
	// File value should be kept when no env override
	if cfg.Schedule.WorkEnd != "16:00" {
		t.Errorf("expected work_end 16:00 from file, got %s", cfg.Schedule.WorkEnd)
	}
	// Env should override default
	if cfg.Schedule.BatchLimit != 8 {
		t.Errorf("expected batch_limit 8 from env, got %d", cfg.Schedule.BatchLimit)
	}
	if !cfg.Schedule.AlignCursor {
		t.Error("expected align_cursor true from env")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level warn from env, got %s", cfg.Log.Level)
	}
}

func TestLoadFrom_EnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	// variables already set in the environment win over the .env file
	t.Setenv("LIFEPLAN_WORK_END", "20:00")
	// Setenv restores the variable on cleanup; unset it so the .env value applies
	t.Setenv("LIFEPLAN_WORK_START", "")
	_ = os.Unsetenv("LIFEPLAN_WORK_START")

	env := "LIFEPLAN_WORK_START=09:00\nLIFEPLAN_WORK_END=21:00\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Schedule.WorkStart != "09:00" {
		t.Errorf("expected work_start 09:00 from .env, got %s", cfg.Schedule.WorkStart)
	}
	if cfg.Schedule.WorkEnd != "20:00" {
		t.Errorf("expected work_end 20:00 from environment, got %s", cfg.Schedule.WorkEnd)
	}
}

func TestLoadFrom_BadEnvInt(t *testing.T) {
	t.Setenv("LIFEPLAN_STEP_MINUTES", "fifteen")

	if _, err := LoadFrom("/nonexistent/path/config.toml"); err == nil {
		t.Error("expected error for non-numeric step")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad work start", mutate: func(c *Config) { c.Schedule.WorkStart = "7:00" }},
		{name: "start after end", mutate: func(c *Config) { c.Schedule.WorkStart, c.Schedule.WorkEnd = "18:00", "09:00" }},
		{name: "zero step", mutate: func(c *Config) { c.Schedule.StepMinutes = 0 }},
		{name: "zero batch", mutate: func(c *Config) { c.Schedule.BatchLimit = 0 }},
		{name: "zero effort", mutate: func(c *Config) { c.Schedule.DefaultEffortMinutes = 0 }},
		{name: "unknown timezone", mutate: func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{name: "reflection after cutoff", mutate: func(c *Config) { c.Suggestions.ReflectionAt = "21:30" }},
		{name: "bad cron", mutate: func(c *Config) { c.Suggestions.EvaluateCron = "every minute" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.DBPath = "" }},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_MemoryNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = DriverMemory
	cfg.Storage.DBPath = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test.db", filepath.Join(home, "test.db")},
		{"/absolute/path.db", "/absolute/path.db"},
		{"relative/path.db", "relative/path.db"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := expandPath(tc.input)
			if got != tc.want {
				t.Errorf("expandPath(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.Schedule.WorkStart = "07:30"
	cfg.Schedule.WorkEnd = "15:30"
	cfg.Schedule.StepMinutes = 5
	cfg.Storage.DBPath = filepath.Join(tmpDir, "lifeplan.db")

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.Schedule.WorkStart != "07:30" {
		t.Errorf("expected work_start 07:30, got %s", loaded.Schedule.WorkStart)
	}
	if loaded.Schedule.WorkEnd != "15:30" {
		t.Errorf("expected work_end 15:30, got %s", loaded.Schedule.WorkEnd)
	}
	if loaded.Schedule.StepMinutes != 5 {
		t.Errorf("expected step 5, got %d", loaded.Schedule.StepMinutes)
	}
}
