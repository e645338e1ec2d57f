// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	Schedule    ScheduleConfig    `toml:"schedule"`
	Suggestions SuggestionsConfig `toml:"suggestions"`
	Storage     StorageConfig     `toml:"storage"`
	Log         LogConfig         `toml:"log"`
	Server      ServerConfig      `toml:"server"`
}

// ScheduleConfig holds the auto-planner settings.
type ScheduleConfig struct {
	WorkStart            string `toml:"work_start"`             // e.g., "07:00"
	WorkEnd              string `toml:"work_end"`               // e.g., "22:00"
	StepMinutes          int    `toml:"step_minutes"`           // slot scan granularity
	BatchLimit           int    `toml:"batch_limit"`            // tasks considered per run
	DefaultEffortMinutes int    `toml:"default_effort_minutes"` // used when a task has no effort
	Timezone             string `toml:"timezone"`               // "Local" or an IANA name
	AlignCursor          bool   `toml:"align_cursor"`           // round the start of the window up to the step grid
}

// SuggestionsConfig holds the suggestion rule settings.
type SuggestionsConfig struct {
	ReflectionAt     string `toml:"reflection_at"`     // e.g., "20:30"
	ReflectionCutoff string `toml:"reflection_cutoff"` // e.g., "21:00"
	EvaluateCron     string `toml:"evaluate_cron"`     // standard 5-field cron spec
}

// StorageConfig holds database settings.
type StorageConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "memory"
	DBPath string `toml:"db_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	AuthToken string `toml:"auth_token"` // empty disables auth
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			WorkStart:            "07:00",
			WorkEnd:              "22:00",
			StepMinutes:          15,
			BatchLimit:           5,
			DefaultEffortMinutes: 30,
			Timezone:             "Local",
		},
		Suggestions: SuggestionsConfig{
			ReflectionAt:     "20:30",
			ReflectionCutoff: "21:00",
			EvaluateCron:     "*/15 * * * *",
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			DBPath: defaultDBPath(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7788",
		},
	}
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lifeplan.db"
	}
	return filepath.Join(home, ".local", "share", "lifeplan", "lifeplan.db")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "lifeplan", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
// Env overrides may come from a .env file in the working directory or next to the config file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	// Try to load from file (not an error if it doesn't exist)
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	loadEnvFiles(filepath.Dir(path))

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadEnvFiles loads .env files without overriding variables already set.
func loadEnvFiles(configDir string) {
	var files []string
	for _, f := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(f); err == nil {
			files = append(files, f)
		}
	}
	if len(files) > 0 {
		_ = godotenv.Load(files...) // optional
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Schedule.WorkStart, "LIFEPLAN_WORK_START")
	setString(&cfg.Schedule.WorkEnd, "LIFEPLAN_WORK_END")
	setString(&cfg.Schedule.Timezone, "LIFEPLAN_TIMEZONE")
	if err := setInt(&cfg.Schedule.StepMinutes, "LIFEPLAN_STEP_MINUTES"); err != nil {
		return err
	}
	if err := setInt(&cfg.Schedule.BatchLimit, "LIFEPLAN_BATCH_LIMIT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Schedule.DefaultEffortMinutes, "LIFEPLAN_DEFAULT_EFFORT_MINUTES"); err != nil {
		return err
	}
	if err := setBool(&cfg.Schedule.AlignCursor, "LIFEPLAN_ALIGN_CURSOR"); err != nil {
		return err
	}

	setString(&cfg.Suggestions.ReflectionAt, "LIFEPLAN_REFLECTION_AT")
	setString(&cfg.Suggestions.ReflectionCutoff, "LIFEPLAN_REFLECTION_CUTOFF")
	setString(&cfg.Suggestions.EvaluateCron, "LIFEPLAN_EVALUATE_CRON")

	setString(&cfg.Storage.Driver, "LIFEPLAN_STORAGE_DRIVER")
	setString(&cfg.Storage.DBPath, "LIFEPLAN_DB_PATH")

	setString(&cfg.Log.Level, "LIFEPLAN_LOG_LEVEL")
	setString(&cfg.Log.Format, "LIFEPLAN_LOG_FORMAT")

	setString(&cfg.Server.Addr, "LIFEPLAN_ADDR")
	setString(&cfg.Server.AuthToken, "LIFEPLAN_AUTH_TOKEN")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	*dst = b
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	start, err := dateutil.ParseClock(c.Schedule.WorkStart)
	if err != nil {
		return fmt.Errorf("work_start: %w", err)
	}
	end, err := dateutil.ParseClock(c.Schedule.WorkEnd)
	if err != nil {
		return fmt.Errorf("work_end: %w", err)
	}
	if start >= end {
		return errors.New("work_start must be before work_end")
	}
	if c.Schedule.StepMinutes <= 0 {
		return errors.New("step_minutes must be positive")
	}
	if c.Schedule.BatchLimit <= 0 {
		return errors.New("batch_limit must be positive")
	}
	if c.Schedule.DefaultEffortMinutes <= 0 {
		return errors.New("default_effort_minutes must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	at, err := dateutil.ParseClock(c.Suggestions.ReflectionAt)
	if err != nil {
		return fmt.Errorf("reflection_at: %w", err)
	}
	cutoff, err := dateutil.ParseClock(c.Suggestions.ReflectionCutoff)
	if err != nil {
		return fmt.Errorf("reflection_cutoff: %w", err)
	}
	if at > cutoff {
		return errors.New("reflection_at must not be after reflection_cutoff")
	}
	if c.Suggestions.EvaluateCron != "" {
		if _, err := cron.ParseStandard(c.Suggestions.EvaluateCron); err != nil {
			return fmt.Errorf("evaluate_cron: %w", err)
		}
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.DBPath == "" {
			return errors.New("db_path must be set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Schedule.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// Step returns the slot scan granularity.
func (c *Config) Step() time.Duration {
	return time.Duration(c.Schedule.StepMinutes) * time.Minute
}

// DefaultEffort returns the effort used for tasks without one.
func (c *Config) DefaultEffort() time.Duration {
	return time.Duration(c.Schedule.DefaultEffortMinutes) * time.Minute
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
