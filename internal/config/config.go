package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir  string `toml:"log_dir"`
	DataDir string `toml:"data_dir"`
}

// Backend contains connection settings for the Grist document holding the
// worker roster and the timeclock hours table.
type Backend struct {
	BaseURL         string `toml:"base_url"`
	APIKey          string `toml:"api_key"`
	DocumentID      string `toml:"document_id"`
	WorkersTable    string `toml:"workers_table"`
	HoursTable      string `toml:"hours_table"`
	RequestTimeout  int    `toml:"request_timeout"`
	HistoryDays     int    `toml:"history_days"`
	RefreshInterval int    `toml:"refresh_interval"`
	Source          string `toml:"source"`
}

// Scanner contains badge scanner input settings.
type Scanner struct {
	Source    string `toml:"source"`
	Device    string `toml:"device"`
	Grab      bool   `toml:"grab"`
	Prefix    string `toml:"prefix"`
	Suffix    string `toml:"suffix"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// Roster contains worker list interaction settings.
type Roster struct {
	ConfirmWindowMS int    `toml:"confirm_window_ms"`
	MatchField      string `toml:"match_field"`
	NotifySeconds   int    `toml:"notify_seconds"`
	Locale          string `toml:"locale"`
}

// Hours contains reporting week and AM/PM split settings.
type Hours struct {
	PeriodBoundary   string   `toml:"period_boundary"`
	WeekStart        string   `toml:"week_start"`
	ExcludedWeekdays []string `toml:"excluded_weekdays"`
	Timezone         string   `toml:"timezone"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	UnmatchedScans bool   `toml:"unmatched_scans"`
	SubmitFailures bool   `toml:"submit_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the timeclock.
//
// Configuration sections by subsystem:
//   - Paths: log and data directories
//   - Backend: Grist document holding workers and scan history
//   - Scanner: badge scanner device and framing
//   - Roster: double-select window and badge matching
//   - Hours: reporting week layout and AM/PM boundary
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Backend       Backend       `toml:"backend"`
	Scanner       Scanner       `toml:"scanner"`
	Roster        Roster        `toml:"roster"`
	Hours         Hours         `toml:"hours"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}
	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("timeclock.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath is the daemon's JSON-RPC socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "timeclock.sock")
}

// LockPath is the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "timeclock.lock")
}

// PIDPath records the running daemon's process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "timeclock.pid")
}

// DatabasePath is the local scan journal.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "timeclock.db")
}

// BackendConfigured reports whether a remote backend is set up.
func (c *Config) BackendConfigured() bool {
	return c.Backend.BaseURL != "" && c.Backend.DocumentID != ""
}

// BackendTimeout returns the per-request timeout for backend calls.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

// RefreshInterval returns how often the daemon reloads from the backend.
// Zero disables periodic refresh.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Backend.RefreshInterval) * time.Second
}

// ScanTimeout returns the maximum gap between keystrokes of one scan.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Scanner.TimeoutMS) * time.Millisecond
}

// ConfirmWindow returns the double-select window.
func (c *Config) ConfirmWindow() time.Duration {
	return time.Duration(c.Roster.ConfirmWindowMS) * time.Millisecond
}

// NotifyWindow returns how long a scan banner stays current.
func (c *Config) NotifyWindow() time.Duration {
	return time.Duration(c.Roster.NotifySeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML. The API key is
// redacted.
func (c *Config) Encode() ([]byte, error) {
	clone := *c
	if clone.Backend.APIKey != "" {
		clone.Backend.APIKey = "********"
	}
	clone.Hours.ExcludedWeekdays = append([]string(nil), c.Hours.ExcludedWeekdays...)
	data, err := toml.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
