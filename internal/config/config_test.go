package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"timeclock/internal/config"
)

func clearBackendEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TIMECLOCK_API_KEY", "TIMECLOCK_BASE_URL", "TIMECLOCK_DOCUMENT_ID", "TIMECLOCK_NTFY_TOPIC",
		"GRIST_API_KEY", "GRIST_BASE_URL", "GRIST_DOCUMENT_ID",
	} {
		if value, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, value) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearBackendEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "timeclock", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.BackendConfigured() {
		t.Fatal("expected backend unconfigured by default")
	}
	if cfg.ScanTimeout() != 50*time.Millisecond {
		t.Fatalf("unexpected scan timeout %s", cfg.ScanTimeout())
	}
	if cfg.ConfirmWindow() != 600*time.Millisecond {
		t.Fatalf("unexpected confirm window %s", cfg.ConfirmWindow())
	}
	if cfg.Backend.HistoryDays != 8 {
		t.Fatalf("unexpected history days %d", cfg.Backend.HistoryDays)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.DataDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
	if filepath.Dir(cfg.DatabasePath()) != cfg.Paths.DataDir {
		t.Fatalf("database should live in data dir, got %q", cfg.DatabasePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearBackendEnv(t)
	configPath := filepath.Join(t.TempDir(), "timeclock.toml")

	type payload struct {
		Backend struct {
			BaseURL    string `toml:"base_url"`
			DocumentID string `toml:"document_id"`
		} `toml:"backend"`
		Scanner struct {
			Source string `toml:"source"`
			Prefix string `toml:"prefix"`
		} `toml:"scanner"`
		Hours struct {
			PeriodBoundary   string   `toml:"period_boundary"`
			WeekStart        string   `toml:"week_start"`
			ExcludedWeekdays []string `toml:"excluded_weekdays"`
			Timezone         string   `toml:"timezone"`
		} `toml:"hours"`
	}
	custom := payload{}
	custom.Backend.BaseURL = "https://grist.example.com/"
	custom.Backend.DocumentID = "doc123"
	custom.Scanner.Source = " STDIN "
	custom.Scanner.Prefix = "%"
	custom.Hours.PeriodBoundary = "12:00"
	custom.Hours.WeekStart = "Mon"
	custom.Hours.ExcludedWeekdays = []string{"Sunday", "sunday", " saturday "}
	custom.Hours.Timezone = "America/Chicago"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution %q exists=%v", resolved, exists)
	}
	if cfg.Backend.BaseURL != "https://grist.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if !cfg.BackendConfigured() {
		t.Fatal("expected backend configured")
	}
	if cfg.Scanner.Source != "stdin" || cfg.Scanner.Prefix != "%" {
		t.Fatalf("unexpected scanner config %+v", cfg.Scanner)
	}

	opts, err := cfg.WeekOptions()
	if err != nil {
		t.Fatalf("WeekOptions: %v", err)
	}
	if opts.Boundary.Hour != 12 || opts.Boundary.Minute != 0 {
		t.Fatalf("unexpected boundary %v", opts.Boundary)
	}
	if opts.WeekStart != time.Monday {
		t.Fatalf("unexpected week start %v", opts.WeekStart)
	}
	if len(opts.Excluded) != 2 || opts.Excluded[0] != time.Sunday || opts.Excluded[1] != time.Saturday {
		t.Fatalf("unexpected excluded days %v", opts.Excluded)
	}
	if opts.Location.String() != "America/Chicago" {
		t.Fatalf("unexpected location %v", opts.Location)
	}
}

func TestEnvOverridesBackendCredentials(t *testing.T) {
	clearBackendEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "timeclock.toml")
	if err := os.WriteFile(configPath, []byte("[backend]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	env := "GRIST_BASE_URL=https://legacy.example.com\nTIMECLOCK_DOCUMENT_ID=from-dotenv\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("TIMECLOCK_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.APIKey != "env-key" {
		t.Fatalf("expected env api key, got %q", cfg.Backend.APIKey)
	}
	if cfg.Backend.BaseURL != "https://legacy.example.com" {
		t.Fatalf("expected legacy base url from .env, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.DocumentID != "from-dotenv" {
		t.Fatalf("expected document id from .env, got %q", cfg.Backend.DocumentID)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"half backend", func(c *config.Config) { c.Backend.DocumentID = "doc" }, "backend.base_url"},
		{"relative url", func(c *config.Config) { c.Backend.BaseURL = "grist"; c.Backend.DocumentID = "doc" }, "absolute URL"},
		{"scanner source", func(c *config.Config) { c.Scanner.Source = "bluetooth" }, "scanner.source"},
		{"match field", func(c *config.Config) { c.Roster.MatchField = "email" }, "roster.match_field"},
		{"boundary", func(c *config.Config) { c.Hours.PeriodBoundary = "25:00" }, "hours.period_boundary"},
		{"week start", func(c *config.Config) { c.Hours.WeekStart = "funday" }, "hours.week_start"},
		{"timezone", func(c *config.Config) { c.Hours.Timezone = "Mars/Olympus" }, "hours.timezone"},
		{"all excluded", func(c *config.Config) {
			c.Hours.ExcludedWeekdays = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}
		}, "at least one day"},
		{"log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	clearBackendEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Roster.NotifySeconds != 5 {
		t.Fatalf("unexpected notify seconds %d", cfg.Roster.NotifySeconds)
	}
}

func TestEncodeRedactsAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.APIKey = "secret"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Fatalf("api key leaked: %s", data)
	}
	if cfg.Backend.APIKey != "secret" {
		t.Fatal("Encode must not mutate the receiver")
	}
}
