package testsupport

import (
	"path/filepath"
	"testing"

	"timeclock/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The backend and scanner are disabled unless an option enables them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Scanner.Source = "none"
	cfgVal.Backend.RefreshInterval = 0
	cfgVal.Hours.Timezone = "UTC"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBackend points the config at a test backend URL.
func WithBackend(baseURL, documentID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = baseURL
		b.cfg.Backend.DocumentID = documentID
		b.cfg.Backend.APIKey = "test-key"
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithScannerAffixes sets the scanner prefix and suffix.
func WithScannerAffixes(prefix, suffix string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scanner.Prefix = prefix
		b.cfg.Scanner.Suffix = suffix
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
