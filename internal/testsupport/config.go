package testsupport

import (
	"path/filepath"
	"testing"

	"drq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Sync.Endpoint = "http://127.0.0.1:1/"
	cfgVal.Sync.WatchNetwork = false
	cfgVal.Sync.SyncOnStart = false
	cfgVal.Playback.HoldSeconds = 0

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

// WithEndpoint points the sync client at url (typically an httptest server).
func WithEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.Endpoint = url
	}
}

// WithBackend selects the queue snapshot backend.
func WithBackend(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Backend = name
	}
}

// WithMediaDir enables file-backed playback rooted at a fresh directory.
func WithMediaDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Playback.MediaDir = filepath.Join(b.baseDir, "media")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
