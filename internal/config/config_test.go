package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"drq/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

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

	wantData := filepath.Join(tempHome, ".local", "share", "drq")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "drq.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Queue.MaxAttempts != 5 {
		t.Fatalf("expected 5 max attempts, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.BaseDelay() != time.Second {
		t.Fatalf("expected 1s base delay, got %s", cfg.BaseDelay())
	}
	if cfg.FailedRetention() != time.Hour {
		t.Fatalf("expected 1h failed retention, got %s", cfg.FailedRetention())
	}
	if cfg.Sync.BatchSize != 10 {
		t.Fatalf("expected batch size 10, got %d", cfg.Sync.BatchSize)
	}
	if cfg.CheckTimeout() != 5*time.Second || cfg.RequestTimeout() != 10*time.Second || cfg.BatchTimeout() != 8*time.Second {
		t.Fatalf("unexpected sync timeouts: %s %s %s", cfg.CheckTimeout(), cfg.RequestTimeout(), cfg.BatchTimeout())
	}
	if cfg.API.Bind != "127.0.0.1:7390" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
}

func TestLoadCustomPathOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[paths]
data_dir = "~/custom/data"

[queue]
backend = "FILE"
max_attempts = 3
base_delay_ms = 250

[sync]
endpoint = "http://localhost:9000/venues"
batch_size = 25
schedule = "*/5 * * * *"

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "custom", "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Queue.Backend != "file" {
		t.Fatalf("expected backend normalized to file, got %q", cfg.Queue.Backend)
	}
	if cfg.Queue.MaxAttempts != 3 || cfg.BaseDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected retry policy: attempts=%d base=%s", cfg.Queue.MaxAttempts, cfg.BaseDelay())
	}
	if cfg.Sync.BatchSize != 25 {
		t.Fatalf("unexpected batch size: %d", cfg.Sync.BatchSize)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("DRQ_SYNC_ENDPOINT", "http://sync.internal:8080/api")
	t.Setenv("DRQ_QUEUE_MAX_ATTEMPTS", "7")
	t.Setenv("DRQ_LOG_LEVEL", "debug")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sync.Endpoint != "http://sync.internal:8080/api" {
		t.Fatalf("expected endpoint from env, got %q", cfg.Sync.Endpoint)
	}
	if cfg.Queue.MaxAttempts != 7 {
		t.Fatalf("expected max attempts from env, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level from env, got %q", cfg.Logging.Level)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	envPath := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(envPath, []byte("DRQ_API_BIND=127.0.0.1:9999\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(config.DotEnvVar, envPath)
	t.Cleanup(func() { os.Unsetenv("DRQ_API_BIND") })

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Bind != "127.0.0.1:9999" {
		t.Fatalf("expected bind from .env, got %q", cfg.API.Bind)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"backend", func(c *config.Config) { c.Queue.Backend = "postgres" }, "queue.backend"},
		{"attempts", func(c *config.Config) { c.Queue.MaxAttempts = 0 }, "queue.max_attempts"},
		{"endpoint", func(c *config.Config) { c.Sync.Endpoint = "ftp://example.com" }, "sync.endpoint"},
		{"batch", func(c *config.Config) { c.Sync.BatchSize = 0 }, "sync.batch_size"},
		{"schedule", func(c *config.Config) { c.Sync.Schedule = "every so often" }, "sync.schedule"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if decoded.Queue.MaxAttempts != config.Default().Queue.MaxAttempts {
		t.Fatalf("sample max attempts drifted from defaults: %d", decoded.Queue.MaxAttempts)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
}

func TestEnsureDirectoriesCreatesDataAndLogDirs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
