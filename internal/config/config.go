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
	DataDir string `toml:"data_dir" env:"DATA_DIR"`
	LogDir  string `toml:"log_dir" env:"LOG_DIR"`
}

// Queue contains retry policy and durable storage settings shared by every queue.
type Queue struct {
	Backend                   string `toml:"backend" env:"QUEUE_BACKEND"`
	MaxAttempts               int    `toml:"max_attempts" env:"QUEUE_MAX_ATTEMPTS"`
	BaseDelayMillis           int    `toml:"base_delay_ms" env:"QUEUE_BASE_DELAY_MS"`
	FailedRetentionMinutes    int    `toml:"failed_retention_minutes"`
	SucceededRetentionMinutes int    `toml:"succeeded_retention_minutes"`
	RedisAddr                 string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword             string `toml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB                   int    `toml:"redis_db"`
	RedisPrefix               string `toml:"redis_prefix"`
}

// Sync contains settings for the remote collaborator and the reconciliation sweep.
type Sync struct {
	Endpoint              string `toml:"endpoint" env:"SYNC_ENDPOINT"`
	CheckTimeoutSeconds   int    `toml:"check_timeout_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	BatchTimeoutSeconds   int    `toml:"batch_timeout_seconds"`
	BatchSize             int    `toml:"batch_size"`
	Schedule              string `toml:"schedule" env:"SYNC_SCHEDULE"`
	WatchNetwork          bool   `toml:"watch_network"`
	SyncOnStart           bool   `toml:"sync_on_start"`
}

// Playback contains settings for the song catalog and media resources.
type Playback struct {
	CatalogPath string `toml:"catalog_path" env:"CATALOG_PATH"`
	MediaDir    string `toml:"media_dir" env:"MEDIA_DIR"`
	HoldSeconds int    `toml:"hold_seconds"`
}

// API contains settings for the daemon HTTP API.
type API struct {
	Bind    string `toml:"bind" env:"API_BIND"`
	Token   string `toml:"token" env:"API_TOKEN"`
	Metrics bool   `toml:"metrics"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" env:"NTFY_TOPIC"`
	RequestTimeout int    `toml:"request_timeout"`
	EntryFailures  bool   `toml:"entry_failures"`
	SweepFailures  bool   `toml:"sweep_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"LOG_FORMAT"`
	Level  string `toml:"level" env:"LOG_LEVEL"`
}

// Config encapsulates all configuration values for drq.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Queue: retry policy, retention windows, storage backend
//   - Sync: remote endpoint, timeouts, sweep batch and schedule
//   - Playback: song catalog and media directory
//   - API: daemon bind address and metrics exposure
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Queue         Queue         `toml:"queue"`
	Sync          Sync          `toml:"sync"`
	Playback      Playback      `toml:"playback"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file is decoded. The returned config has all
// path fields expanded and normalized.
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

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

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

	projectPath, err := filepath.Abs("drq.toml")
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
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "drq.db")
}

// SnapshotDir returns the directory used by the file queue backend.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.Paths.DataDir, "queues")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "drqd.lock")
}

// BaseDelay returns the first backoff delay.
func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.Queue.BaseDelayMillis) * time.Millisecond
}

// FailedRetention returns how long terminally failed entries are kept.
func (c *Config) FailedRetention() time.Duration {
	return time.Duration(c.Queue.FailedRetentionMinutes) * time.Minute
}

// SucceededRetention returns how long succeeded entries are kept. Zero keeps them.
func (c *Config) SucceededRetention() time.Duration {
	return time.Duration(c.Queue.SucceededRetentionMinutes) * time.Minute
}

// CheckTimeout returns the connectivity check timeout.
func (c *Config) CheckTimeout() time.Duration {
	return time.Duration(c.Sync.CheckTimeoutSeconds) * time.Second
}

// RequestTimeout returns the single-record sync timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Sync.RequestTimeoutSeconds) * time.Second
}

// BatchTimeout returns the batch sync timeout.
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.Sync.BatchTimeoutSeconds) * time.Second
}

// HoldDuration returns how long an acquired playback resource stays loaded.
func (c *Config) HoldDuration() time.Duration {
	return time.Duration(c.Playback.HoldSeconds) * time.Second
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

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
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
