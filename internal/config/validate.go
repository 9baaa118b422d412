package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case "sqlite", "file", "redis", "memory":
	default:
		return fmt.Errorf("queue.backend: unsupported value %q (expected sqlite, file, redis, or memory)", c.Queue.Backend)
	}
	if c.Queue.MaxAttempts <= 0 {
		return errors.New("queue.max_attempts must be positive")
	}
	if c.Queue.BaseDelayMillis <= 0 {
		return errors.New("queue.base_delay_ms must be positive")
	}
	if c.Queue.FailedRetentionMinutes <= 0 {
		return errors.New("queue.failed_retention_minutes must be positive")
	}
	if c.Queue.SucceededRetentionMinutes < 0 {
		return errors.New("queue.succeeded_retention_minutes must be zero or positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Endpoint == "" {
		return errors.New("sync.endpoint must be set")
	}
	parsed, err := url.Parse(c.Sync.Endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("sync.endpoint: %q is not an http(s) URL", c.Sync.Endpoint)
	}
	if c.Sync.BatchSize <= 0 {
		return errors.New("sync.batch_size must be positive")
	}
	if c.Sync.Schedule == "" {
		return errors.New("sync.schedule must be set (e.g. \"@every 15m\")")
	}
	if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
		return fmt.Errorf("sync.schedule: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
