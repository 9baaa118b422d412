package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeSync()
	if err := c.normalizePlayback(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueue() {
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	if c.Queue.Backend == "" {
		c.Queue.Backend = defaultQueueBackend
	}
	c.Queue.RedisAddr = strings.TrimSpace(c.Queue.RedisAddr)
	if c.Queue.RedisAddr == "" {
		c.Queue.RedisAddr = defaultRedisAddr
	}
	if c.Queue.RedisPrefix == "" {
		c.Queue.RedisPrefix = defaultRedisPrefix
	}
}

func (c *Config) normalizeSync() {
	c.Sync.Endpoint = strings.TrimSpace(c.Sync.Endpoint)
	c.Sync.Schedule = strings.TrimSpace(c.Sync.Schedule)
	if c.Sync.CheckTimeoutSeconds <= 0 {
		c.Sync.CheckTimeoutSeconds = defaultCheckTimeoutSeconds
	}
	if c.Sync.RequestTimeoutSeconds <= 0 {
		c.Sync.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if c.Sync.BatchTimeoutSeconds <= 0 {
		c.Sync.BatchTimeoutSeconds = defaultBatchTimeoutSeconds
	}
}

func (c *Config) normalizePlayback() error {
	var err error
	if c.Playback.CatalogPath, err = expandPath(strings.TrimSpace(c.Playback.CatalogPath)); err != nil {
		return fmt.Errorf("playback.catalog_path: %w", err)
	}
	if c.Playback.MediaDir, err = expandPath(strings.TrimSpace(c.Playback.MediaDir)); err != nil {
		return fmt.Errorf("playback.media_dir: %w", err)
	}
	if c.Playback.HoldSeconds < 0 {
		c.Playback.HoldSeconds = 0
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
