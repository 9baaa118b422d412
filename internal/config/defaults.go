package config

const (
	defaultConfigPath                = "~/.config/drq/config.toml"
	defaultDataDir                   = "~/.local/share/drq"
	defaultLogDir                    = "~/.local/share/drq/logs"
	defaultQueueBackend              = "sqlite"
	defaultMaxAttempts               = 5
	defaultBaseDelayMillis           = 1000
	defaultFailedRetentionMinutes    = 60
	defaultSucceededRetentionMinutes = 60
	defaultRedisAddr                 = "127.0.0.1:6379"
	defaultRedisPrefix               = "drq:"
	defaultSyncEndpoint              = "https://apiexample.com/"
	defaultCheckTimeoutSeconds       = 5
	defaultRequestTimeoutSeconds     = 10
	defaultBatchTimeoutSeconds       = 8
	defaultBatchSize                 = 10
	defaultSyncSchedule              = "@every 15m"
	defaultHoldSeconds               = 2
	defaultAPIBind                   = "127.0.0.1:7390"
	defaultNotifyRequestTimeout      = 10
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Queue: Queue{
			Backend:                   defaultQueueBackend,
			MaxAttempts:               defaultMaxAttempts,
			BaseDelayMillis:           defaultBaseDelayMillis,
			FailedRetentionMinutes:    defaultFailedRetentionMinutes,
			SucceededRetentionMinutes: defaultSucceededRetentionMinutes,
			RedisAddr:                 defaultRedisAddr,
			RedisPrefix:               defaultRedisPrefix,
		},
		Sync: Sync{
			Endpoint:              defaultSyncEndpoint,
			CheckTimeoutSeconds:   defaultCheckTimeoutSeconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			BatchTimeoutSeconds:   defaultBatchTimeoutSeconds,
			BatchSize:             defaultBatchSize,
			Schedule:              defaultSyncSchedule,
			WatchNetwork:          true,
			SyncOnStart:           true,
		},
		Playback: Playback{
			HoldSeconds: defaultHoldSeconds,
		},
		API: API{
			Bind:    defaultAPIBind,
			Metrics: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			EntryFailures:  true,
			SweepFailures:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
