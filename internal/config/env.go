package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override, e.g. DRQ_SYNC_ENDPOINT.
const EnvPrefix = "DRQ_"

// DotEnvVar names a variable pointing at an alternative .env file.
const DotEnvVar = "DRQ_ENV_FILE"

// applyEnv overlays DRQ_* variables onto the decoded file values. A .env file
// in the working directory (or at $DRQ_ENV_FILE) is loaded first without
// overriding variables already present in the process environment.
func (c *Config) applyEnv() error {
	envFile := ".env"
	if custom, ok := os.LookupEnv(DotEnvVar); ok && strings.TrimSpace(custom) != "" {
		envFile = strings.TrimSpace(custom)
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment overrides: %w", err)
	}
	return nil
}
