package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"

	"featmill/internal/faults"
)

// envOverlay lists the environment variables that override file values.
type envOverlay struct {
	LogLevel        string `env:"FEATMILL_LOG_LEVEL"`
	LogFormat       string `env:"FEATMILL_LOG_FORMAT"`
	ValidStart      int    `env:"FEATMILL_VALID_START"`
	StateDir        string `env:"FEATMILL_STATE_DIR"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

func (c *Config) applyEnv() error {
	return c.applyEnvFrom(envconfig.OsLookuper())
}

func (c *Config) applyEnvFrom(lookuper envconfig.Lookuper) error {
	var env envOverlay
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return faults.Wrap(faults.ErrConfiguration, "config", "environment", "", err)
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Logging.Format = env.LogFormat
	}
	if env.ValidStart != 0 {
		c.Corpus.ValidStart = env.ValidStart
	}
	if env.StateDir != "" {
		c.Paths.StateDir = env.StateDir
	}
	// Credentials from the environment only fill gaps in the file.
	if c.Publish.AccessKeyID == "" {
		c.Publish.AccessKeyID = env.AccessKeyID
	}
	if c.Publish.SecretAccessKey == "" {
		c.Publish.SecretAccessKey = env.SecretAccessKey
	}
	return nil
}
