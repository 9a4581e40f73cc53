package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"featmill/internal/config"
	"featmill/internal/corpus"
	"featmill/internal/ledger"
	"featmill/internal/logging"
	"featmill/internal/progress"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	logPath    string
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if level := c.logLevelOverride(); level != "" {
			switch level {
			case "debug", "info", "warn", "error":
			case "warning":
				level = "warn"
			default:
				c.configErr = fmt.Errorf("--log-level must be one of: debug, info, warn, error (got %q)", level)
				return
			}
			cfg.Logging.Level = level
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevelOverride() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
}

// ensureLogger builds the invocation logger: console or JSON on stderr plus a
// JSON run log in log_dir. Old run logs are pruned once per invocation.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logPath = logging.RunLogPath(cfg.Paths.LogDir, time.Now())
		logger, err := logging.New(logging.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			RunLogPath: c.logPath,
		})
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, c.logPath)
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// withLedger opens the run ledger for the duration of fn.
func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) loadCorpus() (*corpus.Set, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return corpus.Load(cfg.Corpus.FileIDs, cfg.Corpus.ValidStart)
}

func (c *commandContext) progress(w io.Writer) progress.Reporter {
	cfg, err := c.ensureConfig()
	if err != nil {
		return progress.Nop{}
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return progress.Nop{}
	}
	return progress.New(logger, w, cfg.Logging.Progress)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
