package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dinehall/internal/browser"
	"dinehall/internal/config"
	"dinehall/internal/logging"
)

// skipConfigLoadAnnotation marks commands that must run without a valid
// config (init, validate).
const skipConfigLoadAnnotation = "skipConfigLoad"

// commandContext carries flag values and lazily loaded state shared by all
// subcommands of one invocation.
type commandContext struct {
	configFlag string
	levelFlag  string
	launcher   browser.Launcher

	loadOnce sync.Once
	cfg      *config.Config
	loadErr  error
}

func (c *commandContext) configPath() string {
	return strings.TrimSpace(c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.loadOnce.Do(func() {
		c.cfg, c.loadErr = c.load()
	})
	return c.cfg, c.loadErr
}

func (c *commandContext) load() (*config.Config, error) {
	cfg, _, _, err := config.Load(c.configPath())
	if err != nil {
		return nil, err
	}
	if level := strings.TrimSpace(c.levelFlag); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return cfg, nil
}

// withLogger runs fn with a logger writing to the command's stdout and the
// daily log file. Old log files are pruned before fn runs.
func (c *commandContext) withLogger(cmd *cobra.Command, fn func(*config.Config, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, closer, err := logging.NewFromConfig(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closer.Close()

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.DailyRetention(cfg.Paths.LogDir, logging.DailyFilePrefix),
	)
	return fn(cfg, logger)
}

func (c *commandContext) browserManager(cfg *config.Config, logger *slog.Logger) *browser.Manager {
	opts := []browser.ManagerOption{browser.WithLogger(logger)}
	if c.launcher != nil {
		opts = append(opts, browser.WithLauncher(c.launcher))
	}
	return browser.NewManager(cfg, opts...)
}

func skipsConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations[skipConfigLoadAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
