package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vnpipe/internal/config"
	"vnpipe/internal/history"
	"vnpipe/internal/logging"
	"vnpipe/internal/notifications"
	"vnpipe/internal/publish"
	"vnpipe/internal/services"
	"vnpipe/internal/services/flow"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			if !errors.Is(err, services.ErrConfiguration) {
				err = services.Wrap(services.ErrConfiguration, "config", "load", resolved, err)
			}
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = strings.ToLower(level)
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// log returns the process logger, falling back to a nop logger when the
// configured outputs cannot be opened.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) flowClient() (*flow.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return flow.New(cfg, flow.WithLogger(c.log()))
}

func (c *commandContext) notifier() notifications.Service {
	cfg, _ := c.ensureConfig()
	return notifications.NewService(cfg)
}

// openHistory opens the publish ledger. Callers treat a failure as
// non-fatal for publishing.
func (c *commandContext) openHistory(ctx context.Context) (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(ctx, cfg.HistoryPath())
}

// newWorkflow wires the publish workflow. The returned close func releases
// the history store.
func (c *commandContext) newWorkflow(ctx context.Context) (*publish.Workflow, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := c.flowClient()
	if err != nil {
		return nil, nil, err
	}
	opts := publish.Options{
		Tracker:   client,
		Notifier:  c.notifier(),
		UserEmail: client.UserEmail(),
		LockDir:   cfg.LockDir(),
		Logger:    c.log(),
	}
	closeFn := func() {}
	store, err := c.openHistory(ctx)
	if err != nil {
		logging.WarnWithContext(c.log(), "publish history unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "publish not recorded locally"),
		)
	} else {
		opts.History = store
		closeFn = func() { _ = store.Close() }
	}
	wf, err := publish.New(opts)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return wf, closeFn, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
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
