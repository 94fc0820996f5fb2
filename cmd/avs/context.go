package main

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/bootstrap"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/config"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	serverFlag   *string

	configOnce sync.Once
	config     config.Config
	configErr  error

	logger   zerolog.Logger
	closeLog func() error

	runtime *bootstrap.Runtime
}

func newCommandContext(configFlag, logLevelFlag, serverFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		serverFlag:   serverFlag,
		logger:       zerolog.Nop(),
		closeLog:     func() error { return nil },
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			cfg.Log.Level = *c.logLevelFlag
		}
		c.config = cfg
		c.logger, c.closeLog = logging.New(logging.Options{
			App:        "avs",
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Console:    os.Stderr,
		})
	})
	return c.config, c.configErr
}

// withRuntime ouvre la base et le catalogue le temps de fn.
func (c *commandContext) withRuntime(ctx context.Context, fn func(*bootstrap.Runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	rt, err := bootstrap.Open(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	c.runtime = rt
	defer func() { _ = c.close() }()
	return fn(rt)
}

func (c *commandContext) close() error {
	var err error
	if c.runtime != nil {
		err = c.runtime.Close()
		c.runtime = nil
	}
	if cerr := c.closeLog(); err == nil {
		err = cerr
	}
	return err
}

func (c *commandContext) serverURL() string {
	if c.serverFlag == nil || strings.TrimSpace(*c.serverFlag) == "" {
		return "http://" + c.config.Server.Addr
	}
	return strings.TrimRight(strings.TrimSpace(*c.serverFlag), "/")
}
