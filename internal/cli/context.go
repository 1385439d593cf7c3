package cli

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"distill/internal/config"
	"distill/internal/engine"
	"distill/pkg/logger"
)

var errNoContext = errors.New("CLI context not initialized")

// CLIContext carries what the root command set up to its subcommands.
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zerolog.Logger
	NoCache    bool

	engineOpts []engine.Option
	engineOnce sync.Once
	engine     *engine.Engine
	engineErr  error
}

// NewCLIContext creates a CLI context.
func NewCLIContext(cfg *config.Config, configPath string, log *zerolog.Logger, noCache bool, engineOpts ...engine.Option) *CLIContext {
	return &CLIContext{
		Config:     cfg,
		ConfigPath: configPath,
		Logger:     log,
		NoCache:    noCache,
		engineOpts: engineOpts,
	}
}

// Engine opens the engine on first use. Config changes made by a command
// must happen before the first call.
func (c *CLIContext) Engine() (*engine.Engine, error) {
	c.engineOnce.Do(func() {
		opts := append([]engine.Option{engine.WithLogger(c.Log())}, c.engineOpts...)
		if c.NoCache {
			opts = append(opts, engine.WithoutCache())
		}
		c.engine, c.engineErr = engine.Open(c.Config, opts...)
	})
	return c.engine, c.engineErr
}

// Close releases the engine, if it was opened, and the log file.
func (c *CLIContext) Close() error {
	var err error
	if c.engine != nil {
		err = c.engine.Close()
		c.engine = nil
	}
	return errors.Join(err, logger.Close())
}

// Log returns the logger.
func (c *CLIContext) Log() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logger.Get()
}

func mustContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx := GetCLIContext(cmd)
	if cliCtx == nil {
		return nil, errNoContext
	}
	return cliCtx, nil
}
