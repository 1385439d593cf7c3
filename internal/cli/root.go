// Package cli implements the distill command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"distill/internal/config"
	"distill/internal/engine"
	"distill/pkg/logger"
)

// GlobalFlags holds the persistent flags.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	NoCache    bool
}

var globalFlags GlobalFlags

type contextKey struct{}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd()
}

// newRootCmd passes engineOpts to every engine the commands open.
func newRootCmd(engineOpts ...engine.Option) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "distill",
		Short: "distill - fit long text into a model's token budget",
		Long: `distill splits text along its structure, packs the pieces up to a token
budget and asks a language model to condense whatever does not fit, round
after round. Every model answer is cached on disk, so re-running a job only
pays for what changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}

			configPath := globalFlags.ConfigPath
			if configPath == "" {
				var err error
				configPath, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logCfg := cfg.Log
			if globalFlags.Verbose {
				logCfg.Level = "debug"
			}
			if globalFlags.Quiet {
				logCfg.Level = "error"
			}
			if err := logger.Init(logCfg); err != nil {
				return err
			}

			cliCtx := NewCLIContext(cfg, configPath, logger.Get(), globalFlags.NoCache, engineOpts...)
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, cliCtx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx := GetCLIContext(cmd); cliCtx != nil {
				return cliCtx.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "quiet mode")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.NoCache, "no-cache", false, "keep model answers in memory only")

	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewSummarizeCmd())
	rootCmd.AddCommand(NewAskCmd())
	rootCmd.AddCommand(NewSplitCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// GetCLIContext returns the context set up by the root command, or nil.
func GetCLIContext(cmd *cobra.Command) *CLIContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cliCtx, ok := ctx.Value(contextKey{}).(*CLIContext)
	if !ok {
		return nil
	}
	return cliCtx
}
