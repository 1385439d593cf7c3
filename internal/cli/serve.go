package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"distill/internal/config"
	"distill/internal/gateway"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve summarize, ask and split over HTTP",
		Long: `Start the HTTP gateway.

Endpoints:
  GET  /health
  POST /v1/summarize
  POST /v1/ask
  POST /v1/split
  GET  /v1/counters
  GET  /v1/cache

All requests share one engine, so they share the ask cache and counters.`,
		Example: `  distill serve
  distill serve --port 8080`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().String("host", "", "host to bind to (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cliCtx, err := mustContext(cmd)
	if err != nil {
		return err
	}

	cfg := cliCtx.Config
	log := cliCtx.Log()

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Gateway.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Gateway.Host = host
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18790
	}
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "localhost"
	}

	eng, err := cliCtx.Engine()
	if err != nil {
		return err
	}

	srv := gateway.NewServer(cfg, eng, Version)

	// The engine is built once; config edits need a restart.
	if path, err := config.ExpandPath(cliCtx.ConfigPath); err == nil && fileExists(path) {
		w, err := gateway.NewWatcher(func(path string) {
			log.Warn().Str("path", path).Msg("Config file changed; restart to apply")
		}, path)
		if err != nil {
			log.Warn().Err(err).Msg("Config watcher unavailable")
		} else if err := w.Start(); err != nil {
			log.Warn().Err(err).Msg("Config watcher unavailable")
		} else {
			srv.SetWatcher(w)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().
		Str("address", fmt.Sprintf("http://%s", srv.Addr())).
		Msg("Server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		log.Info().Msg("Shutting down server...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server error")
			return err
		}
		return nil
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
