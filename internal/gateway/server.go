// Package gateway serves the engine over HTTP for `distill serve`.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"distill/internal/config"
	"distill/internal/engine"
	"distill/internal/gateway/handlers"
	"distill/internal/gateway/middleware"
	"distill/pkg/logger"
)

// Server is the HTTP gateway.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	engine     *engine.Engine
	watcher    *Watcher
}

// NewServer builds a server over e. Routes are registered immediately.
func NewServer(cfg *config.Config, e *engine.Engine, version string) *Server {
	router := mux.NewRouter()

	// Recovery -> Logging -> router
	handler := middleware.Recovery(middleware.Logging(router))

	s := &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
			Handler:     handler,
			ReadTimeout: 60 * time.Second,
			// Summaries can take many provider round trips.
			WriteTimeout: 0,
			IdleTimeout:  120 * time.Second,
		},
		router: router,
		config: cfg,
		engine: e,
	}

	metrics := NewMetrics(e.Counters)
	router.Use(metrics.Middleware)

	router.HandleFunc("/health", handlers.HealthHandler(version, e.Provider.Identity())).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	handlers.NewDistillHandler(e).RegisterRoutes(router)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.SendError(w, http.StatusNotFound, handlers.ErrCodeNotFound, "no route for "+r.URL.Path)
	})

	return s
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	handlers.InitStartTime()

	logger.Info().
		Str("addr", s.httpServer.Addr).
		Str("identity", s.engine.Provider.Identity()).
		Msg("Starting gateway server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the watcher, if any, and drains open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info().Msg("Shutting down gateway server")

	if s.watcher != nil {
		s.watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// SetWatcher attaches a watcher that is stopped on Shutdown.
func (s *Server) SetWatcher(w *Watcher) {
	s.watcher = w
}

// Handler returns the full handler chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Router returns the underlying router for testing.
func (s *Server) Router() *mux.Router {
	return s.router
}
