// Package server exposes the insight service over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tidings-hq/tidings/internal/feed"
	"tidings-hq/tidings/internal/insight"
	"tidings-hq/tidings/pkg/config"
)

// shutdownTimeout bounds graceful shutdown; in-flight generations past this
// are abandoned.
const shutdownTimeout = 15 * time.Second

// Server is the HTTP front of the service.
type Server struct {
	config   config.ServerConfig
	insights *insight.Service
	source   *feed.MemorySource

	// metricsHandler is nil when metrics are disabled.
	metricsHandler http.Handler
	metricsPath    string

	httpServer   *http.Server
	shutdownOnce sync.Once
}

// New creates the server. metricsHandler may be nil to disable the metrics
// endpoint.
func New(cfg config.ServerConfig, insights *insight.Service, source *feed.MemorySource, metricsHandler http.Handler, metricsPath string) *Server {
	return &Server{
		config:         cfg,
		insights:       insights,
		source:         source,
		metricsHandler: metricsHandler,
		metricsPath:    metricsPath,
	}
}

// Start runs the server and blocks until the context is cancelled, a shutdown
// signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting http server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
		return s.Shutdown()
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown()
	case err := <-errChan:
		return err
	}
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		slog.Info("shutting down http server", "timeout", shutdownTimeout.String())
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/brief", s.handleBrief)
	mux.HandleFunc("POST /v1/articles", s.handleReplaceArticles)
	mux.HandleFunc("POST /v1/keywords", s.handleKeywords)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.metricsHandler != nil {
		mux.Handle("GET "+s.metricsPath, s.metricsHandler)
	}

	return s.logRequests(mux)
}

// logRequests emits one access log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
