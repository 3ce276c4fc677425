// Package server exposes the small HTTP surface the bot keeps alive for
// platform probes: a banner at / and a JSON health report at /health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shelfbot/shelfbot/internal/logger"
)

// Prober reports whether the update consumer is currently running.
type Prober interface {
	ConsumerRunning() bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func() bool

func (f ProberFunc) ConsumerRunning() bool { return f() }

// healthResponse is the /health payload.
type healthResponse struct {
	Status          string `json:"status"`
	ConsumerRunning bool   `json:"consumer_running"`
	Timestamp       string `json:"timestamp"`
	Service         string `json:"service"`
}

// Server is the probe HTTP server.
type Server struct {
	httpServer *http.Server
	prober     Prober
	banner     string
}

// New builds the server. prober may be nil, in which case the consumer
// is reported as not running.
func New(addr, banner string, prober Prober) *Server {
	s := &Server{prober: prober, banner: banner}

	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Get("/", s.handleBanner)
	router.Get("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx ends, then shuts down gracefully. The server is
// a liveness aid, so probe failures are reported but listening errors
// are returned to let the caller decide whether they are fatal.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("probe server listening on %s", s.httpServer.Addr)
		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("probe server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("probe server shutdown: %w", err)
	}
	logger.Info("probe server stopped")
	return nil
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, s.banner)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	running := s.prober != nil && s.prober.ConsumerRunning()

	resp := healthResponse{
		Status:          "ok",
		ConsumerRunning: running,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Service:         "shelfbot",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
