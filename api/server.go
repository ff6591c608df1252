// Package api exposes the computed CPI dataset over HTTP. The server
// computes the dataset on startup, refreshes it in the background, and
// serves the latest successful result.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bolivia-cpi/internal/pipeline"
	"bolivia-cpi/pkg/platform"
)

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	pipeline   *pipeline.Pipeline
	config     *Config
	logger     *slog.Logger

	mu     sync.RWMutex
	latest *pipeline.Result
}

// Config holds server configuration
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RefreshInterval time.Duration
	IncludeExchange bool
	CORSOrigins     []string
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:            platform.GetEnvInt("CPI_PORT", 8080),
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		RefreshInterval: platform.GetEnvDuration("CPI_REFRESH_INTERVAL", 6*time.Hour),
		IncludeExchange: platform.GetEnvBool("CPI_INCLUDE_EXCHANGE", false),
		CORSOrigins:     []string{"*"},
	}
}

// NewServer creates a new API server
func NewServer(p *pipeline.Pipeline, config *Config, logger *slog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		pipeline: p,
		config:   config,
		logger:   logger,
	}
}

// Start computes the initial dataset and serves until the context is
// cancelled or an interrupt arrives. The initial computation must succeed;
// later refresh failures keep the previous dataset in place.
func (s *Server) Start(ctx context.Context) error {
	result, err := s.pipeline.Run(ctx, pipeline.Request{IncludeExchange: s.config.IncludeExchange})
	if err != nil {
		return fmt.Errorf("initial dataset computation failed: %w", err)
	}
	s.setLatest(result)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/cpi", s.handleDataset)
	mux.HandleFunc("/api/v1/cpi/summary", s.handleSummary)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.corsMiddleware(s.loggingMiddleware(mux)),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()
	go s.refreshLoop(refreshCtx)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	case <-quit:
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// refreshLoop recomputes the dataset on the configured interval.
func (s *Server) refreshLoop(ctx context.Context) {
	if s.config.RefreshInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.pipeline.Run(ctx, pipeline.Request{IncludeExchange: s.config.IncludeExchange})
			if err != nil {
				s.logger.Error("dataset refresh failed, keeping previous dataset", "error", err)
				continue
			}
			s.setLatest(result)
			s.logger.Info("dataset refreshed", "last_updated", result.Dataset.LastUpdated)
		}
	}
}

func (s *Server) setLatest(result *pipeline.Result) {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()
}

func (s *Server) getLatest() *pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr, "duration", time.Since(start))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result := s.getLatest()
	if result == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "dataset not yet available")
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// Summary is the condensed API view of the dataset.
type Summary struct {
	CurrentIndex     float64            `json:"current_index"`
	CurrentInflation float64            `json:"current_inflation"`
	YoYInflation     float64            `json:"yoy_inflation"`
	LastUpdated      string             `json:"last_updated"`
	Categories       map[string]float64 `json:"categories"`
	RunID            string             `json:"run_id"`
	ComputedAt       string             `json:"computed_at"`
	Warnings         []string           `json:"warnings,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result := s.getLatest()
	if result == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "dataset not yet available")
		return
	}

	ds := result.Dataset
	s.jsonResponse(w, http.StatusOK, Summary{
		CurrentIndex:     ds.CurrentIndex,
		CurrentInflation: ds.CurrentInflation,
		YoYInflation:     ds.YoYInflation,
		LastUpdated:      ds.LastUpdated,
		Categories:       ds.Categories,
		RunID:            ds.RunID.String(),
		ComputedAt:       ds.ComputedAt.Format(time.RFC3339),
		Warnings:         result.Warnings,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
