// Package api exposes manifest validation and the validation history over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nishad/epibac/internal/database"
	"github.com/nishad/epibac/internal/validator"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	server    *http.Server
	validator *validator.Validator
	db        *database.DB
	logger    *zap.Logger
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	HistoryPath string // empty disables the history endpoints
	EnableCORS  bool
}

// NewServer creates a new API server validating with v.
func NewServer(cfg *Config, v *validator.Validator, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:    mux.NewRouter(),
		validator: v,
		logger:    logger,
	}

	if cfg.HistoryPath != "" {
		db, err := database.Initialize(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		db.SetLogger(logger)
		s.db = db
	}

	s.setupRoutes()

	if cfg.EnableCORS {
		s.router.Use(corsMiddleware)
	}
	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonMiddleware)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/validate", s.handleValidate).Methods("POST")

	// History endpoints
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleDeleteRun).Methods("DELETE")
	api.HandleFunc("/runs/{id}/report", s.handleRunReport).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")

	// Preflight requests for any route; corsMiddleware answers them.
	s.router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Handler returns the root handler, for embedding or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.Close()
}

// Close releases the history database without stopping the listener.
func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Middleware functions

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Duration("duration", time.Since(start)))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Helper functions

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  status,
	})
}

// handleRoot returns API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "EPIBAC API",
		"version":     Version,
		"description": "Sample manifest validation for the epibac pipeline",
		"endpoints": map[string]string{
			"validate": "/api/v1/validate",
			"runs":     "/api/v1/runs",
			"stats":    "/api/v1/stats",
			"health":   "/api/v1/health",
		},
	}
	s.writeJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	switch {
	case s.db == nil:
		health["history"] = "disabled"
	case s.db.PingContext(r.Context()) != nil:
		health["status"] = "unhealthy"
		health["history"] = "unavailable"
	default:
		health["history"] = "healthy"
	}

	status := http.StatusOK
	if health["status"] != "healthy" {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, health)
}
