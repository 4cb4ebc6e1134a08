// Package api provides the HTTP API for browsing stored runs.
// GET endpoints are public (read-only).
// POST /api/v1/simulate requires a bearer token and is rate limited.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/mini-culture/internal/config"
	"github.com/talgya/mini-culture/internal/engine"
	"github.com/talgya/mini-culture/internal/persistence"
	"github.com/talgya/mini-culture/internal/transmission"
)

// Limits on on-demand simulations.
const (
	maxSimulatePopulation  = 10000
	maxSimulateGenerations = 1000
)

// Server serves run history over HTTP.
type Server struct {
	DB       *persistence.DB
	Config   *config.Config
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// TrustProxy rate-limits by X-Forwarded-For instead of the remote address.
	TrustProxy bool

	started time.Time
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	simulateLimiter := NewRateLimiter(30, time.Hour)
	simulateLimiter.TrustProxy = s.TrustProxy

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleRunDetail)
	mux.HandleFunc("POST /api/v1/simulate", s.adminOnly(RateLimitMiddleware(simulateLimiter, s.handleSimulate)))
	return mux
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "db", s.DB != nil)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no CULTURESIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":   "culturesim",
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"db":     s.DB != nil,
	}
	if s.Config != nil {
		status["strategy"] = s.Config.Strategy
		status["generations"] = s.Config.Generations
	}
	if s.DB != nil {
		if n, err := s.DB.CountRuns(); err == nil {
			status["runs"] = n
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, transmission.Names())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	runs, err := s.DB.LoadRuns(limit)
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.RunRow{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	id := r.PathValue("id")
	run, err := s.DB.LoadRun(id)
	if errors.Is(err, persistence.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("run query failed", "id", id, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	points, err := s.DB.LoadTrajectory(id)
	if err != nil {
		slog.Error("trajectory query failed", "id", id, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []persistence.TrajectoryPoint{}
	}

	writeJSON(w, map[string]any{
		"run":        run,
		"trajectory": points,
	})
}

type simulateRequest struct {
	PopulationSize int    `json:"population_size"`
	Generations    *int   `json:"generations,omitempty"`
	Strategy       string `json:"strategy,omitempty"`
	Seed           int64  `json:"seed,omitempty"`
}

// handleSimulate runs one simulation synchronously and returns its trajectory.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config
	if cfg == nil {
		cfg = config.Default()
	}

	var req simulateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	generations := cfg.Generations
	if req.Generations != nil {
		generations = *req.Generations
	}
	if req.PopulationSize > maxSimulatePopulation || generations > maxSimulateGenerations {
		http.Error(w, fmt.Sprintf("limits: population_size <= %d, generations <= %d",
			maxSimulatePopulation, maxSimulateGenerations), http.StatusBadRequest)
		return
	}

	name := req.Strategy
	if name == "" {
		name = cfg.Strategy
	}
	strategy, err := transmission.New(name, cfg.Rates)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	traj, err := (&engine.Runner{}).Run(ctx, engine.RunSpec{
		PopulationSize: req.PopulationSize,
		Generations:    generations,
		Strategy:       strategy,
		Seed:           req.Seed,
	})
	if errors.Is(err, engine.ErrInvalidParameter) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("simulate failed", "error", err)
		http.Error(w, "simulation failed", http.StatusInternalServerError)
		return
	}

	slog.Info("on-demand simulation", "strategy", traj.Strategy, "population", traj.PopulationSize, "generations", traj.Generations)
	writeJSON(w, traj)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
