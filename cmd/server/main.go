// crop-advisor serves deterministic farming advice over HTTP. Every answer
// comes out of the decision orchestrator: evaluators propose, fixed
// precedence merges, and the full reasoning trace ships with the response.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/agrimind/advisor/config"
	"github.com/agrimind/advisor/decision"
	"github.com/agrimind/advisor/farmstate"
	"github.com/agrimind/advisor/internal/logger"
	"github.com/agrimind/advisor/phenology"
	"github.com/agrimind/advisor/risk"
	"github.com/agrimind/advisor/weather"
)

// slowDecisionBudget flags decisions that took longer than the evaluator
// timeouts should ever allow.
const slowDecisionBudget = 8 * time.Second

type Server struct {
	store       farmstate.Store
	db          *sql.DB // nil when running on the in-memory store
	orch        *decision.Orchestrator
	weatherEval *weather.Evaluator
	router      *chi.Mux
	cfg         config.Config
}

func NewServer(cfg config.Config) (*Server, error) {
	var (
		store farmstate.Store
		db    *sql.DB
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		store = farmstate.NewPostgresStore(db)
	} else {
		logger.Warn("no DATABASE_URL set, farm state is in-memory and will not survive restarts")
		store = farmstate.NewMemoryStore()
	}

	snapshots := weather.NewInMemorySnapshotCache(weather.CacheConfig{
		StalenessBound: cfg.Weather.CacheStaleness.Std(),
	})
	weatherEval := weather.NewEvaluator(
		weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.RequestTimeout.Std()),
		snapshots,
		weather.DefaultThresholds(),
		logger.Logger,
	)
	stageEval := phenology.NewEvaluator(logger.Logger)

	riskEngine, err := risk.NewEngine(risk.BuiltinRules(), logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("compile risk rules: %w", err)
	}

	s := &Server{
		store:       store,
		db:          db,
		weatherEval: weatherEval,
		orch: decision.NewOrchestrator(store, weatherEval, stageEval,
			riskEngine, snapshots, cfg.DecisionConfig(), logger.Logger),
		cfg: cfg,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout.Std()))

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/chat", s.handleChat)

	r.Route("/api/v1/farmers/{farmerId}", func(r chi.Router) {
		r.Put("/profile", s.handleSaveProfile)
		r.Get("/profile", s.handleGetProfile)
		r.Get("/weather", s.handleWeather)
		r.Get("/crop-status", s.handleCropStatus)
		r.Get("/decisions", s.handleListDecisions)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"storage":  storageKind(s.db),
		"counters": logger.Counters(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.FarmerID <= 0 {
		respondError(w, http.StatusBadRequest, "farmer_id is required", nil)
		return
	}

	dreq, err := req.toDecisionRequest()
	if err != nil {
		if errors.Is(err, decision.ErrUnsupportedIntent) {
			// Unknown intents get a polite answer, not an error: the
			// client already committed to showing the farmer something.
			respondJSON(w, http.StatusOK, unsupportedIntentResponse())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	start := time.Now()
	d, err := s.orch.Handle(r.Context(), dreq)
	if err != nil {
		switch {
		case errors.Is(err, decision.ErrProfileIncomplete):
			respondError(w, http.StatusConflict, "profile incomplete", err)
		case errors.Is(err, decision.ErrUnsupportedIntent):
			respondJSON(w, http.StatusOK, unsupportedIntentResponse())
		default:
			respondError(w, http.StatusInternalServerError, "decision failed", err)
		}
		return
	}
	if time.Since(start) > slowDecisionBudget {
		logger.SlowDecisions.Add(1)
	}
	for _, src := range d.DataSources {
		if src == weather.SourceID+":cached" {
			logger.CacheFallbacks.Add(1)
		}
	}

	respondJSON(w, http.StatusOK, chatResponseFrom(d))
}

func unsupportedIntentResponse() ChatResponse {
	return ChatResponse{
		Response:    "I can help with irrigation, weather, crop status, and harvest timing. Could you rephrase your question?",
		Confidence:  0.3,
		Reasoning:   "intent not supported; no evaluators were consulted",
		DataSources: []string{"farm_context"},
		Alerts:      []string{},
	}
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	farmerID, err := farmerIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid farmer id", err)
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	profile := req.toProfile(farmerID)
	if err := s.store.SaveFarmProfile(r.Context(), profile); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save profile", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"farmer_id":    farmerID,
		"has_location": profile.HasLocation,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	farmerID, err := farmerIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid farmer id", err)
		return
	}

	profile, err := s.store.GetFarmProfile(r.Context(), farmerID)
	if err != nil {
		if errors.Is(err, farmstate.ErrNotFound) {
			respondError(w, http.StatusNotFound, "profile not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load profile", err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	farmerID, err := farmerIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid farmer id", err)
		return
	}

	profile, err := s.store.GetFarmProfile(r.Context(), farmerID)
	if err != nil {
		if errors.Is(err, farmstate.ErrNotFound) {
			respondError(w, http.StatusNotFound, "profile not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load profile", err)
		return
	}
	if !profile.HasLocation {
		respondError(w, http.StatusConflict, "farm location is not set", nil)
		return
	}

	res, err := s.weatherEval.Evaluate(r.Context(), profile.Latitude, profile.Longitude)
	if err != nil {
		logger.WeatherFailures.Add(1)
		respondError(w, http.StatusBadGateway, "weather data unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"snapshot": res.Snapshot,
		"impact":   res.Impact,
		"stale":    res.Stale,
	})
}

func (s *Server) handleCropStatus(w http.ResponseWriter, r *http.Request) {
	farmerID, err := farmerIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid farmer id", err)
		return
	}

	crop, err := s.store.GetActiveCrop(r.Context(), farmerID)
	if err != nil {
		if errors.Is(err, farmstate.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no active crop", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load crop", err)
		return
	}
	respondJSON(w, http.StatusOK, cropStatusFrom(crop, time.Now()))
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	farmerID, err := farmerIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid farmer id", err)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	decisions, err := s.store.ListDecisions(r.Context(), farmerID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list decisions", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"decisions": decisions,
	})
}

func farmerIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "farmerId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("farmer id must be a positive integer")
	}
	return id, nil
}

func storageKind(db *sql.DB) string {
	if db == nil {
		return "memory"
	}
	return "postgres"
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "storage", storageKind(server.db))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
