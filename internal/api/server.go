// Package api provides the HTTP and WebSocket server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/internal/analytics"
	"github.com/tradelens/analytics-backend/pkg/types"
)

const maxBundleBytes = 32 << 20 // 32MB request cap

// Server is the HTTP/WebSocket API server
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	engine     *analytics.Engine
	hub        *Hub
	results    map[string]*types.AnalyticsResult
}

// NewServer creates a new API server around an analytics engine.
func NewServer(logger *zap.Logger, config *types.ServerConfig, engine *analytics.Engine) *Server {
	server := &Server{
		logger:  logger,
		config:  config,
		router:  mux.NewRouter(),
		engine:  engine,
		hub:     NewHub(logger),
		results: make(map[string]*types.AnalyticsResult),
	}
	server.setupRoutes()
	return server
}

// Router exposes the underlying router for additional handler registration.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Hub exposes the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/analyze", s.handleAnalyze).Methods("POST")
	s.router.HandleFunc("/api/v1/analysis/{id}", s.handleGetAnalysis).Methods("GET")

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	s.router.HandleFunc(s.config.WebSocketPath, s.hub.HandleUpgrade)
}

// Start starts the HTTP server and the WebSocket hub.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.hub.Run()

	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// handleAnalyze runs the full pipeline over a submitted bundle. Accepts both
// the structured bundle object and the legacy flat trade array.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBundleBytes))
	if err != nil {
		analysesTotal.WithLabelValues("rejected").Inc()
		http.Error(w, "Request body too large or unreadable", http.StatusBadRequest)
		return
	}

	result, err := s.engine.AnalyzeRaw(r.Context(), body)
	if err != nil {
		var bundleErr *analytics.BundleError
		if errors.As(err, &bundleErr) {
			analysesTotal.WithLabelValues("invalid").Inc()
			s.logger.Warn("Rejected bundle", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": bundleErr.Error(),
			})
			return
		}
		analysesTotal.WithLabelValues("error").Inc()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.results[id] = result
	s.mu.Unlock()

	analysesTotal.WithLabelValues("ok").Inc()
	analysisDuration.Observe(time.Since(started).Seconds())

	s.hub.Broadcast(MsgTypeAnalysisComplete, map[string]interface{}{
		"id":          id,
		"totalTrades": result.TotalTrades,
		"totalPnL":    result.TotalPnL,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"result": result,
	})
}

// handleGetAnalysis re-fetches a prior result. Results live for the process
// lifetime only; there is no persistence.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.RLock()
	result, ok := s.results[id]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "Analysis not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"result": result,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
