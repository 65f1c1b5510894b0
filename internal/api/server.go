package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poseidoneye/perception-server/internal/cache"
	"github.com/poseidoneye/perception-server/internal/perception"
	"github.com/poseidoneye/perception-server/pkg/config"
)

// Server exposes the perception engine over HTTP: health, Prometheus
// metrics, cached component status and on-demand prediction endpoints.
type Server struct {
	engine *perception.Engine
	cache  *cache.StatusCache
	http   *http.Server
}

// NewServer creates the API server and wires its routes
func NewServer(cfg *config.HTTPServerConfig, engine *perception.Engine, statusCache *cache.StatusCache) *Server {
	s := &Server{
		engine: engine,
		cache:  statusCache,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Path("/metrics").Handler(promhttp.Handler())
	r.HandleFunc("/api/v1/components", s.handleComponents).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/status/{component}", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/rul/{component}", s.handleRUL).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start starts serving requests. It blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start() error {
	fmt.Printf("HTTP API listening on %s\n", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"trained":   s.engine.Trained(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	HTTPRequestsTotal.WithLabelValues(r.Method, "/health", "200").Inc()
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	components := s.engine.Components()

	statuses, err := s.cache.GetAllStatuses(r.Context())
	if err != nil {
		writeError(w, r, "/api/v1/components", http.StatusInternalServerError, err.Error())
		return
	}

	type componentView struct {
		Component string                 `json:"component"`
		Points    int                    `json:"buffered_points"`
		Severity  perception.Severity    `json:"alert_state"`
		Status    *cache.ComponentStatus `json:"latest_status,omitempty"`
	}

	out := make([]componentView, 0, len(components))
	for _, c := range components {
		out = append(out, componentView{
			Component: c,
			Points:    s.engine.HistoryLen(c),
			Severity:  s.engine.AlertState(c),
			Status:    statuses[c],
		})
	}

	writeJSON(w, http.StatusOK, out)
	HTTPRequestsTotal.WithLabelValues(r.Method, "/api/v1/components", "200").Inc()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	component := mux.Vars(r)["component"]

	status, err := s.cache.GetComponentStatus(r.Context(), component)
	if err != nil {
		writeError(w, r, "/api/v1/status", http.StatusInternalServerError, err.Error())
		return
	}
	if status == nil {
		writeError(w, r, "/api/v1/status", http.StatusNotFound, fmt.Sprintf("no status for component %q", component))
		return
	}

	writeJSON(w, http.StatusOK, status)
	HTTPRequestsTotal.WithLabelValues(r.Method, "/api/v1/status", "200").Inc()
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var features map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		writeError(w, r, "/api/v1/predict", http.StatusBadRequest, "invalid JSON body")
		return
	}

	reading, err := perception.ReadingFromMap(features)
	if err != nil {
		writeError(w, r, "/api/v1/predict", http.StatusBadRequest, err.Error())
		return
	}

	pred, err := s.engine.PredictAnomaly(reading)
	if err != nil {
		writeError(w, r, "/api/v1/predict", statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, pred)
	HTTPRequestsTotal.WithLabelValues(r.Method, "/api/v1/predict", "200").Inc()
}

func (s *Server) handleRUL(w http.ResponseWriter, r *http.Request) {
	component := mux.Vars(r)["component"]

	var features map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		writeError(w, r, "/api/v1/rul", http.StatusBadRequest, "invalid JSON body")
		return
	}

	reading, err := perception.ReadingFromMap(features)
	if err != nil {
		writeError(w, r, "/api/v1/rul", http.StatusBadRequest, err.Error())
		return
	}

	estimate, err := s.engine.EstimateRUL(reading, component)
	if err != nil {
		writeError(w, r, "/api/v1/rul", statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, estimate)
	HTTPRequestsTotal.WithLabelValues(r.Method, "/api/v1/rul", "200").Inc()
}

// statusForError maps perception errors onto HTTP status codes
func statusForError(err error) int {
	var notTrained *perception.NotTrainedError
	var noHistory *perception.InsufficientHistoryError
	var validation *perception.ValidationError

	switch {
	case errors.As(err, &notTrained):
		return http.StatusConflict
	case errors.As(err, &noHistory):
		return http.StatusUnprocessableEntity
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, endpoint string, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
	HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, fmt.Sprintf("%d", status)).Inc()
}
