package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pulse/internal/engine"
	"pulse/internal/snapshots"
	"pulse/internal/stream"
)

type Server struct {
	engine  *engine.Engine
	state   func() stream.State
	ready   func(context.Context) error
	metrics http.Handler
	log     *slog.Logger
}

// NewServer exposes eng over HTTP. state reports the upstream connection,
// ready backs /readyz and metrics serves /metrics; nil values disable them.
func NewServer(eng *engine.Engine, state func() stream.State, ready func(context.Context) error, metrics http.Handler, logger *slog.Logger) *Server {
	return &Server{engine: eng, state: state, ready: ready, metrics: metrics, log: logger}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/samples", s.handleSamples)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /api/snapshots", s.handleListSnapshots)
	mux.HandleFunc("POST /api/snapshots", s.handleCreateSnapshot)
	mux.HandleFunc("DELETE /api/snapshots", s.handleClearSnapshots)
	mux.HandleFunc("GET /api/snapshots/{id}", s.handleGetSnapshot)
	mux.HandleFunc("DELETE /api/snapshots/{id}", s.handleDeleteSnapshot)
	mux.HandleFunc("GET /api/snapshots/{id}/export", s.handleExportSnapshot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return logMiddleware(mux, s.log)
}

type stateResponse struct {
	Connection stream.State `json:"connection"`
	engine.State
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{Connection: s.connection(), State: s.engine.State()})
}

func (s *Server) connection() stream.State {
	if s.state == nil {
		return stream.Disconnected
	}
	return s.state()
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Samples())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Events())
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Insights())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RetentionDays *float64 `json:"retentionDays"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || req.RetentionDays == nil {
		writeError(w, http.StatusBadRequest, "retentionDays is required")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.SetRetentionDays(r.Context(), *req.RetentionDays))
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshots())
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.SaveSnapshot(r.Context())
	if errors.Is(err, snapshots.ErrEmptyBuffer) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleClearSnapshots(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearSnapshots(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.engine.DeleteSnapshot(r.Context(), r.PathValue("id")) {
		writeError(w, http.StatusNotFound, snapshots.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	name, body, err := s.engine.ExportSnapshot(r.PathValue("id"))
	if errors.Is(err, snapshots.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(body)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "stream": string(s.connection())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
