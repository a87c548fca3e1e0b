// Package server exposes the job orchestrator over HTTP: submission,
// status, results, cancellation, a live progress stream per job, and a
// websocket broadcast of all job updates.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/snooow1029/paper-master/internal/jobs"
)

// Server handles the HTTP API. All job state lives in the scheduler;
// the server only translates between HTTP and scheduler calls.
type Server struct {
	scheduler *jobs.Scheduler
	metrics   http.Handler
	ws        *wsHub
	upgrader  websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler mounts a /metrics endpoint.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a Server and starts relaying scheduler events to
// websocket clients. Call Close when done.
func New(scheduler *jobs.Scheduler, opts ...Option) *Server {
	s := &Server{
		scheduler: scheduler,
		ws:        newWSHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	events, cancel := scheduler.Hub().Subscribe()
	s.ws.start(events, cancel)

	return s
}

// Close stops the websocket relay and disconnects all clients.
func (s *Server) Close() {
	s.ws.stop()
}

// RegisterRoutes registers all API routes.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs", s.handleSubmit).Methods("POST")
	r.HandleFunc("/api/jobs", s.handleList).Methods("GET")
	r.HandleFunc("/api/jobs/{id}", s.handleGet).Methods("GET")
	r.HandleFunc("/api/jobs/{id}/result", s.handleResult).Methods("GET")
	r.HandleFunc("/api/jobs/{id}/cancel", s.handleCancel).Methods("POST")
	r.HandleFunc("/api/jobs/{id}/events", s.handleEvents).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods("GET")
	}
}

type submitRequest struct {
	Type     string            `json:"type"`
	Input    json.RawMessage   `json:"input"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "job type is required")
		return
	}

	var input any
	if len(req.Input) > 0 {
		if err := json.Unmarshal(req.Input, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid job input")
			return
		}
	}

	jobID, err := s.scheduler.Submit(req.Type, input, req.Metadata)
	if err != nil {
		if errors.Is(err, jobs.ErrNoHandler) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[server] submit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": jobs.StatusPending,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":   s.scheduler.List(),
		"counts": s.scheduler.Stats(),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	job, ok := s.scheduler.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	job, ok := s.scheduler.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobs.StatusCompleted {
		// The result is not ready; tell the caller where the job stands.
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":   job.Status,
			"progress": job.Progress,
			"error":    job.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"result": job.Payload,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.scheduler.Get(id); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":    id,
		"cancelled": s.scheduler.Cancel(id),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"jobs":   s.scheduler.Stats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
