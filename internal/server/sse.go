package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/snooow1029/paper-master/internal/jobs"
)

// handleEvents streams one job's lifecycle as server-sent events. The
// stream opens with a "connected" snapshot, relays progress updates,
// and closes itself after the terminal event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	if _, ok := s.scheduler.Get(jobID); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before snapshotting so no transition falls between the
	// snapshot and the first relayed event.
	events, cancel := s.scheduler.Hub().Subscribe()
	defer cancel()

	job, _ := s.scheduler.Get(jobID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSE(w, "connected", job)
	flusher.Flush()

	if job.Status.Terminal() {
		writeSSE(w, terminalEventName(job.Status), job)
		flusher.Flush()
		return
	}

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			if ev.Job.ID != jobID {
				continue
			}
			switch ev.Type {
			case jobs.EventProgress:
				writeSSE(w, "progress", ev.Job)
				flusher.Flush()
			case jobs.EventCompleted, jobs.EventFailed:
				writeSSE(w, terminalEventName(ev.Job.Status), ev.Job)
				flusher.Flush()
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// terminalEventName maps a terminal status to its SSE event name.
// Cancellation surfaces as "failed" so stream consumers need only two
// terminal event kinds.
func terminalEventName(status jobs.Status) string {
	if status == jobs.StatusCompleted {
		return "completed"
	}
	return "failed"
}

func writeSSE(w http.ResponseWriter, event string, job jobs.Job) {
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
