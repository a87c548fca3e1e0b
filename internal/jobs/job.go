// Package jobs implements the asynchronous job orchestrator: an in-memory
// job table, a handler registry, a concurrency-bounded scheduler, and a
// broadcast channel for progress events.
package jobs

import "time"

// Status represents the lifecycle state of a job. Transitions are monotonic:
// PENDING -> PROCESSING -> {COMPLETED, FAILED}, or PENDING -> CANCELLED.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Phase is the coarse stage tag carried by structured progress updates.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseExtracting   Phase = "extracting"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseBuilding     Phase = "building"
)

// ProgressDetail is a structured progress update. Transient: only the
// latest detail is retained on the job record.
type ProgressDetail struct {
	Percent  int            `json:"percent"`
	Phase    Phase          `json:"phase"`
	Step     string         `json:"step,omitempty"`
	Details  string         `json:"details,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Job is one unit of submitted asynchronous work. Owned exclusively by the
// Scheduler; callers only ever see snapshots.
type Job struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Status      Status            `json:"status"`
	Progress    int               `json:"progress"`
	Detail      *ProgressDetail   `json:"detail,omitempty"`
	Payload     any               `json:"payload,omitempty"` // input; output after completion
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// snapshot returns a copy safe to hand to observers. Detail is copied so
// later updates cannot race with a reader.
func (j *Job) snapshot() Job {
	cp := *j
	if j.Detail != nil {
		d := *j.Detail
		cp.Detail = &d
	}
	return cp
}

// clampProgress bounds a progress value to [0, 100].
func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
