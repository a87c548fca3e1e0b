package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults for the scheduler's resource model.
const (
	DefaultMaxConcurrent = 3
	DefaultRetention     = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// ErrNoHandler is returned by Submit for an unregistered job type.
var ErrNoHandler = errors.New("no handler registered for job type")

// ProgressFunc reports progress from inside a handler. detail may be nil
// for a bare percentage update; when present, its Percent wins and the
// detail replaces the stored one.
type ProgressFunc func(percent int, detail *ProgressDetail)

// Handler performs the work for one job type. The returned value becomes
// the job's output payload. ctx is cancelled when the scheduler stops.
type Handler func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error)

// Observer receives job lifecycle notifications, e.g. for metrics.
type Observer interface {
	JobSubmitted(jobType string)
	JobStarted(jobType string)
	JobFinished(jobType string, status Status, elapsed time.Duration)
}

// Scheduler owns the in-memory job table and drives registered handlers
// under a concurrency ceiling. All mutation of job records happens here,
// under the table mutex.
type Scheduler struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	order    []string // insertion order for List
	handlers map[string]Handler

	sem chan struct{} // concurrency ceiling
	hub *Hub

	retention     time.Duration
	sweepInterval time.Duration
	observer      Observer

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxConcurrent sets the PROCESSING ceiling.
func WithMaxConcurrent(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithRetention sets how long terminal records are kept.
func WithRetention(d time.Duration) Option {
	return func(s *Scheduler) {
		s.retention = d
	}
}

// WithSweepInterval sets the cleanup cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.sweepInterval = d
	}
}

// WithObserver attaches a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// NewScheduler creates a stopped scheduler; call Start before submitting.
func NewScheduler(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		jobs:          make(map[string]*Job),
		handlers:      make(map[string]Handler),
		sem:           make(chan struct{}, DefaultMaxConcurrent),
		hub:           NewHub(),
		retention:     DefaultRetention,
		sweepInterval: DefaultSweepInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub exposes the broadcast stream of job events.
func (s *Scheduler) Hub() *Hub {
	return s.hub
}

// Register binds a handler to a job type. Last registration wins.
func (s *Scheduler) Register(jobType string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = handler
}

// Start launches the retention sweep. Safe to call once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.wg.Add(1)
	go s.sweepLoop()
	log.Printf("[jobs] scheduler started (ceiling %d, retention %v)", cap(s.sem), s.retention)
}

// Stop cancels running handlers' contexts and waits for the sweep loop and
// all in-flight job goroutines to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Printf("[jobs] scheduler stopped")
}

// Submit creates a PENDING job and schedules asynchronous execution.
// Fails synchronously with ErrNoHandler when the type is unregistered; no
// record is created in that case.
func (s *Scheduler) Submit(jobType string, input any, metadata map[string]string) (string, error) {
	s.mu.Lock()
	if _, ok := s.handlers[jobType]; !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrNoHandler, jobType)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		Payload:   input,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	snap := job.snapshot()
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.JobSubmitted(jobType)
	}
	s.hub.Publish(Event{Type: EventCreated, Job: snap})

	s.wg.Add(1)
	go s.run(job.ID)

	return job.ID, nil
}

// Get returns a snapshot of the job, or false if it does not exist.
func (s *Scheduler) Get(jobID string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// List returns snapshots of all retained jobs in insertion order.
func (s *Scheduler) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		if job, ok := s.jobs[id]; ok {
			out = append(out, job.snapshot())
		}
	}
	return out
}

// Cancel transitions a PENDING job to CANCELLED. Returns false for any
// other state, including jobs that do not exist; the record is untouched
// in that case.
func (s *Scheduler) Cancel(jobID string) bool {
	s.mu.Lock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != StatusPending {
		s.mu.Unlock()
		return false
	}
	now := time.Now()
	job.Status = StatusCancelled
	job.CompletedAt = &now
	snap := job.snapshot()
	s.mu.Unlock()

	// Cancellation ends the job's lifecycle, so progress streams need a
	// terminal event.
	s.hub.Publish(Event{Type: EventFailed, Job: snap})
	return true
}

// Stats returns the count of retained jobs by status. The counts always
// sum to the number of retained records.
func (s *Scheduler) Stats() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[Status]int)
	for _, job := range s.jobs {
		stats[job.Status]++
	}
	return stats
}

// run waits for a concurrency slot, then drives the job's handler to a
// terminal state. Handler failures are contained here; nothing a handler
// does can take the scheduler down.
func (s *Scheduler) run(jobID string) {
	defer s.wg.Done()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-s.ctx.Done():
		// Shutting down; the record stays PENDING.
		return
	}

	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != StatusPending {
		// Cancelled (or swept) while waiting for a slot.
		s.mu.Unlock()
		return
	}
	now := time.Now()
	job.Status = StatusProcessing
	job.StartedAt = &now
	jobType := job.Type
	input := job.Payload
	handler := s.handlers[jobType]
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.JobStarted(jobType)
	}

	output, err := s.invoke(handler, jobID, input)
	s.finish(jobID, output, err)
}

// invoke calls the handler with panic containment.
func (s *Scheduler) invoke(handler Handler, jobID string, input any) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(s.ctx, jobID, input, s.progressFunc(jobID))
}

// progressFunc builds the callback a handler uses to report progress.
func (s *Scheduler) progressFunc(jobID string) ProgressFunc {
	return func(percent int, detail *ProgressDetail) {
		s.mu.Lock()
		job, ok := s.jobs[jobID]
		if !ok || job.Status != StatusProcessing {
			s.mu.Unlock()
			return
		}
		if detail != nil {
			percent = detail.Percent
			d := *detail
			d.Percent = clampProgress(d.Percent)
			job.Detail = &d
		}
		job.Progress = clampProgress(percent)
		snap := job.snapshot()
		s.mu.Unlock()

		s.hub.Publish(Event{Type: EventProgress, Job: snap})
	}
}

// finish records the terminal outcome of a job and emits its terminal
// event.
func (s *Scheduler) finish(jobID string, output any, err error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status.Terminal() {
		s.mu.Unlock()
		return
	}

	now := time.Now()
	job.CompletedAt = &now
	var started time.Time
	if job.StartedAt != nil {
		started = *job.StartedAt
	} else {
		started = job.CreatedAt
	}

	var evType EventType
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		evType = EventFailed
	} else {
		job.Status = StatusCompleted
		job.Progress = 100
		job.Payload = output
		evType = EventCompleted
	}
	status := job.Status
	jobType := job.Type
	snap := job.snapshot()
	s.mu.Unlock()

	if err != nil {
		log.Printf("[jobs] job %s (%s) failed: %v", jobID, jobType, err)
	}
	if s.observer != nil {
		s.observer.JobFinished(jobType, status, now.Sub(started))
	}
	s.hub.Publish(Event{Type: evType, Job: snap})
}

// sweepLoop periodically deletes terminal records older than the retention
// window. Cancelled records are treated like completed and failed ones.
func (s *Scheduler) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			n := s.sweep(time.Now().Add(-s.retention))
			if n > 0 {
				log.Printf("[jobs] swept %d expired job records", n)
			}
		}
	}
}

// sweep removes terminal records completed before the cutoff and returns
// how many were removed.
func (s *Scheduler) sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.order[:0]
	for _, id := range s.order {
		job, ok := s.jobs[id]
		if !ok {
			continue
		}
		if job.Status.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}
