package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	s := NewScheduler(opts...)
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestSubmit_UnregisteredTypeFailsSynchronously(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.Submit("unknown", nil, nil)
	if !errors.Is(err, ErrNoHandler) {
		t.Fatalf("err = %v, want ErrNoHandler", err)
	}
	if len(s.List()) != 0 {
		t.Error("a job record was created for an unregistered type")
	}
}

func TestSubmit_RunsHandlerToCompletion(t *testing.T) {
	s := newTestScheduler(t)
	s.Register("echo", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		report(50, nil)
		return input, nil
	})

	id, err := s.Submit("echo", "hello", map[string]string{"source": "test"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		job, _ := s.Get(id)
		return job.Status == StatusCompleted
	})

	job, ok := s.Get(id)
	if !ok {
		t.Fatal("job not found after completion")
	}
	if job.Payload != "hello" {
		t.Errorf("Payload = %v, want output echoed", job.Payload)
	}
	if job.Progress != 100 {
		t.Errorf("Progress = %d, want 100", job.Progress)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("timestamps not stamped")
	}
}

func TestSubmit_HandlerErrorMarksFailed(t *testing.T) {
	s := newTestScheduler(t)
	s.Register("boom", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		return nil, errors.New("extraction exploded")
	})

	id, _ := s.Submit("boom", nil, nil)
	waitFor(t, time.Second, func() bool {
		job, _ := s.Get(id)
		return job.Status == StatusFailed
	})

	job, _ := s.Get(id)
	if job.Error != "extraction exploded" {
		t.Errorf("Error = %q, want handler message", job.Error)
	}
}

func TestSubmit_HandlerPanicIsContained(t *testing.T) {
	s := newTestScheduler(t)
	s.Register("panic", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		panic("unexpected nil")
	})

	id, _ := s.Submit("panic", nil, nil)
	waitFor(t, time.Second, func() bool {
		job, _ := s.Get(id)
		return job.Status == StatusFailed
	})

	// The scheduler must survive to run further jobs.
	s.Register("ok", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		return "fine", nil
	})
	id2, _ := s.Submit("ok", nil, nil)
	waitFor(t, time.Second, func() bool {
		job, _ := s.Get(id2)
		return job.Status == StatusCompleted
	})
}

func TestConcurrencyCeiling(t *testing.T) {
	const ceiling = 3
	s := newTestScheduler(t, WithMaxConcurrent(ceiling))

	var running, peak atomic.Int32
	release := make(chan struct{})
	s.Register("slow", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil, nil
	})

	for i := 0; i < 10; i++ {
		if _, err := s.Submit("slow", nil, nil); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	waitFor(t, time.Second, func() bool {
		return s.Stats()[StatusProcessing] == ceiling
	})
	if got := s.Stats()[StatusProcessing]; got != ceiling {
		t.Errorf("processing = %d, want %d", got, ceiling)
	}

	close(release)
	waitFor(t, 2*time.Second, func() bool {
		return s.Stats()[StatusCompleted] == 10
	})

	if p := peak.Load(); p > ceiling {
		t.Errorf("observed %d concurrent handlers, ceiling is %d", p, ceiling)
	}
}

func TestCancel_OnlyPending(t *testing.T) {
	s := newTestScheduler(t, WithMaxConcurrent(1))

	block := make(chan struct{})
	s.Register("block", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		<-block
		return nil, nil
	})

	first, _ := s.Submit("block", nil, nil)
	waitFor(t, time.Second, func() bool {
		job, _ := s.Get(first)
		return job.Status == StatusProcessing
	})

	// Occupies the only slot, so this one stays PENDING.
	second, _ := s.Submit("block", nil, nil)

	if s.Cancel(first) {
		t.Error("Cancel succeeded on a PROCESSING job")
	}
	if !s.Cancel(second) {
		t.Error("Cancel failed on a PENDING job")
	}
	if s.Cancel(second) {
		t.Error("Cancel succeeded twice on the same job")
	}
	if s.Cancel("no-such-job") {
		t.Error("Cancel succeeded on a missing job")
	}

	job, _ := s.Get(second)
	if job.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("cancelled job has no completion timestamp")
	}

	close(block)
	waitFor(t, time.Second, func() bool {
		job, _ := s.Get(first)
		return job.Status == StatusCompleted
	})

	// A cancelled job must never start running.
	job, _ = s.Get(second)
	if job.Status != StatusCancelled {
		t.Errorf("cancelled job transitioned to %s", job.Status)
	}
	if s.Cancel(first) {
		t.Error("Cancel succeeded on a COMPLETED job")
	}
}

func TestStats_SumToRetainedRecords(t *testing.T) {
	s := newTestScheduler(t)
	s.Register("quick", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		return nil, nil
	})

	for i := 0; i < 5; i++ {
		s.Submit("quick", nil, nil)
	}
	waitFor(t, time.Second, func() bool {
		return s.Stats()[StatusCompleted] == 5
	})

	total := 0
	for _, n := range s.Stats() {
		total += n
	}
	if total != len(s.List()) {
		t.Errorf("stats sum %d != %d retained records", total, len(s.List()))
	}
}

func TestProgress_ClampedAndDetailStored(t *testing.T) {
	s := newTestScheduler(t)
	step := make(chan struct{})
	s.Register("prog", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		report(150, nil)
		step <- struct{}{}
		<-step
		report(0, &ProgressDetail{Percent: -10, Phase: PhaseExtracting, Step: "parsing"})
		step <- struct{}{}
		<-step
		return nil, nil
	})

	id, _ := s.Submit("prog", nil, nil)

	<-step
	job, _ := s.Get(id)
	if job.Progress != 100 {
		t.Errorf("Progress = %d, want clamped to 100", job.Progress)
	}
	step <- struct{}{}

	<-step
	job, _ = s.Get(id)
	if job.Progress != 0 {
		t.Errorf("Progress = %d, want clamped to 0", job.Progress)
	}
	if job.Detail == nil || job.Detail.Phase != PhaseExtracting {
		t.Errorf("Detail = %+v, want stored structured detail", job.Detail)
	}

	step <- struct{}{}
	waitFor(t, time.Second, func() bool {
		j, _ := s.Get(id)
		return j.Status == StatusCompleted
	})
}

func TestHub_EventSequence(t *testing.T) {
	s := newTestScheduler(t)
	events, cancel := s.Hub().Subscribe()
	defer cancel()

	s.Register("seq", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		report(40, nil)
		return "out", nil
	})
	id, _ := s.Submit("seq", nil, nil)

	var got []EventType
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case ev := <-events:
			if ev.Job.ID != id {
				continue
			}
			got = append(got, ev.Type)
		case <-timeout:
			t.Fatalf("timed out; events so far: %v", got)
		}
	}

	if got[0] != EventCreated {
		t.Errorf("first event = %s, want created", got[0])
	}
	if got[len(got)-1] != EventCompleted {
		t.Errorf("last event = %s, want completed", got[len(got)-1])
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish(Event{Type: EventProgress})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestSweep_RemovesOnlyExpiredTerminal(t *testing.T) {
	s := newTestScheduler(t)
	s.Register("quick", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		return nil, nil
	})

	old, _ := s.Submit("quick", nil, nil)
	fresh, _ := s.Submit("quick", nil, nil)
	waitFor(t, time.Second, func() bool {
		return s.Stats()[StatusCompleted] == 2
	})

	// Age the first record past the retention cutoff.
	s.mu.Lock()
	past := time.Now().Add(-48 * time.Hour)
	s.jobs[old].CompletedAt = &past
	s.mu.Unlock()

	if n := s.sweep(time.Now().Add(-DefaultRetention)); n != 1 {
		t.Errorf("swept %d records, want 1", n)
	}
	if _, ok := s.Get(old); ok {
		t.Error("expired record still present")
	}
	if _, ok := s.Get(fresh); !ok {
		t.Error("fresh record was swept")
	}
	if len(s.List()) != 1 {
		t.Errorf("List length = %d, want 1", len(s.List()))
	}
}

func TestList_InsertionOrder(t *testing.T) {
	s := newTestScheduler(t)
	s.Register("noop", func(ctx context.Context, jobID string, input any, report ProgressFunc) (any, error) {
		return nil, nil
	})

	var ids []string
	var mu sync.Mutex
	for i := 0; i < 4; i++ {
		id, _ := s.Submit("noop", i, nil)
		mu.Lock()
		ids = append(ids, id)
		mu.Unlock()
	}

	list := s.List()
	if len(list) != 4 {
		t.Fatalf("List length = %d, want 4", len(list))
	}
	for i, job := range list {
		if job.ID != ids[i] {
			t.Errorf("List[%d] = %s, want %s", i, job.ID, ids[i])
		}
	}
}
