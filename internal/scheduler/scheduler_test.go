package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slatehub/slate-core/internal/infrastructure/logging"
)

func startScheduler(t *testing.T) *Scheduler {
	t.Helper()

	s := New(logging.Default())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func TestAddJobValidation(t *testing.T) {
	s := New(logging.Default())

	cases := []struct {
		name    string
		key     string
		cadence time.Duration
		fn      JobFunc
	}{
		{"empty key", "", time.Second, func(context.Context) {}},
		{"nil func", "a", time.Second, nil},
		{"zero cadence", "a", 0, func(context.Context) {}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.AddJob(tc.key, tc.cadence, tc.fn); !errors.Is(err, ErrInvalidJob) {
				t.Errorf("expected ErrInvalidJob, got %v", err)
			}
		})
	}
}

func TestJobFiresOnCadence(t *testing.T) {
	s := startScheduler(t)

	var fires atomic.Int64
	if err := s.AddJob("refresh:weather", 30*time.Millisecond, func(context.Context) {
		fires.Add(1)
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	time.Sleep(110 * time.Millisecond)
	got := fires.Load()
	if got < 2 || got > 4 {
		t.Errorf("expected roughly 3 fires in 110ms at 30ms cadence, got %d", got)
	}
}

func TestSlowJobDoesNotOverlap(t *testing.T) {
	s := startScheduler(t)

	var concurrent atomic.Int64
	var maxConcurrent atomic.Int64
	if err := s.AddJob("slow", 20*time.Millisecond, func(context.Context) {
		n := concurrent.Add(1)
		if n > maxConcurrent.Load() {
			maxConcurrent.Store(n)
		}
		time.Sleep(70 * time.Millisecond)
		concurrent.Add(-1)
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if maxConcurrent.Load() > 1 {
		t.Errorf("job overlapped itself: max concurrency %d", maxConcurrent.Load())
	}
}

func TestSlowJobDoesNotDelayOthers(t *testing.T) {
	s := startScheduler(t)

	block := make(chan struct{})
	defer close(block)
	if err := s.AddJob("stuck", 10*time.Millisecond, func(context.Context) {
		<-block
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	var fires atomic.Int64
	if err := s.AddJob("healthy", 20*time.Millisecond, func(context.Context) {
		fires.Add(1)
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	time.Sleep(110 * time.Millisecond)
	if fires.Load() < 2 {
		t.Errorf("healthy job starved by stuck job: %d fires", fires.Load())
	}
}

func TestRunNow(t *testing.T) {
	s := startScheduler(t)

	var fires atomic.Int64
	if err := s.AddJob("refresh:calendar", time.Hour, func(context.Context) {
		fires.Add(1)
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	if err := s.RunNow("refresh:calendar"); err != nil {
		t.Fatalf("RunNow() error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for fires.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("RunNow never executed the job")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.RunNow("nonexistent"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRunNowOutlivesRequestContext(t *testing.T) {
	s := startScheduler(t)

	// The job reports whether its context died before it finished, as it
	// would if the run were tied to the triggering HTTP request.
	aborted := make(chan bool, 1)
	if err := s.AddJob("refresh:weather", time.Hour, func(ctx context.Context) {
		select {
		case <-ctx.Done():
			aborted <- true
		case <-time.After(60 * time.Millisecond):
			aborted <- false
		}
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	if err := s.RunNow("refresh:weather"); err != nil {
		t.Fatalf("RunNow() error: %v", err)
	}

	select {
	case wasAborted := <-aborted:
		if wasAborted {
			t.Error("forced run aborted when the request context ended")
		}
	case <-time.After(time.Second):
		t.Fatal("forced run never completed")
	}
}

func TestRunNowRespectsRunningJob(t *testing.T) {
	s := startScheduler(t)

	var fires atomic.Int64
	block := make(chan struct{})
	if err := s.AddJob("slow", time.Hour, func(context.Context) {
		fires.Add(1)
		<-block
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	if err := s.RunNow("slow"); err != nil {
		t.Fatalf("RunNow() error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for fires.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first run never started")
		}
		time.Sleep(time.Millisecond)
	}

	// While running, a second RunNow is a no-op.
	if err := s.RunNow("slow"); err != nil {
		t.Fatalf("RunNow() while running error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if fires.Load() != 1 {
		t.Errorf("expected RunNow to respect the running job, got %d runs", fires.Load())
	}
	close(block)
}

func TestRemoveJobStopsFiring(t *testing.T) {
	s := startScheduler(t)

	var fires atomic.Int64
	if err := s.AddJob("rotation", 20*time.Millisecond, func(context.Context) {
		fires.Add(1)
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	s.RemoveJob("rotation")
	settled := fires.Load()

	time.Sleep(80 * time.Millisecond)
	if fires.Load() > settled+1 {
		t.Errorf("job kept firing after removal: %d -> %d", settled, fires.Load())
	}
}

func TestJobsSnapshot(t *testing.T) {
	s := New(logging.Default())

	_ = s.AddJob("refresh:weather", time.Minute, func(context.Context) {})
	_ = s.AddJob("rotation", time.Hour, func(context.Context) {})

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Key != "refresh:weather" || jobs[1].Key != "rotation" {
		t.Errorf("expected sorted keys, got %s, %s", jobs[0].Key, jobs[1].Key)
	}
	if jobs[0].NextFireAt.IsZero() {
		t.Error("expected nextFireAt populated")
	}
}

func TestPanickingJobDoesNotKillLoop(t *testing.T) {
	s := startScheduler(t)

	if err := s.AddJob("bad", 15*time.Millisecond, func(context.Context) {
		panic("renderer exploded")
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	var fires atomic.Int64
	if err := s.AddJob("good", 20*time.Millisecond, func(context.Context) {
		fires.Add(1)
	}); err != nil {
		t.Fatalf("AddJob() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if fires.Load() == 0 {
		t.Error("loop died after job panic")
	}
}
