// Package scheduler drives the hub's periodic background work.
//
// A single loop wakes at the earliest due time across all jobs, fires
// everything due, and reschedules each fired job to now+cadence. A job
// that stalled past several cadences therefore fires once and resumes
// its rhythm from the fire time rather than replaying missed ticks.
//
// Jobs run on their own goroutines so a slow provider refresh never
// delays the loop or other jobs. Per-key overlap is prevented here; the
// provider slots additionally carry their own in-flight guards.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slatehub/slate-core/internal/infrastructure/logging"
)

// JobFunc is the work a job performs. It receives the scheduler's run
// context and should return promptly when it is cancelled.
type JobFunc func(ctx context.Context)

// JobStatus is a read-only snapshot of one job.
type JobStatus struct {
	Key        string        `json:"key"`
	Cadence    time.Duration `json:"cadence"`
	NextFireAt time.Time     `json:"next_fire_at"`
	Running    bool          `json:"running"`
}

type job struct {
	key        string
	cadence    time.Duration
	fn         JobFunc
	nextFireAt time.Time
	running    bool
}

// Scheduler maintains the set of named periodic jobs.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job

	// runCtx is the context Run was started with. All job executions,
	// including forced ones, derive from it rather than from any caller.
	runCtx context.Context

	// wake nudges the loop to recompute its timer after the job set or
	// a schedule changes.
	wake chan struct{}

	logger *logging.Logger
}

// New creates an empty scheduler.
func New(logger *logging.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*job),
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// AddJob registers a job firing every cadence, first at now+cadence.
// Re-adding an existing key replaces its cadence and function and
// resets its schedule.
func (s *Scheduler) AddJob(key string, cadence time.Duration, fn JobFunc) error {
	if key == "" || fn == nil || cadence <= 0 {
		return ErrInvalidJob
	}

	s.mu.Lock()
	s.jobs[key] = &job{
		key:        key,
		cadence:    cadence,
		fn:         fn,
		nextFireAt: time.Now().Add(cadence),
	}
	s.mu.Unlock()

	s.nudge()
	return nil
}

// RemoveJob deregisters a job. A run already in progress finishes.
func (s *Scheduler) RemoveJob(key string) {
	s.mu.Lock()
	delete(s.jobs, key)
	s.mu.Unlock()
	s.nudge()
}

// RunNow fires a job immediately, bypassing its cadence, and resets
// the schedule from this fire time. A job already running is left
// alone (the current run is authoritative).
//
// The job runs on the scheduler's run context, never a caller's:
// callers are typically request handlers whose context ends the moment
// the response is written, which would abort the accepted work.
func (s *Scheduler) RunNow(key string) error {
	s.mu.Lock()
	j, ok := s.jobs[key]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	if j.running {
		s.mu.Unlock()
		return nil
	}
	j.running = true
	j.nextFireAt = time.Now().Add(j.cadence)
	ctx := s.runCtx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	s.nudge()
	go s.execute(ctx, j)
	return nil
}

// Jobs returns a snapshot of all jobs, sorted by key.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		statuses = append(statuses, JobStatus{
			Key:        j.key,
			Cadence:    j.cadence,
			NextFireAt: j.nextFireAt,
			Running:    j.running,
		})
	}
	s.mu.Unlock()

	sort.Slice(statuses, func(i, k int) bool {
		return statuses[i].Key < statuses[k].Key
	})
	return statuses
}

// Run is the driving loop. It blocks until ctx is cancelled and is
// intended to run on its own goroutine, separate from request handling.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.logger.Info("scheduler started")
	defer s.logger.Info("scheduler stopped")

	for {
		timer := s.nextTimer()

		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
			s.fireDue(ctx)
		}
	}
}

// nextTimer returns a timer for the earliest nextFireAt, or nil when no
// jobs exist (the loop then sleeps until woken).
func (s *Scheduler) nextTimer() *time.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	for _, j := range s.jobs {
		if next.IsZero() || j.nextFireAt.Before(next) {
			next = j.nextFireAt
		}
	}
	if next.IsZero() {
		return nil
	}

	d := time.Until(next)
	if d < 0 {
		d = 0
	}
	return time.NewTimer(d)
}

// fireDue starts every job whose time has arrived and reschedules it
// from the fire time. Jobs still running from a previous fire are
// rescheduled but not restarted.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var toRun []*job
	for _, j := range s.jobs {
		if j.nextFireAt.After(now) {
			continue
		}
		j.nextFireAt = now.Add(j.cadence)
		if j.running {
			continue
		}
		j.running = true
		toRun = append(toRun, j)
	}
	s.mu.Unlock()

	for _, j := range toRun {
		go s.execute(ctx, j)
	}
}

// execute runs one job and clears its running flag afterwards.
func (s *Scheduler) execute(ctx context.Context, j *job) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("job panic recovered", "job", j.key, "panic", rec)
		}
		s.mu.Lock()
		j.running = false
		s.mu.Unlock()
	}()

	j.fn(ctx)
}

// nudge wakes the loop without blocking.
func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
