package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crmcore/internal/ctxlog"
)

// Job couples a name, a schedule, and the work itself. Handlers must
// tolerate at-least-once execution.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

type registeredJob struct {
	Job
	// running is held for the duration of one execution; an overdue
	// tick that finds it held is skipped rather than queued.
	running sync.Mutex
}

// Runner drives registered jobs on their schedules, one goroutine per
// job, until its context is cancelled.
type Runner struct {
	logger *slog.Logger
	nowFn  func() time.Time

	mu      sync.Mutex
	jobs    []*registeredJob
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner's structured logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithRunnerNowFunc overrides the clock, for tests.
func WithRunnerNowFunc(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.nowFn = now }
}

// NewRunner returns an empty runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.Default(), nowFn: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a job. Registration after Start is rejected.
func (r *Runner) Register(job Job) error {
	if job.Name == "" || job.Schedule == nil || job.Run == nil {
		return fmt.Errorf("job requires a name, a schedule, and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runner already started")
	}
	r.jobs = append(r.jobs, &registeredJob{Job: job})
	return nil
}

// Start launches one scheduling goroutine per registered job.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runner already started")
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	ctx = ctxlog.WithLogger(ctx, r.logger)
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.logger.Info("job runner started", "jobs", len(r.jobs))
	return nil
}

// Stop cancels all job loops and waits for in-flight runs to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job *registeredJob) {
	defer r.wg.Done()
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		now := r.nowFn()
		next := job.Schedule.Next(now)
		timer.Reset(next.Sub(now))
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.execute(ctx, job)
			}()
		}
	}
}

// execute runs one job occurrence. A still-running previous occurrence
// causes a skip, and panics are contained to the single run.
func (r *Runner) execute(ctx context.Context, job *registeredJob) {
	if !job.running.TryLock() {
		r.logger.Warn("job still running, skipping occurrence", "job", job.Name)
		return
	}
	defer job.running.Unlock()

	start := r.nowFn()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job panicked", "job", job.Name, "panic", rec)
		}
	}()

	if err := job.Run(ctx); err != nil {
		r.logger.Error("job failed", "job", job.Name, "error", err, "duration", time.Since(start))
		return
	}
	r.logger.Info("job completed", "job", job.Name, "duration", time.Since(start))
}
