package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Task is one unit of background work.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error { return f(ctx) }

// Recorder observes job outcomes.
type Recorder interface {
	JobRun(job string, err error)
}

// JobScheduler runs the periodic jobs. Every job is a singleton: a run that
// overlaps the previous one is rescheduled instead of started.
type JobScheduler struct {
	scheduler gocron.Scheduler
	recorder  Recorder
	logger    *zap.Logger
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]gocron.Job
}

// NewJobScheduler creates a scheduler. timeout bounds a single run.
func NewJobScheduler(recorder Recorder, timeout time.Duration, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		scheduler: scheduler,
		recorder:  recorder,
		logger:    logger,
		timeout:   timeout,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]gocron.Job),
	}, nil
}

// AddJob registers task to run every interval. A non-positive interval
// leaves the job disabled.
func (js *JobScheduler) AddJob(name string, interval time.Duration, task Task) error {
	if interval <= 0 {
		js.logger.Info("job disabled", zap.String("job", name))
		return nil
	}
	js.mu.Lock()
	defer js.mu.Unlock()

	if _, exists := js.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.run, name, task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create job %s: %w", name, err)
	}
	js.jobs[name] = job
	return nil
}

func (js *JobScheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(js.ctx, js.timeout)
	defer cancel()

	start := time.Now()
	err := task.Run(ctx)
	if js.recorder != nil {
		js.recorder.JobRun(name, err)
	}
	if err != nil {
		js.logger.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	js.logger.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// RunNow triggers a registered job outside its schedule.
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return job.RunNow()
}

func (js *JobScheduler) Start() {
	js.mu.RLock()
	js.logger.Info("starting background jobs", zap.Int("jobs", len(js.jobs)))
	js.mu.RUnlock()
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.cancel()
	return js.scheduler.Shutdown()
}

// Jobs returns the registered job names.
func (js *JobScheduler) Jobs() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}
