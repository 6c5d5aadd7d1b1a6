package scheduler

import (
	"bidmaster/internal/database"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultJobTimeout = 15 * time.Minute

// RunFunc performs one job run and returns a short summary of what it did.
type RunFunc func(ctx context.Context) (string, error)

type Job struct {
	Name string
	Spec string
	Run  RunFunc
}

type Recorder interface {
	RecordJobRun(ctx context.Context, run database.JobRun) error
}

// Scheduler runs named jobs on cron specs, one job at a time.
type Scheduler struct {
	ctx      context.Context
	cron     *cron.Cron
	jobs     []Job
	timeout  time.Duration
	recorder Recorder
	mu       sync.Mutex
	now      func() time.Time
	log      *slog.Logger
}

// New builds a scheduler. A nil recorder disables run history.
func New(
	ctx context.Context,
	loc *time.Location,
	timeout time.Duration,
	recorder Recorder,
	log *slog.Logger,
	jobs ...Job,
) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if strings.TrimSpace(job.Name) == "" || job.Run == nil {
			return nil, errors.New("job name or run func is empty")
		}
		if _, ok := seen[job.Name]; ok {
			return nil, fmt.Errorf("job %q is registered twice", job.Name)
		}
		seen[job.Name] = struct{}{}
	}

	logger := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		ctx:      ctx,
		cron:     c,
		jobs:     jobs,
		timeout:  timeout,
		recorder: recorder,
		now:      time.Now,
		log:      log,
	}, nil
}

func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if _, err := s.cron.AddFunc(job.Spec, func() { _ = s.runJob(s.ctx, job) }); err != nil {
			return fmt.Errorf("add job (name = %s, spec = %s): %w", job.Name, job.Spec, err)
		}

		s.log.InfoContext(s.ctx, "Job is scheduled",
			"job", job.Name,
			"spec", job.Spec)
	}

	s.cron.Start()

	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunAll runs every job once in registration order. Failures are logged, not returned.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			s.log.InfoContext(ctx, "Scheduler context is done",
				"error", ctx.Err())
			return
		}

		_ = s.runJob(ctx, job)
	}
}

// RunOnce runs the named job and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.runJob(ctx, job)
		}
	}

	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		names = append(names, job.Name)
	}

	return names
}

func (s *Scheduler) runJob(parent context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err(),
			"job", job.Name)
		return ctx.Err()
	default:
	}

	startedAt := s.now()
	s.log.InfoContext(ctx, "Job is started",
		"job", job.Name)

	summary, err := safeRun(ctx, job.Run)

	finishedAt := s.now()
	status := database.JobStatusOK
	errText := ""

	if err != nil {
		status = database.JobStatusFailed
		errText = err.Error()

		s.log.ErrorContext(ctx, "Failed to run job",
			"error", err,
			"job", job.Name,
			"summary", summary,
			"duration", finishedAt.Sub(startedAt))
	} else {
		s.log.InfoContext(ctx, "Job is done",
			"job", job.Name,
			"summary", summary,
			"duration", finishedAt.Sub(startedAt))
	}

	if s.recorder != nil {
		// The run context may be expired; history is still worth keeping.
		recordCtx, recordCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer recordCancel()

		recordErr := s.recorder.RecordJobRun(recordCtx, database.JobRun{
			Job:        job.Name,
			Status:     status,
			Error:      errText,
			Summary:    summary,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
		})
		if recordErr != nil {
			s.log.ErrorContext(ctx, "Failed to record job run",
				"error", recordErr,
				"job", job.Name)
		}
	}

	return err
}

func safeRun(ctx context.Context, run RunFunc) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return run(ctx)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("Cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("Cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
