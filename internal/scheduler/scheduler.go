package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	applog "github.com/fastygo/taskhub/pkg/logger"
)

// Func is the unit of work a job performs.
type Func func(ctx context.Context) error

type Job struct {
	Name        string
	Schedule    string
	Description string
	Run         Func
}

// Outcome reports what a single firing did.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// Recorder receives every finished run.
type Recorder interface {
	Record(run domain.JobRun) error
}

type entry struct {
	job        Job
	id         cron.EntryID
	running    bool
	lastRun    *time.Time
	lastStatus domain.JobStatus
	lastError  string
}

// Scheduler owns the job registry. Each job runs at most once at a time;
// a firing that finds its job in flight is skipped, not queued.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	location *time.Location
	jobs     map[string]*entry
	order    []string
	started  bool
	inflight sync.WaitGroup
	recorder Recorder
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Scheduler)

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		location: time.UTC,
		jobs:     make(map[string]*entry),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithLocation(s.location))
	return s
}

// Register adds job to the registry and its schedule to the cron loop.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return domain.NewError(domain.ErrCodeInvalid, "job name and run func are required")
	}
	schedule, err := cron.ParseStandard(job.Schedule)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, fmt.Sprintf("job %s: bad schedule %q", job.Name, job.Schedule), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return domain.WrapError(domain.ErrCodeDuplicateJob, "job "+job.Name, domain.ErrDuplicateJob)
	}

	name := job.Name
	e := &entry{job: job, lastStatus: domain.JobNeverRun}
	e.id = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.fire(context.Background(), name, TriggerCron)
	}))
	s.jobs[name] = e
	s.order = append(s.order, name)

	s.logger.Info("job registered", zap.String("job", name), zap.String("schedule", job.Schedule))
	return nil
}

// Trigger runs name now and waits for it. The run is detached from ctx
// cancellation once started.
func (s *Scheduler) Trigger(ctx context.Context, name string) (Outcome, error) {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return "", domain.WrapError(domain.ErrCodeNotFound, "job "+name, domain.ErrJobNotFound)
	}
	return s.fire(context.WithoutCancel(ctx), name, TriggerManual), nil
}

func (s *Scheduler) fire(ctx context.Context, name, trigger string) Outcome {
	logger := s.logger.With(zap.String("job", name), zap.String("trigger", trigger))

	s.mu.Lock()
	e := s.jobs[name]
	if e.running {
		s.mu.Unlock()
		logger.Warn("job still running, firing skipped")
		return OutcomeSkipped
	}
	e.running = true
	s.inflight.Add(1)
	run := e.job.Run
	s.mu.Unlock()
	defer s.inflight.Done()

	started := s.now()
	logger.Info("job started")
	err := invoke(applog.ContextWithJob(ctx, name), run)
	finished := s.now()

	record := domain.JobRun{
		ID:         uuid.NewString(),
		Job:        name,
		Trigger:    trigger,
		Status:     domain.JobSuccess,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err != nil {
		record.Status = domain.JobFailure
		record.Error = err.Error()
	}

	s.mu.Lock()
	e.running = false
	e.lastRun = &started
	e.lastStatus = record.Status
	e.lastError = record.Error
	s.mu.Unlock()

	if err != nil {
		logger.Error("job failed", zap.Duration("took", finished.Sub(started)), zap.Error(err))
	} else {
		logger.Info("job succeeded", zap.Duration("took", finished.Sub(started)))
	}

	if s.recorder != nil {
		if rerr := s.recorder.Record(record); rerr != nil {
			logger.Warn("job run not recorded", zap.Error(rerr))
		}
	}

	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSucceeded
}

func invoke(ctx context.Context, run Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return run(ctx)
}

// States lists every job in registration order.
func (s *Scheduler) States() []domain.JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.JobState, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.stateLocked(s.jobs[name]))
	}
	return out
}

func (s *Scheduler) State(name string) (domain.JobState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[name]
	if !ok {
		return domain.JobState{}, domain.WrapError(domain.ErrCodeNotFound, "job "+name, domain.ErrJobNotFound)
	}
	return s.stateLocked(e), nil
}

func (s *Scheduler) stateLocked(e *entry) domain.JobState {
	state := domain.JobState{
		Name:        e.job.Name,
		Schedule:    e.job.Schedule,
		Description: e.job.Description,
		LastStatus:  e.lastStatus,
		LastError:   e.lastError,
		Running:     e.running,
	}
	if e.lastRun != nil {
		last := *e.lastRun
		state.LastRun = &last
	}
	if s.started {
		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			state.NextRun = &next
		}
	}
	return state
}

// Start begins evaluating schedules.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)), zap.String("timezone", s.location.String()))
}

// Stop halts the cron loop and waits for in-flight runs or ctx, whichever
// comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if started {
			<-s.cron.Stop().Done()
		}
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with jobs in flight")
	}
}
