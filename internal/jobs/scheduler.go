package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cuongbtq/trade-insights/internal/domain"
)

// DefaultMisfireGrace is how late a trigger may fire before it is dropped
const DefaultMisfireGrace = 2 * time.Minute

// SnapshotCounter tells the warm-up whether the snapshot store is empty
type SnapshotCounter interface {
	CountSnapshots(ctx context.Context) (int64, error)
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled      bool
	Workers      int
	MisfireGrace time.Duration
	Warmup       WarmupConfig
}

// Scheduler arms one cron trigger per enabled job definition
type Scheduler struct {
	registry *Registry
	trigger  Trigger
	counter  SnapshotCounter
	config   SchedulerConfig
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	sem     chan struct{}
	timers  []*time.Timer
	running bool
}

// NewScheduler creates a new Scheduler
func NewScheduler(registry *Registry, trigger Trigger, counter SnapshotCounter, config SchedulerConfig, logger *slog.Logger) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MisfireGrace <= 0 {
		config.MisfireGrace = DefaultMisfireGrace
	}
	return &Scheduler{
		registry: registry,
		trigger:  trigger,
		counter:  counter,
		config:   config,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]cron.EntryID),
		sem:      make(chan struct{}, config.Workers),
	}
}

// Init reconciles definitions, starts the engine, arms triggers and schedules the warm-up.
// Calling it on a running scheduler is a no-op.
func (s *Scheduler) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.registry.Reconcile(ctx); err != nil {
		return fmt.Errorf("failed to reconcile job definitions: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info("Scheduler not started, jobs are disabled")
		return nil
	}

	s.mu.Lock()
	cl := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.Recover(cl)),
		cron.WithLogger(cl),
	)
	s.cron.Start()
	s.running = true
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		return err
	}

	s.scheduleWarmup(ctx)

	s.logger.Info("Scheduler started",
		slog.Int("workers", s.config.Workers),
		slog.Duration("misfire_grace", s.config.MisfireGrace),
	)
	return nil
}

// Reload removes every trigger and re-arms one per enabled definition
func (s *Scheduler) Reload(ctx context.Context) error {
	defs, err := s.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list job definitions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	for id, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}

	catalog := s.registry.Catalog()
	for _, def := range defs {
		spec, ok := catalog.Get(def.JobID)
		if !ok || !def.Enabled {
			continue
		}

		sched, err := ParseSchedule(def.CronExpr, def.Timezone)
		if err != nil {
			s.logger.Warn("Skipping job with invalid schedule",
				slog.String("job_id", def.JobID),
				slog.String("cron_expr", def.CronExpr),
				slog.String("timezone", def.Timezone),
				slog.Any("error", err),
			)
			continue
		}

		grace := s.config.MisfireGrace
		if spec.MisfireGrace > 0 {
			grace = spec.MisfireGrace
		}
		job := &scheduledJob{s: s, jobID: def.JobID, grace: grace}
		wrapped := cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger})).Then(job)
		job.entryID = s.cron.Schedule(sched, wrapped)
		s.entries[def.JobID] = job.entryID
	}

	s.logger.Info("Scheduler triggers armed", slog.Int("count", len(s.entries)))
	return nil
}

// Shutdown stops the engine and cancels pending warm-up timers without waiting for in-flight runs
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.entries = make(map[string]cron.EntryID)
	s.logger.Info("Scheduler stopped")
}

// Running reports whether the cron engine is started
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRunTime returns when the armed trigger of jobID fires next
func (s *Scheduler) NextRunTime(jobID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}, false
	}
	id, ok := s.entries[jobID]
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}

func (s *Scheduler) entry(id cron.EntryID) cron.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return cron.Entry{}
	}
	return s.cron.Entry(id)
}

// scheduledJob waits for a worker slot and drops fires past the grace window
type scheduledJob struct {
	s       *Scheduler
	jobID   string
	grace   time.Duration
	entryID cron.EntryID
}

func (j *scheduledJob) Run() {
	fired := j.s.now()
	scheduled := j.s.entry(j.entryID).Prev
	if scheduled.IsZero() {
		scheduled = fired
	}

	j.s.sem <- struct{}{}
	defer func() { <-j.s.sem }()

	if late := j.s.now().Sub(scheduled); misfired(late, j.grace) {
		j.s.logger.Warn("Dropping misfired trigger",
			slog.String("job_id", j.jobID),
			slog.Duration("late", late),
			slog.Duration("grace", j.grace),
		)
		return
	}

	if _, err := j.s.trigger.RunNow(context.Background(), j.jobID, nil, domain.TriggeredByScheduler); err != nil {
		j.s.logger.Error("Scheduled run failed to start",
			slog.String("job_id", j.jobID),
			slog.Any("error", err),
		)
	}
}

func misfired(late, grace time.Duration) bool {
	return late > grace
}

// cronLogger routes robfig/cron logs to slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
