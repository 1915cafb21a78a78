package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
)

// WarmupConfig holds startup warm-up configuration
type WarmupConfig struct {
	Enabled       bool
	InitialDelay  time.Duration
	Spacing       time.Duration
	InsightsDelay time.Duration
}

type warmupStep struct {
	JobID string
	Delay time.Duration
}

// warmupPlan staggers every data job, then the insight job after the last of them
func warmupPlan(jobIDs []string, cfg WarmupConfig) []warmupStep {
	var steps []warmupStep
	delay := cfg.InitialDelay
	last := delay
	hasInsights := false

	for _, id := range jobIDs {
		switch id {
		case domain.JobCleanupSnapshots:
			continue
		case domain.JobGenerateHomepageInsights:
			hasInsights = true
			continue
		}
		steps = append(steps, warmupStep{JobID: id, Delay: delay})
		last = delay
		delay += cfg.Spacing
	}

	if hasInsights {
		steps = append(steps, warmupStep{JobID: domain.JobGenerateHomepageInsights, Delay: last + cfg.InsightsDelay})
	}
	return steps
}

// scheduleWarmup fires the plan once when no snapshot exists yet
func (s *Scheduler) scheduleWarmup(ctx context.Context) {
	if !s.config.Warmup.Enabled || s.counter == nil {
		return
	}

	count, err := s.counter.CountSnapshots(ctx)
	if err != nil {
		s.logger.Warn("Skipping warm-up, snapshot count failed", slog.Any("error", err))
		return
	}
	if count > 0 {
		return
	}

	plan := warmupPlan(s.registry.Catalog().IDs(), s.config.Warmup)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, step := range plan {
		jobID := step.JobID
		t := time.AfterFunc(step.Delay, func() {
			if _, err := s.trigger.RunNow(context.Background(), jobID, nil, domain.TriggeredByStartup); err != nil {
				s.logger.Error("Warm-up run failed to start",
					slog.String("job_id", jobID),
					slog.Any("error", err),
				)
			}
		})
		s.timers = append(s.timers, t)
	}

	s.logger.Info("Warm-up scheduled", slog.Int("jobs", len(plan)))
}
