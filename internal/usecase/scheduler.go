package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pitchdata/footystats/internal/platform/logging"
)

type SchedulerConfig struct {
	IngestOnStartup bool
	// TransitionRunAt is the daily trigger in "15:04" form, interpreted in UTC.
	TransitionRunAt string
}

// Scheduler drives the worker: one ingestion pass at startup, then the
// transition job once a day at a fixed wall-clock time.
type Scheduler struct {
	ingestion  *IngestionService
	transition *TransitionService
	cfg        SchedulerConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewScheduler(ingestion *IngestionService, transition *TransitionService, cfg SchedulerConfig, logger *logging.Logger) (*Scheduler, error) {
	if _, err := time.Parse("15:04", cfg.TransitionRunAt); err != nil {
		return nil, fmt.Errorf("%w: transition run time %q is not HH:MM", ErrInvalidInput, cfg.TransitionRunAt)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Scheduler{
		ingestion:  ingestion,
		transition: transition,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Run blocks until the context is canceled. Job failures are logged and do
// not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.IngestOnStartup {
		if err := s.ingestion.Run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "startup ingestion failed", "error", err)
		}
	}

	for {
		next := nextRunAt(s.now().UTC(), s.cfg.TransitionRunAt)
		s.logger.InfoContext(ctx, "transition run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(s.now().UTC()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.transition.Run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "transition run failed", "error", err)
		}
	}
}

// nextRunAt returns the next occurrence of the HH:MM trigger strictly after
// now. runAt must already be validated.
func nextRunAt(now time.Time, runAt string) time.Time {
	clock, _ := time.Parse("15:04", runAt)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
