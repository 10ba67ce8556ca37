package worker

import (
	"context"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/config"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
)

// Scheduler calls Tick at a fixed interval. Overlapping ticks from other
// processes are safe because claims are conditional.
type Scheduler struct {
	worker *Worker
	config config.WorkerConfig
	log    *logger.Logger

	// OnTick is called with every summary, mainly for tests
	OnTick func(TickSummary)
}

// NewScheduler creates a scheduler for w using the worker budgets in cfg
func NewScheduler(w *Worker, cfg config.WorkerConfig, log *logger.Logger) *Scheduler {
	return &Scheduler{
		worker: w,
		config: cfg,
		log:    log.With("component", "Scheduler"),
	}
}

// Run ticks once immediately and then every interval until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.config.Interval()
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s.log.Info("scheduler starting",
		"interval", interval,
		"max_items", s.config.MaxItems,
		"max_duration", s.config.MaxDuration(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	summary := s.worker.Tick(ctx, s.config.MaxItems, s.config.MaxDuration())
	if s.OnTick != nil {
		s.OnTick(summary)
	}
}
