package cronjob

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

type Scheduler struct {
	spec    string
	sweeper *Sweeper
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewScheduler runs sweeper on spec, a six-field cron expression with
// seconds. An empty spec disables scheduling.
func NewScheduler(spec string, sweeper *Sweeper, logger *zap.Logger) *Scheduler {
	return &Scheduler{spec: spec, sweeper: sweeper, logger: logger}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("workspace sweep disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("invalid WORKSPACE_SWEEP_CRON %q: %w", s.spec, err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("cron scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error("workspace sweep failed", zap.Error(err))
	}
}
