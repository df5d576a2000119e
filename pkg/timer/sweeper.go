// Package timer implements the wake-up service: a cron-driven sweep over due
// timed wait states that publishes resume requests. Several sweeper instances
// may run at once; the scheduler's conditional resume makes duplicate wake-ups
// harmless.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leadfuse/leadfuse/pkg/eventbus"
	"github.com/leadfuse/leadfuse/pkg/events"
	"github.com/leadfuse/leadfuse/pkg/persistence"
)

const (
	DefaultSchedule  = "@every 15s"
	DefaultBatchSize = 200
)

type Sweeper struct {
	persistence persistence.WaitStateRepository
	bus         eventbus.EventPublisher
	cron        *cron.Cron
	schedule    string
	batchSize   int
	logger      *slog.Logger
}

func NewSweeper(persistence persistence.WaitStateRepository, bus eventbus.EventPublisher, schedule string, batchSize int, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Sweeper{
		persistence: persistence,
		bus:         bus,
		cron:        cron.New(),
		schedule:    schedule,
		batchSize:   batchSize,
		logger:      logger.With("module", "timer_sweeper"),
	}
}

// Start registers the sweep job and starts the cron runner.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("timer sweeper started", "schedule", s.schedule, "batch_size", s.batchSize)

	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("timer sweeper stopped")
}

// Sweep publishes one resume request per due wait state. Publishing is at
// least once; the wait state stays pending until a worker wins the resume.
func (s *Sweeper) Sweep(ctx context.Context) error {
	waits, err := s.persistence.DueWaitStates(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to query due wait states: %w", err)
	}

	for _, wait := range waits {
		event := events.ExecutionResumeRequested{
			BaseEvent:   events.NewBaseEvent(events.ExecutionResumeRequestedEvent, wait.TenantID),
			ExecutionID: wait.ExecutionID,
			NodeID:      wait.NodeID,
		}

		if err := s.bus.Publish(ctx, wait.ExecutionID, event); err != nil {
			s.logger.Error("failed to publish resume request",
				"execution_id", wait.ExecutionID, "node_id", wait.NodeID, "error", err)

			continue
		}

		s.logger.Debug("resume requested",
			"execution_id", wait.ExecutionID, "node_id", wait.NodeID, "kind", wait.Kind)
	}

	if len(waits) > 0 {
		s.logger.Info("sweep published resume requests", "count", len(waits))
	}

	return nil
}
