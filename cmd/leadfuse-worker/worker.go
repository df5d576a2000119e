package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leadfuse/leadfuse/pkg/eventbus"
	"github.com/leadfuse/leadfuse/pkg/events"
	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/persistence"
	"github.com/leadfuse/leadfuse/pkg/protocol"
	"github.com/leadfuse/leadfuse/pkg/registry"
	"github.com/leadfuse/leadfuse/pkg/workflow"
)

// WorkerManager consumes engine topics and drives the matcher and scheduler.
// Handler errors nack the message for redelivery; events that can never
// succeed (bad type, missing workflow) are logged and acked so they don't
// wedge the partition.
type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	matcher     *workflow.Matcher
	scheduler   *workflow.Scheduler
}

func NewWorkerManager(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	registry *registry.Registry,
	leadStore protocol.LeadStore,
	expressions *expression.Engine,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:          id,
		logger:      logger.With("module", "worker_manager"),
		persistence: persistence,
		eventBus:    eventBus,
		matcher:     workflow.NewMatcher(persistence, logger),
		scheduler:   workflow.NewScheduler(persistence, registry, leadStore, expressions, eventBus, logger),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	if err := w.eventBus.Handle(events.TriggerReceivedEvent, w.handleTriggerReceived); err != nil {
		return err
	}

	if err := w.eventBus.Handle(events.ExecutionRequestedEvent, w.handleExecutionRequested); err != nil {
		return err
	}

	if err := w.eventBus.Handle(events.ExecutionResumeRequestedEvent, w.handleResumeRequested); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

// handleTriggerReceived resolves a business event into resumptions and fresh
// activations, then runs each. One failing execution doesn't block the others.
func (w *WorkerManager) handleTriggerReceived(ctx context.Context, event any) error {
	received, ok := event.(*events.TriggerReceived)
	if !ok || received.Event == nil {
		w.logger.ErrorContext(ctx, "Invalid event type for TriggerReceived")

		return nil
	}

	logger := w.logger.With(
		"event_id", received.Event.ID,
		"event_type", received.Event.Type,
		"lead_id", received.Event.LeadID,
	)
	logger.InfoContext(ctx, "Processing trigger event")

	activations, resumptions, err := w.matcher.Match(ctx, received.Event)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to match trigger event", "error", err)

		return err
	}

	for _, resumption := range resumptions {
		err := w.scheduler.Resume(ctx, resumption.ExecutionID, resumption.NodeID, resumption.Payload)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to resume execution",
				"execution_id", resumption.ExecutionID, "error", err)
		}
	}

	for _, activation := range activations {
		_, err := w.scheduler.Start(ctx, workflow.StartRequest{
			Workflow:       activation.Workflow,
			LeadID:         activation.LeadID,
			ConversationID: received.Event.ConversationID,
			TriggerData:    activation.TriggerData,
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to start execution",
				"workflow_id", activation.Workflow.ID, "error", err)
		}
	}

	return nil
}

// handleExecutionRequested serves the API's manual execute entrypoint with its
// pre-assigned execution id.
func (w *WorkerManager) handleExecutionRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.ExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ExecutionRequested")

		return nil
	}

	logger := w.logger.With(
		"execution_id", requested.ExecutionID,
		"workflow_id", requested.WorkflowID,
	)
	logger.InfoContext(ctx, "Processing execution request")

	wf, err := w.persistence.WorkflowByID(ctx, requested.WorkflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			logger.ErrorContext(ctx, "Workflow not found, dropping execution request")

			return nil
		}

		return err
	}

	_, err = w.scheduler.Start(ctx, workflow.StartRequest{
		ExecutionID: requested.ExecutionID,
		Workflow:    wf,
		LeadID:      requested.LeadID,
		TriggerData: requested.TriggerData,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to start execution", "error", err)

		return err
	}

	return nil
}

func (w *WorkerManager) handleResumeRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.ExecutionResumeRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ExecutionResumeRequested")

		return nil
	}

	logger := w.logger.With(
		"execution_id", requested.ExecutionID,
		"node_id", requested.NodeID,
	)
	logger.InfoContext(ctx, "Processing resume request")

	err := w.scheduler.Resume(ctx, requested.ExecutionID, requested.NodeID, requested.Payload)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to resume execution", "error", err)

		return err
	}

	return nil
}
