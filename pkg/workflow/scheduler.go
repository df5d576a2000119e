// Package workflow contains the engine core: activation validation, the
// trigger matcher and the execution scheduler driving graph traversal.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadfuse/leadfuse/pkg/eventbus"
	"github.com/leadfuse/leadfuse/pkg/events"
	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/otelhelper"
	"github.com/leadfuse/leadfuse/pkg/persistence"
	"github.com/leadfuse/leadfuse/pkg/protocol"
	"github.com/leadfuse/leadfuse/pkg/registry"
)

// Scheduler drives workflow executions: it owns all mutation of execution
// records and runs one traversal pass per invocation. Concurrency control is
// delegated to the repository's conditional updates, so any number of workers
// can share one persistence backend.
type Scheduler struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	leads       protocol.LeadStore
	expressions *expression.Engine
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewScheduler(
	persistence persistence.Persistence,
	registry *registry.Registry,
	leads protocol.LeadStore,
	expressions *expression.Engine,
	eventBus eventbus.EventPublisher,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		persistence: persistence,
		registry:    registry,
		leads:       leads,
		expressions: expressions,
		eventBus:    eventBus,
		tracer:      otel.Tracer("leadfuse.scheduler"),
		logger:      logger.With("module", "scheduler"),
	}
}

// StartRequest describes one fresh execution. ExecutionID may be pre-assigned
// by the caller (the API does, so it can return the id before the worker picks
// the request up); when empty the scheduler assigns one.
type StartRequest struct {
	ExecutionID    string
	Workflow       *models.Workflow
	LeadID         string
	ConversationID string
	TriggerData    map[string]any
}

// Start creates an execution against a snapshot of the workflow graph and runs
// its first traversal pass. The returned execution reflects the state after
// the pass: completed, suspended or failed.
func (s *Scheduler) Start(ctx context.Context, req StartRequest) (*models.Execution, error) {
	workflow := req.Workflow

	triggerNode := workflow.TriggerNode()
	if triggerNode == nil {
		return nil, fmt.Errorf("workflow %s has no trigger node", workflow.ID)
	}

	executionID := req.ExecutionID
	if executionID == "" {
		executionID = uuid.New().String()
	}

	execution := &models.Execution{
		ID:             executionID,
		WorkflowID:     workflow.ID,
		TenantID:       workflow.TenantID,
		LeadID:         req.LeadID,
		ConversationID: req.ConversationID,
		Snapshot:       workflow.Snapshot(),
		Status:         models.ExecutionRunning,
		Context:        map[string]any{"trigger": req.TriggerData},
		Frontier:       []string{triggerNode.ID},
		StartedAt:      time.Now().UTC(),
	}

	if err := s.persistence.SaveExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	triggerType := ""
	if workflow.Trigger != nil {
		triggerType = string(workflow.Trigger.Type)
	}

	s.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, execution.TenantID),
		ExecutionID: execution.ID,
		WorkflowID:  workflow.ID,
		LeadID:      req.LeadID,
		TriggerType: triggerType,
	})

	if err := s.run(ctx, execution); err != nil {
		return execution, err
	}

	return execution, nil
}

// Resume re-enters a suspended execution at the given node. The wait state's
// conditional flip is the mutual exclusion point: of N duplicate resume
// signals exactly one proceeds, the rest are silent no-ops.
func (s *Scheduler) Resume(ctx context.Context, executionID, nodeID string, payload map[string]any) error {
	logger := s.logger.With("execution_id", executionID, "node_id", nodeID)

	wait, err := s.persistence.PendingWait(ctx, executionID, nodeID)
	if err != nil {
		if persistence.IsWaitStateNotFound(err) {
			logger.Debug("no pending wait, ignoring resume signal")

			return nil
		}

		return fmt.Errorf("failed to load wait state: %w", err)
	}

	won, err := s.persistence.MarkWaitResumed(ctx, wait.ID)
	if err != nil {
		return fmt.Errorf("failed to mark wait resumed: %w", err)
	}

	if !won {
		logger.Debug("wait already resumed, ignoring duplicate signal")

		return nil
	}

	status, err := s.persistence.ExecutionStatus(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution status: %w", err)
	}

	if status.Terminal() {
		logger.Debug("execution already terminal, ignoring resume", "status", status)

		return nil
	}

	// Best effort: another branch of the same execution may already have
	// moved it back to running.
	if _, err := s.persistence.TransitionStatus(ctx, executionID,
		[]models.ExecutionStatus{models.ExecutionSuspended}, models.ExecutionRunning); err != nil {
		return fmt.Errorf("failed to transition execution to running: %w", err)
	}

	execution, err := s.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}

	execution.Status = models.ExecutionRunning

	if len(payload) > 0 {
		if execution.Context == nil {
			execution.Context = map[string]any{}
		}

		execution.Context[nodeID] = payload
	}

	execution.Frontier = s.resumeFrontier(ctx, execution, wait, nodeID)

	if err := s.persistence.SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist resumed execution: %w", err)
	}

	logger.Info("resuming execution", "kind", wait.Kind)

	return s.run(ctx, execution)
}

// resumeFrontier decides where traversal restarts. A throttle wait re-runs the
// deferred node itself (the send never happened); every other kind continues
// past the waiting node to its eligible successors.
func (s *Scheduler) resumeFrontier(ctx context.Context, execution *models.Execution, wait *models.WaitState, nodeID string) []string {
	if wait.Kind == models.WaitKindThrottle {
		return []string{nodeID}
	}

	lead := s.fetchLead(ctx, execution)

	return s.eligibleTargets(ctx, execution, lead, nodeID, false)
}

// Cancel terminally stops a running or suspended execution. Cancelling an
// already cancelled execution is a no-op; cancelling a completed or failed one
// is an error.
func (s *Scheduler) Cancel(ctx context.Context, executionID, reason string) error {
	moved, err := s.persistence.TransitionStatus(ctx, executionID,
		[]models.ExecutionStatus{models.ExecutionRunning, models.ExecutionSuspended},
		models.ExecutionCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel execution: %w", err)
	}

	if !moved {
		status, err := s.persistence.ExecutionStatus(ctx, executionID)
		if err != nil {
			return fmt.Errorf("failed to load execution status: %w", err)
		}

		if status == models.ExecutionCancelled {
			return nil
		}

		return fmt.Errorf("execution %s is %s and cannot be cancelled", executionID, status)
	}

	execution, err := s.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}

	now := time.Now().UTC()
	execution.CompletedAt = &now
	execution.ErrorMessage = reason

	if err := s.persistence.SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist cancelled execution: %w", err)
	}

	s.publish(ctx, executionID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.TenantID),
		ExecutionID: executionID,
		Reason:      reason,
	})

	s.logger.Info("execution cancelled", "execution_id", executionID, "reason", reason)

	return nil
}

// run performs one traversal pass: process the frontier breadth-first until it
// drains, then settle the execution's status. Node failures are recorded and
// terminate the execution; they are not returned as errors, so the bus handler
// acks instead of redelivering.
func (s *Scheduler) run(ctx context.Context, execution *models.Execution) error {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "scheduler.pass",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.TenantIDKey, execution.TenantID),
	)
	defer span.End()

	logger := s.logger.With("execution_id", execution.ID, "workflow_id", execution.WorkflowID)
	lead := s.fetchLead(ctx, execution)

	started := time.Now()
	executed := make(map[string]bool)

	env := &protocol.ExecutionEnv{
		Execution: execution,
		Lead:      lead,
		Logger:    logger,
	}

	for len(execution.Frontier) > 0 {
		cancelled, err := s.cancelledMeanwhile(ctx, execution)
		if err != nil {
			return err
		}

		if cancelled {
			logger.Info("execution cancelled mid-pass, stopping traversal")

			return nil
		}

		nodeID := execution.Frontier[0]
		execution.Frontier = execution.Frontier[1:]

		if executed[nodeID] {
			logger.Debug("node already executed this pass, skipping", "node_id", nodeID)

			continue
		}

		node := execution.Snapshot.NodeByID(nodeID)
		if node == nil {
			return s.fail(ctx, execution, nodeID, fmt.Errorf("frontier node %s not in snapshot", nodeID))
		}

		executor, err := s.registry.ExecutorFor(node.Type)
		if err != nil {
			return s.fail(ctx, execution, nodeID, err)
		}

		logger.Debug("executing node", "node_id", nodeID, "node_type", node.Type)

		nodeCtx, nodeSpan := otelhelper.StartSpan(ctx, s.tracer, "scheduler.execute_node",
			attribute.String(otelhelper.NodeIDKey, nodeID),
			attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
		)

		result, err := executor.Execute(nodeCtx, node, env)
		if err != nil {
			otelhelper.SetError(nodeSpan, err)
			nodeSpan.End()

			return s.fail(ctx, execution, nodeID, err)
		}

		nodeSpan.End()

		executed[nodeID] = true

		switch result.Outcome {
		case protocol.OutcomeEnd:
			execution.AppendResult(nodeID, models.NodeResultSuccess, result.Output, "")

		case protocol.OutcomeSuspend:
			if err := s.suspendNode(ctx, execution, nodeID, result.Wait); err != nil {
				return err
			}

		case protocol.OutcomeContinue:
			if len(result.Output) > 0 {
				if execution.Context == nil {
					execution.Context = map[string]any{}
				}

				execution.Context[nodeID] = result.Output
			}

			execution.AppendResult(nodeID, models.NodeResultSuccess, result.Output, "")

			for _, target := range s.eligibleTargets(ctx, execution, lead, nodeID, result.TakeAllEdges) {
				if !executed[target] {
					execution.Frontier = append(execution.Frontier, target)
				}
			}

		default:
			return s.fail(ctx, execution, nodeID, fmt.Errorf("executor returned unknown outcome %q", result.Outcome))
		}

		if err := s.persistence.SaveExecution(ctx, execution); err != nil {
			return fmt.Errorf("failed to persist execution mid-pass: %w", err)
		}
	}

	return s.settle(ctx, execution, len(executed), time.Since(started))
}

// settle decides the post-pass status: pending waits keep the execution
// suspended, an empty wait set completes it. A concurrent cancel wins.
func (s *Scheduler) settle(ctx context.Context, execution *models.Execution, nodesExecuted int, elapsed time.Duration) error {
	pending, err := s.persistence.PendingWaitsByExecution(ctx, execution.ID)
	if err != nil {
		return fmt.Errorf("failed to query pending waits: %w", err)
	}

	target := models.ExecutionCompleted
	if len(pending) > 0 {
		target = models.ExecutionSuspended
	}

	moved, err := s.persistence.TransitionStatus(ctx, execution.ID,
		[]models.ExecutionStatus{models.ExecutionRunning}, target)
	if err != nil {
		return fmt.Errorf("failed to settle execution status: %w", err)
	}

	if !moved {
		status, err := s.persistence.ExecutionStatus(ctx, execution.ID)
		if err != nil {
			return fmt.Errorf("failed to load execution status: %w", err)
		}

		execution.Status = status

		s.logger.Info("execution status changed mid-pass, leaving as-is",
			"execution_id", execution.ID, "status", status)

		return nil
	}

	execution.Status = target

	if target == models.ExecutionCompleted {
		now := time.Now().UTC()
		execution.CompletedAt = &now

		if err := s.persistence.SaveExecution(ctx, execution); err != nil {
			return fmt.Errorf("failed to persist completed execution: %w", err)
		}

		s.publish(ctx, execution.ID, events.ExecutionCompleted{
			BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, execution.TenantID),
			ExecutionID:   execution.ID,
			WorkflowID:    execution.WorkflowID,
			NodesExecuted: nodesExecuted,
			DurationMs:    elapsed.Milliseconds(),
		})

		s.logger.Info("execution completed",
			"execution_id", execution.ID, "nodes_executed", nodesExecuted)
	}

	return nil
}

// suspendNode persists the wait descriptor returned by a node executor and
// records the suspension in the run history. The branch parks here; the timer
// sweep or the matcher wakes it later.
func (s *Scheduler) suspendNode(ctx context.Context, execution *models.Execution, nodeID string, wait *models.WaitState) error {
	if wait == nil {
		return s.fail(ctx, execution, nodeID, errors.New("suspend outcome without wait descriptor"))
	}

	wait.ID = uuid.New().String()
	wait.ExecutionID = execution.ID
	wait.TenantID = execution.TenantID
	wait.NodeID = nodeID
	wait.CreatedAt = time.Now().UTC()

	if err := s.persistence.SaveWaitState(ctx, wait); err != nil {
		return fmt.Errorf("failed to persist wait state: %w", err)
	}

	execution.AppendResult(nodeID, models.NodeResultSuspended, nil, "")

	s.publish(ctx, execution.ID, events.ExecutionSuspended{
		BaseEvent:   events.NewBaseEvent(events.ExecutionSuspendedEvent, execution.TenantID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		Kind:        wait.Kind,
		ResumeAt:    wait.ResumeAt,
	})

	return nil
}

// fail records the node error, moves the execution to failed and returns nil:
// executor failures are terminal outcomes, not transient handler errors.
func (s *Scheduler) fail(ctx context.Context, execution *models.Execution, nodeID string, cause error) error {
	s.logger.Error("node execution failed",
		"execution_id", execution.ID, "node_id", nodeID, "error", cause)

	execution.AppendResult(nodeID, models.NodeResultFailed, nil, cause.Error())

	moved, err := s.persistence.TransitionStatus(ctx, execution.ID,
		[]models.ExecutionStatus{models.ExecutionRunning}, models.ExecutionFailed)
	if err != nil {
		return fmt.Errorf("failed to transition execution to failed: %w", err)
	}

	if moved {
		execution.Status = models.ExecutionFailed
	} else {
		status, statusErr := s.persistence.ExecutionStatus(ctx, execution.ID)
		if statusErr != nil {
			return fmt.Errorf("failed to load execution status: %w", statusErr)
		}

		execution.Status = status
	}

	now := time.Now().UTC()
	execution.CompletedAt = &now
	execution.ErrorMessage = cause.Error()
	execution.Frontier = nil

	if err := s.persistence.SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist failed execution: %w", err)
	}

	s.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, execution.TenantID),
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		NodeID:      nodeID,
		Error:       cause.Error(),
	})

	return nil
}

// eligibleTargets evaluates the outgoing edges of a node. An empty condition
// always passes; an expression that errors, references unknown variables or
// yields a non-boolean simply doesn't pass. Zero eligible edges ends the
// branch silently.
func (s *Scheduler) eligibleTargets(ctx context.Context, execution *models.Execution, lead *models.Lead, nodeID string, takeAll bool) []string {
	var targets []string

	env := expression.EnvFor(execution, lead)

	for _, edge := range execution.Snapshot.OutgoingEdges(nodeID) {
		if takeAll || edge.Condition == "" || s.expressions.EvaluateBool(ctx, edge.Condition, env) {
			targets = append(targets, edge.Target)
		}
	}

	return targets
}

func (s *Scheduler) cancelledMeanwhile(ctx context.Context, execution *models.Execution) (bool, error) {
	status, err := s.persistence.ExecutionStatus(ctx, execution.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check execution status: %w", err)
	}

	return status == models.ExecutionCancelled, nil
}

func (s *Scheduler) fetchLead(ctx context.Context, execution *models.Execution) *models.Lead {
	if execution.LeadID == "" || s.leads == nil {
		return nil
	}

	lead, err := s.leads.GetLead(ctx, execution.LeadID)
	if err != nil {
		s.logger.Warn("failed to fetch lead, continuing without snapshot",
			"execution_id", execution.ID, "lead_id", execution.LeadID, "error", err)

		return nil
	}

	return lead
}

func (s *Scheduler) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.Publish(ctx, key, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
