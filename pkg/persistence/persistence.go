// Package persistence provides the data storage abstraction for workflows,
// executions and wait states, the only durable state the engine owns.
package persistence

import (
	"context"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
)

// ExecutionFilter narrows execution queries on the read-only query surface.
type ExecutionFilter struct {
	WorkflowID string
	LeadID     string
	Status     models.ExecutionStatus
}

// WorkflowRepository stores workflow definitions. Node and edge structures are
// nested within the workflow record, not normalized into separate rows, so
// graph reads are atomic.
type WorkflowRepository interface {
	Workflows(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	// ActiveWorkflowsByTrigger returns active workflows whose trigger type
	// equals the given event type, for the trigger matcher.
	ActiveWorkflowsByTrigger(ctx context.Context, tenantID string, triggerType models.TriggerType) ([]*models.Workflow, error)
	SetWorkflowActive(ctx context.Context, id string, active bool) error
}

// ExecutionRepository stores execution records. Status transitions that need
// mutual exclusion (resume, cancel) go through TransitionStatus, which is a
// conditional update: it succeeds for exactly one concurrent caller.
type ExecutionRepository interface {
	SaveExecution(ctx context.Context, execution *models.Execution) error
	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	Executions(ctx context.Context, filter ExecutionFilter) ([]*models.Execution, error)
	ExecutionStatus(ctx context.Context, id string) (models.ExecutionStatus, error)

	// HasNonTerminalExecution reports whether a running or suspended
	// execution exists for the (workflow, lead) pair. Used for run-once dedup.
	HasNonTerminalExecution(ctx context.Context, workflowID, leadID string) (bool, error)

	// TransitionStatus atomically moves the execution from one of the given
	// statuses to the target. Returns false when no transition happened.
	TransitionStatus(ctx context.Context, id string, from []models.ExecutionStatus, to models.ExecutionStatus) (bool, error)
}

// WaitStateRepository stores suspended-node wait records.
type WaitStateRepository interface {
	SaveWaitState(ctx context.Context, wait *models.WaitState) error
	PendingWait(ctx context.Context, executionID, nodeID string) (*models.WaitState, error)
	PendingWaitsByExecution(ctx context.Context, executionID string) ([]*models.WaitState, error)

	// DueWaitStates returns un-resumed timed waits whose resume time has
	// passed, for the timer sweep.
	DueWaitStates(ctx context.Context, now time.Time, limit int) ([]*models.WaitState, error)

	// PendingWaitsForEvent returns un-resumed event waits whose match
	// signature could be satisfied by the event, for the trigger matcher.
	PendingWaitsForEvent(ctx context.Context, event *models.Event) ([]*models.WaitState, error)

	// MarkWaitResumed conditionally flips the resumed flag. Returns false
	// when the wait was already resumed, making duplicate signals no-ops.
	MarkWaitResumed(ctx context.Context, id string) (bool, error)
}

type Persistence interface {
	WorkflowRepository
	ExecutionRepository
	WaitStateRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
