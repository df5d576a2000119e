package protocol

import (
	"context"
	"log/slog"

	"github.com/leadfuse/leadfuse/pkg/models"
)

// Outcome is what a node executor decided.
type Outcome string

const (
	// OutcomeContinue proceeds to successor edges, evaluated normally.
	OutcomeContinue Outcome = "continue"
	// OutcomeSuspend persists a wait state and parks this branch.
	OutcomeSuspend Outcome = "suspend"
	// OutcomeEnd marks the execution completed once the frontier drains.
	OutcomeEnd Outcome = "end"
)

// ExecutorResult is the union returned by node executors. Failure is expressed
// through the error return of Execute, not through the result.
type ExecutorResult struct {
	Outcome Outcome
	// Output is merged into the execution context on continue.
	Output map[string]any
	// Wait carries kind, resume time and event signature for a suspend; the
	// scheduler fills in execution bookkeeping before persisting it.
	Wait *models.WaitState
	// TakeAllEdges forces every outgoing edge regardless of condition
	// (split_path fan-out).
	TakeAllEdges bool
}

// Continue returns a continue result with the given context output.
func Continue(output map[string]any) *ExecutorResult {
	return &ExecutorResult{Outcome: OutcomeContinue, Output: output}
}

// Suspend returns a suspend result carrying the wait descriptor.
func Suspend(wait *models.WaitState) *ExecutorResult {
	return &ExecutorResult{Outcome: OutcomeSuspend, Wait: wait}
}

// End returns a terminal result.
func End() *ExecutorResult {
	return &ExecutorResult{Outcome: OutcomeEnd}
}

// ExecutionEnv is what a node executor sees: the execution being traversed,
// the lead snapshot (nil for lead-less runs) and a contextual logger.
type ExecutionEnv struct {
	Execution *models.Execution
	Lead      *models.Lead
	Logger    *slog.Logger
}

// NodeExecutor implements one workflow node type. Executors are pure with
// respect to engine state: they read the node config and execution context,
// perform their side effect through collaborators, and return an outcome.
type NodeExecutor interface {
	Type() models.NodeType
	Execute(ctx context.Context, node *models.Node, env *ExecutionEnv) (*ExecutorResult, error)
}
