// Package trigger implements the workflow entry node. The scheduler seeds the
// execution context with the trigger payload before traversal starts, so the
// node itself only hands control to its successors.
package trigger

import (
	"context"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeTrigger
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	return protocol.Continue(nil), nil
}
