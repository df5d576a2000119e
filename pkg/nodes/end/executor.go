// Package end implements the terminal node.
package end

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
	return models.NodeTypeEnd
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	return protocol.End(), nil
}
