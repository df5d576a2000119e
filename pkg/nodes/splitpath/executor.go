// Package splitpath implements the split_path node: every outgoing edge is
// taken regardless of edge conditions, fanning the traversal out into parallel
// branches.
package splitpath

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
	return models.NodeTypeSplitPath
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	return &protocol.ExecutorResult{
		Outcome:      protocol.OutcomeContinue,
		TakeAllEdges: true,
	}, nil
}
