// Package condition implements the condition node. Branching itself lives on
// edge conditions; the node evaluates its expression once and records the
// result in the execution context so downstream edges (and humans reading the
// run history) can refer to it.
package condition

import (
	"context"
	"fmt"

	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type Executor struct {
	engine *expression.Engine
}

func NewExecutor(engine *expression.Engine) *Executor {
	return &Executor{engine: engine}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeCondition
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.ConditionConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	result := e.engine.EvaluateBool(ctx, config.Expression,
		expression.EnvFor(env.Execution, env.Lead))

	return protocol.Continue(map[string]any{"result": result}), nil
}
