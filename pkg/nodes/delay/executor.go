// Package delay implements the delay node. The branch parks on a timed wait
// state instead of sleeping; the timer service resumes it when the resume time
// passes.
package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeDelay
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.DelayConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	resumeAt := time.Now().UTC().Add(config.ParsedDuration())

	env.Logger.DebugContext(ctx, "parking branch on delay",
		"duration", config.Duration, "resume_at", resumeAt)

	return protocol.Suspend(&models.WaitState{
		Kind:     models.WaitKindDelay,
		ResumeAt: &resumeAt,
	}), nil
}
