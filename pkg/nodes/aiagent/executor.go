// Package aiagent implements the ai_agent node: one conversational step
// delegated to the AI collaborator, with its outputs merged back into the
// execution context.
package aiagent

import (
	"context"
	"fmt"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type Executor struct {
	agent protocol.AgentClient
}

func NewExecutor(agent protocol.AgentClient) *Executor {
	return &Executor{agent: agent}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeAIAgent
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.AIAgentConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	execution := env.Execution

	reply, err := e.agent.Advance(ctx, protocol.AgentRequest{
		TenantID:     execution.TenantID,
		AgentID:      config.AgentID,
		LeadID:       execution.LeadID,
		Instructions: config.Instructions,
		Context:      execution.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("agent step failed: %w", err)
	}

	output := map[string]any{}

	for key, value := range reply.Outputs {
		output[key] = value
	}

	if reply.Message != "" {
		output["message"] = reply.Message
	}

	return protocol.Continue(output), nil
}
