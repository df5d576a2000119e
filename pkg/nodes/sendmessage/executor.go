// Package sendmessage implements the send_message and send_email nodes:
// render content against the execution context, consult the reputation gate,
// then enqueue the send toward the channel adapters. A gate denial suspends
// the branch with a throttle wait instead of failing the execution.
package sendmessage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
	"github.com/leadfuse/leadfuse/pkg/template"
)

type Executor struct {
	nodeType   models.NodeType
	dispatcher protocol.MessageDispatcher
	gate       protocol.ReputationGate
}

// NewExecutor builds the executor for either send node type. send_email is the
// same node with the channel pinned to email.
func NewExecutor(nodeType models.NodeType, dispatcher protocol.MessageDispatcher, gate protocol.ReputationGate) *Executor {
	return &Executor{nodeType: nodeType, dispatcher: dispatcher, gate: gate}
}

func (e *Executor) Type() models.NodeType {
	return e.nodeType
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.SendMessageConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	execution := env.Execution

	if execution.LeadID == "" {
		return nil, errors.New("send node requires a lead-scoped execution")
	}

	decision, err := e.gate.CanSend(ctx, execution.TenantID, config.Channel)
	if err != nil {
		return nil, fmt.Errorf("reputation gate check failed: %w", err)
	}

	if !decision.Allowed {
		resumeAt := time.Now().UTC().Add(decision.RetryAfter)

		env.Logger.InfoContext(ctx, "send deferred by reputation gate",
			"channel", config.Channel, "retry_after", decision.RetryAfter)

		return protocol.Suspend(&models.WaitState{
			Kind:     models.WaitKindThrottle,
			ResumeAt: &resumeAt,
		}), nil
	}

	content, err := template.RenderForLead(config.Content, execution, env.Lead)
	if err != nil {
		return nil, fmt.Errorf("failed to render message content: %w", err)
	}

	send := protocol.SendRequest{
		TenantID:   execution.TenantID,
		LeadID:     execution.LeadID,
		Channel:    config.Channel,
		Content:    content,
		TemplateID: config.TemplateID,
	}

	if err := e.dispatcher.EnqueueSend(ctx, send); err != nil {
		return nil, fmt.Errorf("failed to enqueue send: %w", err)
	}

	return protocol.Continue(map[string]any{
		"channel": config.Channel,
		"sent":    true,
	}), nil
}
