// Package webhook implements the webhook node: an outbound POST carrying the
// execution context to a customer endpoint. Like the send nodes it consults
// the reputation gate first; a denial suspends the branch with a throttle wait.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

// Channel is the reputation channel webhook deliveries are scored under.
const Channel = "webhook"

type Executor struct {
	caller protocol.WebhookCaller
	gate   protocol.ReputationGate
}

func NewExecutor(caller protocol.WebhookCaller, gate protocol.ReputationGate) *Executor {
	return &Executor{caller: caller, gate: gate}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeWebhook
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.WebhookConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	execution := env.Execution

	decision, err := e.gate.CanSend(ctx, execution.TenantID, Channel)
	if err != nil {
		return nil, fmt.Errorf("reputation gate check failed: %w", err)
	}

	if !decision.Allowed {
		resumeAt := time.Now().UTC().Add(decision.RetryAfter)

		env.Logger.InfoContext(ctx, "webhook deferred by reputation gate",
			"url", config.URL, "retry_after", decision.RetryAfter)

		return protocol.Suspend(&models.WaitState{
			Kind:     models.WaitKindThrottle,
			ResumeAt: &resumeAt,
		}), nil
	}

	payload := map[string]any{
		"execution_id": execution.ID,
		"workflow_id":  execution.WorkflowID,
		"tenant_id":    execution.TenantID,
		"lead":         env.Lead.AsMap(),
		"context":      execution.Context,
	}

	if err := e.caller.PostWebhook(ctx, config.URL, config.Headers, payload); err != nil {
		return nil, fmt.Errorf("webhook call failed: %w", err)
	}

	return protocol.Continue(map[string]any{"webhook_url": config.URL}), nil
}
