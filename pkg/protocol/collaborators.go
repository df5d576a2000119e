// Package protocol defines the contracts between the workflow engine and its
// collaborators: the lead store, message dispatcher, webhook caller, task
// service, AI agent and reputation gate. The engine depends on these as opaque
// services and never reaches past them.
package protocol

import (
	"context"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
)

// LeadStore reads and mutates lead attributes and tags. Tag operations are
// idempotent: adding an existing tag or removing an absent one is a no-op.
type LeadStore interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	UpdateLead(ctx context.Context, id string, partial map[string]any) error
	AddTag(ctx context.Context, id, tag string) error
	RemoveTag(ctx context.Context, id, tag string) error
}

// SendRequest is one outbound message handed to the dispatcher. Delivery is
// asynchronous; the engine never awaits confirmation.
type SendRequest struct {
	TenantID   string `json:"tenant_id"`
	LeadID     string `json:"lead_id"`
	Channel    string `json:"channel"`
	Content    string `json:"content"`
	TemplateID string `json:"template_id,omitempty"`
}

// MessageDispatcher enqueues sends toward the channel adapters.
type MessageDispatcher interface {
	EnqueueSend(ctx context.Context, send SendRequest) error
}

// WebhookCaller fires an outbound POST. Implementations return once the call
// is enqueued; the response body is logged, never awaited.
type WebhookCaller interface {
	PostWebhook(ctx context.Context, url string, headers map[string]string, payload map[string]any) error
}

// TaskRequest is a fire-and-forget task record for the external task system.
type TaskRequest struct {
	TenantID    string     `json:"tenant_id"`
	LeadID      string     `json:"lead_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// TaskService creates external task records.
type TaskService interface {
	CreateTask(ctx context.Context, task TaskRequest) error
}

// AgentRequest asks the AI-conversation collaborator for the next step of a
// lead conversation.
type AgentRequest struct {
	TenantID     string         `json:"tenant_id"`
	AgentID      string         `json:"agent_id"`
	LeadID       string         `json:"lead_id,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// AgentReply carries the agent's decision, merged into the execution context.
type AgentReply struct {
	Message string         `json:"message,omitempty"`
	Outputs map[string]any `json:"outputs,omitempty"`
}

// AgentClient delegates a conversational step to the AI collaborator.
type AgentClient interface {
	Advance(ctx context.Context, req AgentRequest) (*AgentReply, error)
}

// Decision is the reputation gate's answer for one prospective send.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// ReputationGate is consulted before any send-type node executes. A denied
// send suspends and retries after Decision.RetryAfter; it is never a failure,
// since reputation recovers over time.
type ReputationGate interface {
	CanSend(ctx context.Context, tenantID, channel string) (Decision, error)
	RecordResult(ctx context.Context, tenantID, channel string, delivered bool) error
}
