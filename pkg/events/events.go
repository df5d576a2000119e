// Package events defines the typed bus events and topics the engine produces
// and consumes.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/leadfuse/leadfuse/pkg/models"
)

type EventType string

// Kafka topics.
const Topic = "leadfuse.engine"           // Engine control events: triggers, resumes, lifecycle
const DispatchTopic = "leadfuse.dispatch" // Outbound side effects: sends, tasks

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Inbound signals.
	TriggerReceivedEvent          EventType = "trigger.received"
	ExecutionRequestedEvent       EventType = "execution.requested"
	ExecutionResumeRequestedEvent EventType = "execution.resume_requested"

	// Execution lifecycle.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionSuspendedEvent EventType = "execution.suspended"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Outbound side effects, consumed by channel adapters and the task system.
	SendRequestedEvent EventType = "send.requested"
	TaskRequestedEvent EventType = "task.requested"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id,omitempty"`
	WorkerID  string    `json:"worker_id,omitempty"`
}

func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
	}
}

// TriggerReceived wraps an incoming business event on its way to the trigger
// matcher. Published by the API's notify endpoint and by internal producers
// (timer sweeps publish resume requests instead).
type TriggerReceived struct {
	BaseEvent

	Event *models.Event `json:"event"`
}

func (e TriggerReceived) GetType() EventType { return TriggerReceivedEvent }

// ExecutionRequested asks a worker to start one workflow run. The execution id
// is pre-assigned so the caller can return it synchronously.
type ExecutionRequested struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	LeadID      string         `json:"lead_id,omitempty"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionRequested) GetType() EventType { return ExecutionRequestedEvent }

// ExecutionResumeRequested re-enters a suspended execution: published by the
// timer sweep when a delay elapses and by the matcher when an awaited reply
// arrives. Duplicate deliveries are safe; resume is conditional.
type ExecutionResumeRequested struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func (e ExecutionResumeRequested) GetType() EventType { return ExecutionResumeRequestedEvent }

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	LeadID      string `json:"lead_id,omitempty"`
	TriggerType string `json:"trigger_type,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionSuspended struct {
	BaseEvent

	ExecutionID string          `json:"execution_id"`
	NodeID      string          `json:"node_id"`
	Kind        models.WaitKind `json:"kind"`
	ResumeAt    *time.Time      `json:"resume_at,omitempty"`
}

func (e ExecutionSuspended) GetType() EventType { return ExecutionSuspendedEvent }

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	WorkflowID    string `json:"workflow_id"`
	NodesExecuted int    `json:"nodes_executed"`
	DurationMs    int64  `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	NodeID      string `json:"node_id,omitempty"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

// SendRequested is the fire-and-forget handoff to the channel adapters
// (WhatsApp/SMS/email/voice). Delivery reports come back through the
// reputation gate, not through the engine.
type SendRequested struct {
	BaseEvent

	ExecutionID string `json:"execution_id,omitempty"`
	LeadID      string `json:"lead_id"`
	Channel     string `json:"channel"`
	Content     string `json:"content"`
	TemplateID  string `json:"template_id,omitempty"`
}

func (e SendRequested) GetType() EventType { return SendRequestedEvent }

// TaskRequested is the fire-and-forget handoff to the task system.
type TaskRequested struct {
	BaseEvent

	ExecutionID string     `json:"execution_id,omitempty"`
	LeadID      string     `json:"lead_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

func (e TaskRequested) GetType() EventType { return TaskRequestedEvent }
