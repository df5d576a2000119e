// Package web provides HTTP request and response types for the automation API.
package web

import "github.com/leadfuse/leadfuse/pkg/models"

// NotifyEventRequest is the body of POST /v1/events: one business event from
// the CRM, a channel adapter or an external system.
type NotifyEventRequest struct {
	Type           models.TriggerType `json:"type"            validate:"required"`
	LeadID         string             `json:"lead_id,omitempty"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Payload        map[string]any     `json:"payload,omitempty"`
}

// NotifyEventResponse acknowledges ingestion; matching happens asynchronously.
type NotifyEventResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// CreateWorkflowRequest is the body for creating or replacing a workflow
// definition. Workflows are created inactive; activation is a separate call.
type CreateWorkflowRequest struct {
	Name           string          `json:"name"              validate:"required,min=3"`
	Trigger        *models.Trigger `json:"trigger"           validate:"required"`
	Nodes          []*models.Node  `json:"nodes"`
	Edges          []*models.Edge  `json:"edges"`
	RunOncePerLead bool            `json:"run_once_per_lead"`
}

// ExecuteWorkflowRequest is the body of the manual execute/test entrypoint.
type ExecuteWorkflowRequest struct {
	LeadID         string         `json:"lead_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	TriggerData    map[string]any `json:"trigger_data,omitempty"`
}

// ExecuteWorkflowResponse returns the pre-assigned execution id; the run
// itself happens on a worker.
type ExecuteWorkflowResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// CancelExecutionRequest optionally names why the execution was stopped.
type CancelExecutionRequest struct {
	Reason string `json:"reason,omitempty"`
}
