package models

import "time"

// Event is an incoming business event delivered to the trigger matcher:
// a lead was created, a tag was added, an inbound message arrived, a form was
// submitted, a schedule ticked. LeadID and ConversationID are empty for
// lead-less triggers.
type Event struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"       validate:"required"`
	Type           TriggerType    `json:"type"            validate:"required"`
	LeadID         string         `json:"lead_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
