package models

import "time"

// NodeType is the closed set of node kinds the engine executes.
type NodeType string

const (
	NodeTypeTrigger      NodeType = "trigger"
	NodeTypeSendMessage  NodeType = "send_message"
	NodeTypeSendEmail    NodeType = "send_email"
	NodeTypeAddTag       NodeType = "add_tag"
	NodeTypeRemoveTag    NodeType = "remove_tag"
	NodeTypeUpdateLead   NodeType = "update_lead"
	NodeTypeCreateTask   NodeType = "create_task"
	NodeTypeDelay        NodeType = "delay"
	NodeTypeWaitForReply NodeType = "wait_for_reply"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeSplitPath    NodeType = "split_path"
	NodeTypeWebhook      NodeType = "webhook"
	NodeTypeAIAgent      NodeType = "ai_agent"
	NodeTypeEnd          NodeType = "end"
)

// NodeTypes lists every known node type, in no particular order.
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypeTrigger, NodeTypeSendMessage, NodeTypeSendEmail,
		NodeTypeAddTag, NodeTypeRemoveTag, NodeTypeUpdateLead,
		NodeTypeCreateTask, NodeTypeDelay, NodeTypeWaitForReply,
		NodeTypeCondition, NodeTypeSplitPath, NodeTypeWebhook,
		NodeTypeAIAgent, NodeTypeEnd,
	}
}

// Node is one step in a workflow graph. Data holds the raw type-specific
// configuration as stored; DecodeConfig turns it into the typed variant.
// Position is display-only and ignored by the engine.
type Node struct {
	ID        string         `json:"id"   validate:"required"`
	Type      NodeType       `json:"type" validate:"required"`
	Data      map[string]any `json:"data,omitempty"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
}

// NodeResultStatus is the recorded outcome of one node invocation.
type NodeResultStatus string

const (
	NodeResultSuccess   NodeResultStatus = "success"
	NodeResultSuspended NodeResultStatus = "suspended"
	NodeResultFailed    NodeResultStatus = "failed"
)

// NodeResult is one append-only history entry on an execution.
type NodeResult struct {
	NodeID    string           `json:"node_id"`
	Status    NodeResultStatus `json:"status"`
	Output    map[string]any   `json:"output,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
