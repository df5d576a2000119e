// Package models defines the core domain models for the workflow automation engine.
package models

import "time"

// TriggerType identifies the business event kind a workflow reacts to.
type TriggerType string

const (
	TriggerLeadCreated       TriggerType = "lead_created"
	TriggerLeadUpdated       TriggerType = "lead_updated"
	TriggerTagAdded          TriggerType = "tag_added"
	TriggerTagRemoved        TriggerType = "tag_removed"
	TriggerMessageReceived   TriggerType = "message_received"
	TriggerFormSubmitted     TriggerType = "form_submitted"
	TriggerCampaignCompleted TriggerType = "campaign_completed"
	TriggerWebhookReceived   TriggerType = "webhook_received"
	TriggerScheduleTick      TriggerType = "schedule_tick"
	TriggerAPICall           TriggerType = "api_call"
)

// Trigger describes which events start a workflow. Config carries the
// type-specific predicate (e.g. {"tag": "vip"} for tag_added).
type Trigger struct {
	Type   TriggerType    `json:"type"             validate:"required"`
	Config map[string]any `json:"config,omitempty"`
}

// Edge connects two nodes. An empty Condition is unconditional; otherwise the
// expression is evaluated against the execution context and the edge is taken
// only when it yields true. A node with several outgoing edges fans out to
// every edge that passes.
type Edge struct {
	Source    string `json:"source"              validate:"required"`
	Target    string `json:"target"              validate:"required"`
	Condition string `json:"condition,omitempty"`
}

// Workflow is a tenant-owned automation graph. Once an execution references a
// workflow mid-run it continues against the snapshot captured at start, so
// edits here never affect in-flight runs.
type Workflow struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"         validate:"required"`
	Name           string    `json:"name"              validate:"required,min=3"`
	Trigger        *Trigger  `json:"trigger"           validate:"required"`
	Nodes          []*Node   `json:"nodes"`
	Edges          []*Edge   `json:"edges"`
	Active         bool      `json:"active"`
	RunOncePerLead bool      `json:"run_once_per_lead"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// TriggerNode returns the workflow's entry node, or nil when missing.
func (w *Workflow) TriggerNode() *Node {
	for _, n := range w.Nodes {
		if n.Type == NodeTypeTrigger {
			return n
		}
	}

	return nil
}

// Snapshot deep-copies the graph for execution-time isolation.
func (w *Workflow) Snapshot() *GraphSnapshot {
	nodes := make([]*Node, 0, len(w.Nodes))

	for _, n := range w.Nodes {
		clone := *n
		clone.Data = copyMap(n.Data)
		nodes = append(nodes, &clone)
	}

	edges := make([]*Edge, 0, len(w.Edges))
	for _, e := range w.Edges {
		clone := *e
		edges = append(edges, &clone)
	}

	return &GraphSnapshot{WorkflowID: w.ID, Nodes: nodes, Edges: edges}
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
