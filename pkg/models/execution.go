package models

import "time"

// ExecutionStatus is the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionSuspended ExecutionStatus = "suspended"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal executions are
// immutable and retained for audit.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

// GraphSnapshot is the workflow graph captured at execution start. In-flight
// executions traverse the snapshot, never the live workflow definition.
type GraphSnapshot struct {
	WorkflowID string  `json:"workflow_id"`
	Nodes      []*Node `json:"nodes"`
	Edges      []*Edge `json:"edges"`
}

// NodeByID returns the snapshot node with the given id, or nil.
func (g *GraphSnapshot) NodeByID(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// TriggerNode returns the snapshot's entry node, or nil.
func (g *GraphSnapshot) TriggerNode() *Node {
	for _, n := range g.Nodes {
		if n.Type == NodeTypeTrigger {
			return n
		}
	}

	return nil
}

// OutgoingEdges returns every edge whose source is the given node.
func (g *GraphSnapshot) OutgoingEdges(nodeID string) []*Edge {
	var out []*Edge

	for _, e := range g.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}

	return out
}

// Execution is one run of a workflow against a triggering event, optionally
// scoped to a lead. Mutated only by the execution scheduler; NodeResults is
// append-only and Frontier only ever contains snapshot node ids.
type Execution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	TenantID       string          `json:"tenant_id"`
	LeadID         string          `json:"lead_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Snapshot       *GraphSnapshot  `json:"snapshot"`
	Status         ExecutionStatus `json:"status"`
	Context        map[string]any  `json:"context"`
	NodeResults    []NodeResult    `json:"node_results"`
	Frontier       []string        `json:"frontier"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// AppendResult records one node outcome in execution order.
func (e *Execution) AppendResult(nodeID string, status NodeResultStatus, output map[string]any, errMsg string) {
	e.NodeResults = append(e.NodeResults, NodeResult{
		NodeID:    nodeID,
		Status:    status,
		Output:    output,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	})
}
