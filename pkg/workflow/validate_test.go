package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/models"
)

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "Welcome flow",
		Trigger:  &models.Trigger{Type: models.TriggerLeadCreated},
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger},
			{ID: "greet", Type: models.NodeTypeSendMessage, Data: map[string]any{
				"channel": "whatsapp",
				"content": "Welcome {{.lead.name}}!",
			}},
			{ID: "finish", Type: models.NodeTypeEnd},
		},
		Edges: []*models.Edge{
			{Source: "start", Target: "greet"},
			{Source: "greet", Target: "finish"},
		},
	}
}

func TestValidateForActivation_Valid(t *testing.T) {
	assert.NoError(t, ValidateForActivation(validWorkflow(), expression.NewEngine()))
}

func TestValidateForActivation_DanglingEdge(t *testing.T) {
	workflow := validWorkflow()
	workflow.Edges = append(workflow.Edges, &models.Edge{Source: "greet", Target: "ghost"})

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Contains(t, err.Error(), "unknown target node")
}

func TestValidateForActivation_DuplicateNodeID(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.Node{ID: "finish", Type: models.NodeTypeEnd})

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate node id "finish"`)
}

func TestValidateForActivation_NoTriggerNode(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes = workflow.Nodes[1:]
	workflow.Edges = workflow.Edges[1:]

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trigger node")
}

func TestValidateForActivation_MultipleTriggerNodes(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.Node{ID: "start2", Type: models.NodeTypeTrigger})

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want exactly one")
}

func TestValidateForActivation_UnknownTriggerType(t *testing.T) {
	workflow := validWorkflow()
	workflow.Trigger.Type = models.TriggerType("full_moon")

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trigger type")
}

func TestValidateForActivation_UnknownNodeType(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.Node{ID: "mystery", Type: models.NodeType("teleport")})

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node type")
}

func TestValidateForActivation_BadNodeConfig(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes[1].Data = map[string]any{"channel": "whatsapp"}

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "greet"`)
}

func TestValidateForActivation_BadConditionNodeExpression(t *testing.T) {
	workflow := validWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.Node{
		ID:   "check",
		Type: models.NodeTypeCondition,
		Data: map[string]any{"expression": "lead.score >"},
	})
	workflow.Edges = append(workflow.Edges, &models.Edge{Source: "greet", Target: "check"})

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "check" expression`)
}

func TestValidateForActivation_BadEdgeCondition(t *testing.T) {
	workflow := validWorkflow()
	workflow.Edges[1].Condition = "lead.score >"

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edge 1 condition")
}

func TestValidateForActivation_CollectsEveryProblem(t *testing.T) {
	workflow := validWorkflow()
	workflow.Trigger.Type = models.TriggerType("full_moon")
	workflow.Edges = append(workflow.Edges, &models.Edge{Source: "ghost", Target: "finish"})

	err := ValidateForActivation(workflow, expression.NewEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trigger type")
	assert.Contains(t, err.Error(), "unknown source node")
}
