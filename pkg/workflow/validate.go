package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/models"
)

var workflowValidator = validator.New()

// ErrValidationFailed wraps every activation rejection so callers can map it
// to a 422 without string matching.
var ErrValidationFailed = errors.New("workflow validation failed")

var knownTriggerTypes = map[models.TriggerType]bool{
	models.TriggerLeadCreated:       true,
	models.TriggerLeadUpdated:       true,
	models.TriggerTagAdded:          true,
	models.TriggerTagRemoved:        true,
	models.TriggerMessageReceived:   true,
	models.TriggerFormSubmitted:     true,
	models.TriggerCampaignCompleted: true,
	models.TriggerWebhookReceived:   true,
	models.TriggerScheduleTick:      true,
	models.TriggerAPICall:           true,
}

// ValidateForActivation checks a workflow definition before it may go active:
// struct-level fields, trigger presence, node configurations, edge endpoints
// and edge condition syntax. A workflow failing any check stays inactive.
func ValidateForActivation(workflow *models.Workflow, engine *expression.Engine) error {
	var problems []string

	if err := workflowValidator.Struct(workflow); err != nil {
		problems = append(problems, err.Error())
	}

	if workflow.Trigger != nil && !knownTriggerTypes[workflow.Trigger.Type] {
		problems = append(problems, fmt.Sprintf("unknown trigger type %q", workflow.Trigger.Type))
	}

	problems = append(problems, validateNodes(workflow, engine)...)
	problems = append(problems, validateEdges(workflow, engine)...)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(problems, "; "))
	}

	return nil
}

func validateNodes(workflow *models.Workflow, engine *expression.Engine) []string {
	var problems []string

	seen := make(map[string]bool, len(workflow.Nodes))
	triggerNodes := 0

	for _, node := range workflow.Nodes {
		if node.ID == "" {
			problems = append(problems, "node with empty id")

			continue
		}

		if seen[node.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node id %q", node.ID))
		}

		seen[node.ID] = true

		if node.Type == models.NodeTypeTrigger {
			triggerNodes++
		}

		cfg, err := models.DecodeConfig(node.Type, node.Data)
		if err != nil {
			problems = append(problems, fmt.Sprintf("node %q: %v", node.ID, err))

			continue
		}

		// Condition expressions get the same compile check as edge conditions.
		if conditionCfg, ok := cfg.(*models.ConditionConfig); ok {
			if err := engine.Compile(conditionCfg.Expression); err != nil {
				problems = append(problems, fmt.Sprintf("node %q expression: %v", node.ID, err))
			}
		}
	}

	if triggerNodes == 0 {
		problems = append(problems, "workflow has no trigger node")
	}

	if triggerNodes > 1 {
		problems = append(problems, fmt.Sprintf("workflow has %d trigger nodes, want exactly one", triggerNodes))
	}

	return problems
}

func validateEdges(workflow *models.Workflow, engine *expression.Engine) []string {
	var problems []string

	nodeIDs := make(map[string]bool, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		nodeIDs[node.ID] = true
	}

	for i, edge := range workflow.Edges {
		if !nodeIDs[edge.Source] {
			problems = append(problems, fmt.Sprintf("edge %d references unknown source node %q", i, edge.Source))
		}

		if !nodeIDs[edge.Target] {
			problems = append(problems, fmt.Sprintf("edge %d references unknown target node %q", i, edge.Target))
		}

		if edge.Condition != "" {
			if err := engine.Compile(edge.Condition); err != nil {
				problems = append(problems, fmt.Sprintf("edge %d condition: %v", i, err))
			}
		}
	}

	return problems
}
