package expression

import "github.com/leadfuse/leadfuse/pkg/models"

// EnvFor builds the evaluation environment for one execution: the lead
// snapshot under "lead", the accumulated execution context under "context"
// and the trigger payload hoisted to "trigger" for shorter conditions.
func EnvFor(execution *models.Execution, lead *models.Lead) map[string]any {
	env := map[string]any{
		"lead":    lead.AsMap(),
		"context": execution.Context,
	}

	if trigger, ok := execution.Context["trigger"]; ok {
		env["trigger"] = trigger
	}

	return env
}
