// Package updatelead implements the update_lead node: a partial attribute
// update against the lead store. String field values are rendered as templates
// before the write.
package updatelead

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
	"github.com/leadfuse/leadfuse/pkg/template"
)

type Executor struct {
	leads protocol.LeadStore
}

func NewExecutor(leads protocol.LeadStore) *Executor {
	return &Executor{leads: leads}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeUpdateLead
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.UpdateLeadConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	leadID := env.Execution.LeadID
	if leadID == "" {
		return nil, errors.New("update_lead node requires a lead-scoped execution")
	}

	fields := make(map[string]any, len(config.Fields))

	for key, value := range config.Fields {
		if str, ok := value.(string); ok {
			rendered, err := template.RenderForLead(str, env.Execution, env.Lead)
			if err != nil {
				return nil, fmt.Errorf("failed to render field %q: %w", key, err)
			}

			fields[key] = rendered

			continue
		}

		fields[key] = value
	}

	if err := e.leads.UpdateLead(ctx, leadID, fields); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	return protocol.Continue(map[string]any{"updated_fields": len(fields)}), nil
}
