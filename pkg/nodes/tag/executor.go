// Package tag implements the add_tag and remove_tag nodes. Both are
// idempotent: adding a tag the lead carries, or removing one it doesn't, is a
// silent no-op at the lead store.
package tag

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type Executor struct {
	nodeType models.NodeType
	leads    protocol.LeadStore
}

func NewExecutor(nodeType models.NodeType, leads protocol.LeadStore) *Executor {
	return &Executor{nodeType: nodeType, leads: leads}
}

func (e *Executor) Type() models.NodeType {
	return e.nodeType
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.TagConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	leadID := env.Execution.LeadID
	if leadID == "" {
		return nil, errors.New("tag node requires a lead-scoped execution")
	}

	switch e.nodeType {
	case models.NodeTypeAddTag:
		err = e.leads.AddTag(ctx, leadID, config.Tag)
	case models.NodeTypeRemoveTag:
		err = e.leads.RemoveTag(ctx, leadID, config.Tag)
	default:
		return nil, fmt.Errorf("tag executor cannot handle node type %s", e.nodeType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to %s tag %q: %w", e.nodeType, config.Tag, err)
	}

	return protocol.Continue(map[string]any{"tag": config.Tag}), nil
}
