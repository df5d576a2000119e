// Package waitreply implements the wait_for_reply node: the branch parks on an
// event wait matched against inbound messages for the same lead, and for the
// same conversation when the execution is conversation-scoped.
package waitreply

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeWaitForReply
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.WaitForReplyConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	execution := env.Execution

	if execution.LeadID == "" {
		return nil, errors.New("wait_for_reply node requires a lead-scoped execution")
	}

	return protocol.Suspend(&models.WaitState{
		Kind: models.WaitKindReply,
		Match: &models.EventMatch{
			EventType:      models.TriggerMessageReceived,
			LeadID:         execution.LeadID,
			ConversationID: execution.ConversationID,
			Channel:        config.Channel,
		},
	}), nil
}
