package cmd

import (
	"log/slog"

	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/nodes/aiagent"
	"github.com/leadfuse/leadfuse/pkg/nodes/condition"
	"github.com/leadfuse/leadfuse/pkg/nodes/createtask"
	"github.com/leadfuse/leadfuse/pkg/nodes/delay"
	endnode "github.com/leadfuse/leadfuse/pkg/nodes/end"
	"github.com/leadfuse/leadfuse/pkg/nodes/sendmessage"
	"github.com/leadfuse/leadfuse/pkg/nodes/splitpath"
	"github.com/leadfuse/leadfuse/pkg/nodes/tag"
	triggernode "github.com/leadfuse/leadfuse/pkg/nodes/trigger"
	"github.com/leadfuse/leadfuse/pkg/nodes/updatelead"
	"github.com/leadfuse/leadfuse/pkg/nodes/waitreply"
	"github.com/leadfuse/leadfuse/pkg/nodes/webhook"
	"github.com/leadfuse/leadfuse/pkg/protocol"
	"github.com/leadfuse/leadfuse/pkg/registry"
)

// Collaborators bundles the external services node executors depend on.
type Collaborators struct {
	Leads      protocol.LeadStore
	Dispatcher protocol.MessageDispatcher
	Tasks      protocol.TaskService
	Webhooks   protocol.WebhookCaller
	Agent      protocol.AgentClient
	Gate       protocol.ReputationGate
}

// NewRegistry builds the executor registry with every native node type wired
// to its collaborator.
func NewRegistry(logger *slog.Logger, expressions *expression.Engine, collab Collaborators) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(triggernode.NewExecutor())
	reg.Register(sendmessage.NewExecutor(models.NodeTypeSendMessage, collab.Dispatcher, collab.Gate))
	reg.Register(sendmessage.NewExecutor(models.NodeTypeSendEmail, collab.Dispatcher, collab.Gate))
	reg.Register(tag.NewExecutor(models.NodeTypeAddTag, collab.Leads))
	reg.Register(tag.NewExecutor(models.NodeTypeRemoveTag, collab.Leads))
	reg.Register(updatelead.NewExecutor(collab.Leads))
	reg.Register(createtask.NewExecutor(collab.Tasks))
	reg.Register(delay.NewExecutor())
	reg.Register(waitreply.NewExecutor())
	reg.Register(condition.NewExecutor(expressions))
	reg.Register(splitpath.NewExecutor())
	reg.Register(webhook.NewExecutor(collab.Webhooks, collab.Gate))
	reg.Register(aiagent.NewExecutor(collab.Agent))
	reg.Register(endnode.NewExecutor())

	return reg
}
