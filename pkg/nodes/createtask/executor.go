// Package createtask implements the create_task node: a fire-and-forget task
// record for the external task system.
package createtask

import (
	"context"
	"fmt"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
	"github.com/leadfuse/leadfuse/pkg/template"
)

type Executor struct {
	tasks protocol.TaskService
}

func NewExecutor(tasks protocol.TaskService) *Executor {
	return &Executor{tasks: tasks}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeCreateTask
}

func (e *Executor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	cfg, err := models.DecodeConfig(node.Type, node.Data)
	if err != nil {
		return nil, err
	}

	config, ok := cfg.(*models.CreateTaskConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T for %s node", cfg, node.Type)
	}

	title, err := template.RenderForLead(config.Title, env.Execution, env.Lead)
	if err != nil {
		return nil, fmt.Errorf("failed to render task title: %w", err)
	}

	description, err := template.RenderForLead(config.Description, env.Execution, env.Lead)
	if err != nil {
		return nil, fmt.Errorf("failed to render task description: %w", err)
	}

	task := protocol.TaskRequest{
		TenantID:    env.Execution.TenantID,
		LeadID:      env.Execution.LeadID,
		Title:       title,
		Description: description,
		AssigneeID:  config.AssigneeID,
	}

	if config.DueInHours > 0 {
		dueAt := time.Now().UTC().Add(time.Duration(config.DueInHours) * time.Hour)
		task.DueAt = &dueAt
	}

	if err := e.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return protocol.Continue(map[string]any{"task_title": title}), nil
}
