package file

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
)

const workflowsCollection = "workflows"

// Workflows returns every workflow for the tenant, newest first.
func (fp *Persistence) Workflows(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	return fp.loadWorkflows(func(w *models.Workflow) bool {
		return tenantID == "" || w.TenantID == tenantID
	})
}

// WorkflowByID loads one workflow.
func (fp *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	var workflow models.Workflow

	err := fp.readRecord(workflowsCollection, id, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, err
	}

	return &workflow, nil
}

// SaveWorkflow inserts or replaces a workflow definition.
func (fp *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.writeRecord(workflowsCollection, workflow.ID, workflow)
}

// DeleteWorkflow removes a workflow definition. Existing executions keep
// their graph snapshot and are unaffected.
func (fp *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	err := os.Remove(fp.path(workflowsCollection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrWorkflowNotFound
		}

		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

// ActiveWorkflowsByTrigger returns active workflows with a matching trigger type.
func (fp *Persistence) ActiveWorkflowsByTrigger(ctx context.Context, tenantID string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	return fp.loadWorkflows(func(w *models.Workflow) bool {
		if !w.Active || w.Trigger == nil {
			return false
		}

		if tenantID != "" && w.TenantID != tenantID {
			return false
		}

		return w.Trigger.Type == triggerType
	})
}

// SetWorkflowActive flips the active flag.
func (fp *Persistence) SetWorkflowActive(ctx context.Context, id string, active bool) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	var workflow models.Workflow

	err := fp.readRecord(workflowsCollection, id, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrWorkflowNotFound
		}

		return err
	}

	workflow.Active = active

	return fp.writeRecord(workflowsCollection, id, &workflow)
}

// loadWorkflows reads every workflow passing the filter. Caller holds the lock.
func (fp *Persistence) loadWorkflows(keep func(*models.Workflow) bool) ([]*models.Workflow, error) {
	ids, err := fp.listIDs(workflowsCollection)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		var workflow models.Workflow

		if err := fp.readRecord(workflowsCollection, id, &workflow); err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		if keep(&workflow) {
			workflows = append(workflows, &workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}
