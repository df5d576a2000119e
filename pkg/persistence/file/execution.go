package file

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
)

const executionsCollection = "executions"

// SaveExecution inserts or replaces an execution record.
func (fp *Persistence) SaveExecution(ctx context.Context, execution *models.Execution) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.writeRecord(executionsCollection, execution.ID, execution)
}

// ExecutionByID loads one execution.
func (fp *Persistence) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	return fp.readExecution(id)
}

// Executions returns executions matching the filter, newest first.
func (fp *Persistence) Executions(ctx context.Context, filter persistence.ExecutionFilter) ([]*models.Execution, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	ids, err := fp.listIDs(executionsCollection)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution, err := fp.readExecution(id)
		if err != nil {
			return nil, err
		}

		if filter.WorkflowID != "" && execution.WorkflowID != filter.WorkflowID {
			continue
		}

		if filter.LeadID != "" && execution.LeadID != filter.LeadID {
			continue
		}

		if filter.Status != "" && execution.Status != filter.Status {
			continue
		}

		executions = append(executions, execution)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

// ExecutionStatus returns just the status of one execution.
func (fp *Persistence) ExecutionStatus(ctx context.Context, id string) (models.ExecutionStatus, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	execution, err := fp.readExecution(id)
	if err != nil {
		return "", err
	}

	return execution.Status, nil
}

// HasNonTerminalExecution reports whether a running or suspended execution
// exists for the (workflow, lead) pair.
func (fp *Persistence) HasNonTerminalExecution(ctx context.Context, workflowID, leadID string) (bool, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	ids, err := fp.listIDs(executionsCollection)
	if err != nil {
		return false, err
	}

	for _, id := range ids {
		execution, err := fp.readExecution(id)
		if err != nil {
			return false, err
		}

		if execution.WorkflowID == workflowID && execution.LeadID == leadID &&
			!execution.Status.Terminal() {
			return true, nil
		}
	}

	return false, nil
}

// TransitionStatus atomically moves the execution between statuses. The
// in-process write lock makes read-compare-write atomic for this backend.
func (fp *Persistence) TransitionStatus(ctx context.Context, id string, from []models.ExecutionStatus, to models.ExecutionStatus) (bool, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	execution, err := fp.readExecution(id)
	if err != nil {
		return false, err
	}

	eligible := false

	for _, status := range from {
		if execution.Status == status {
			eligible = true

			break
		}
	}

	if !eligible {
		return false, nil
	}

	execution.Status = to

	if err := fp.writeRecord(executionsCollection, id, execution); err != nil {
		return false, err
	}

	return true, nil
}

// readExecution loads one execution. Caller holds the lock.
func (fp *Persistence) readExecution(id string) (*models.Execution, error) {
	var execution models.Execution

	err := fp.readRecord(executionsCollection, id, &execution)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
	}

	return &execution, nil
}
