package createtask

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadfuse/leadfuse/pkg/mocks"
	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

func testEnv(execution *models.Execution, lead *models.Lead) *protocol.ExecutionEnv {
	return &protocol.ExecutionEnv{
		Execution: execution,
		Lead:      lead,
		Logger:    slog.New(slog.NewTextHandler(os.Stdout, nil)),
	}
}

func TestExecute_RendersTitleAndSetsDueDate(t *testing.T) {
	tasks := &mocks.MockTaskService{}

	tasks.On("CreateTask", mock.Anything, mock.MatchedBy(func(task protocol.TaskRequest) bool {
		if task.Title != "Call Ada" || task.TenantID != "tenant-1" || task.LeadID != "lead-1" {
			return false
		}

		if task.DueAt == nil {
			return false
		}

		due := time.Until(*task.DueAt)

		return due > 47*time.Hour && due < 49*time.Hour
	})).Return(nil)

	executor := NewExecutor(tasks)

	node := &models.Node{ID: "task", Type: models.NodeTypeCreateTask, Data: map[string]any{
		"title":        "Call {{.lead.name}}",
		"due_in_hours": 48,
	}}
	execution := &models.Execution{ID: "exec-1", TenantID: "tenant-1", LeadID: "lead-1"}
	lead := &models.Lead{ID: "lead-1", Name: "Ada"}

	result, err := executor.Execute(context.Background(), node, testEnv(execution, lead))
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeContinue, result.Outcome)
	assert.Equal(t, "Call Ada", result.Output["task_title"])

	tasks.AssertExpectations(t)
}

func TestExecute_NoDueDateWhenUnset(t *testing.T) {
	tasks := &mocks.MockTaskService{}

	tasks.On("CreateTask", mock.Anything, mock.MatchedBy(func(task protocol.TaskRequest) bool {
		return task.DueAt == nil
	})).Return(nil)

	executor := NewExecutor(tasks)

	node := &models.Node{ID: "task", Type: models.NodeTypeCreateTask, Data: map[string]any{
		"title": "Follow up",
	}}
	execution := &models.Execution{ID: "exec-1", TenantID: "tenant-1"}

	_, err := executor.Execute(context.Background(), node, testEnv(execution, nil))
	require.NoError(t, err)

	tasks.AssertExpectations(t)
}

func TestExecute_MissingTitle(t *testing.T) {
	executor := NewExecutor(&mocks.MockTaskService{})

	node := &models.Node{ID: "task", Type: models.NodeTypeCreateTask}
	execution := &models.Execution{ID: "exec-1", TenantID: "tenant-1"}

	_, err := executor.Execute(context.Background(), node, testEnv(execution, nil))
	assert.Error(t, err)
}
