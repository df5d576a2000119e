package webhook

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

func allowingGate() *mocks.MockReputationGate {
	gate := &mocks.MockReputationGate{}
	gate.On("CanSend", mock.Anything, mock.Anything, Channel).
		Return(protocol.Decision{Allowed: true}, nil)

	return gate
}

func TestExecute_PostsExecutionContext(t *testing.T) {
	caller := &mocks.MockWebhookCaller{}

	caller.On("PostWebhook", mock.Anything, "https://example.com/hook",
		map[string]string{"X-Secret": "s3cret"},
		mock.MatchedBy(func(payload map[string]any) bool {
			return payload["execution_id"] == "exec-1" && payload["tenant_id"] == "tenant-1"
		})).Return(nil)

	executor := NewExecutor(caller, allowingGate())

	node := &models.Node{ID: "hook", Type: models.NodeTypeWebhook, Data: map[string]any{
		"url":     "https://example.com/hook",
		"headers": map[string]any{"X-Secret": "s3cret"},
	}}
	execution := &models.Execution{ID: "exec-1", WorkflowID: "wf-1", TenantID: "tenant-1"}

	result, err := executor.Execute(context.Background(), node, testEnv(execution, nil))
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeContinue, result.Outcome)
	assert.Equal(t, "https://example.com/hook", result.Output["webhook_url"])

	caller.AssertExpectations(t)
}

func TestExecute_GateDenialSuspendsWithThrottle(t *testing.T) {
	caller := &mocks.MockWebhookCaller{}
	gate := &mocks.MockReputationGate{}

	gate.On("CanSend", mock.Anything, "tenant-1", Channel).
		Return(protocol.Decision{Allowed: false, RetryAfter: 10 * time.Minute}, nil)

	executor := NewExecutor(caller, gate)

	node := &models.Node{ID: "hook", Type: models.NodeTypeWebhook, Data: map[string]any{
		"url": "https://example.com/hook",
	}}
	execution := &models.Execution{ID: "exec-1", TenantID: "tenant-1"}

	result, err := executor.Execute(context.Background(), node, testEnv(execution, nil))
	require.NoError(t, err, "a deferral is not a failure")

	assert.Equal(t, protocol.OutcomeSuspend, result.Outcome)
	require.NotNil(t, result.Wait)
	assert.Equal(t, models.WaitKindThrottle, result.Wait.Kind)
	require.NotNil(t, result.Wait.ResumeAt)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *result.Wait.ResumeAt, 15*time.Second)

	caller.AssertNotCalled(t, "PostWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_CallerErrorFailsNode(t *testing.T) {
	caller := &mocks.MockWebhookCaller{}
	caller.On("PostWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)

	executor := NewExecutor(caller, allowingGate())

	node := &models.Node{ID: "hook", Type: models.NodeTypeWebhook, Data: map[string]any{
		"url": "https://example.com/hook",
	}}
	execution := &models.Execution{ID: "exec-1", TenantID: "tenant-1"}

	_, err := executor.Execute(context.Background(), node, testEnv(execution, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook call failed")
}
