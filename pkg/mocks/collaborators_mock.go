package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/leadfuse/leadfuse/pkg/protocol"
)

// MockMessageDispatcher is a mock implementation of protocol.MessageDispatcher.
type MockMessageDispatcher struct {
	mock.Mock
}

func (m *MockMessageDispatcher) EnqueueSend(ctx context.Context, send protocol.SendRequest) error {
	args := m.Called(ctx, send)

	return args.Error(0)
}

// MockWebhookCaller is a mock implementation of protocol.WebhookCaller.
type MockWebhookCaller struct {
	mock.Mock
}

func (m *MockWebhookCaller) PostWebhook(ctx context.Context, url string, headers map[string]string, payload map[string]any) error {
	args := m.Called(ctx, url, headers, payload)

	return args.Error(0)
}

// MockTaskService is a mock implementation of protocol.TaskService.
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(ctx context.Context, task protocol.TaskRequest) error {
	args := m.Called(ctx, task)

	return args.Error(0)
}

// MockReputationGate is a mock implementation of protocol.ReputationGate.
type MockReputationGate struct {
	mock.Mock
}

func (m *MockReputationGate) CanSend(ctx context.Context, tenantID, channel string) (protocol.Decision, error) {
	args := m.Called(ctx, tenantID, channel)

	decision, _ := args.Get(0).(protocol.Decision)

	return decision, args.Error(1)
}

func (m *MockReputationGate) RecordResult(ctx context.Context, tenantID, channel string, delivered bool) error {
	args := m.Called(ctx, tenantID, channel, delivered)

	return args.Error(0)
}
