package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestWorkflowRoundTrip(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "Welcome flow",
		Trigger:  &models.Trigger{Type: models.TriggerLeadCreated},
		Nodes:    []*models.Node{{ID: "start", Type: models.NodeTypeTrigger}},
	}

	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	loaded, err := fp.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome flow", loaded.Name)
	assert.Equal(t, models.TriggerLeadCreated, loaded.Trigger.Type)
}

func TestWorkflowByID_NotFound(t *testing.T) {
	fp := newTestPersistence(t)

	_, err := fp.WorkflowByID(context.Background(), "ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDeleteWorkflow_NotFound(t *testing.T) {
	fp := newTestPersistence(t)

	err := fp.DeleteWorkflow(context.Background(), "ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestActiveWorkflowsByTrigger(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	save := func(id, tenant string, triggerType models.TriggerType, active bool) {
		require.NoError(t, fp.SaveWorkflow(ctx, &models.Workflow{
			ID:       id,
			TenantID: tenant,
			Name:     "wf " + id,
			Trigger:  &models.Trigger{Type: triggerType},
			Active:   active,
		}))
	}

	save("wf-1", "tenant-1", models.TriggerTagAdded, true)
	save("wf-2", "tenant-1", models.TriggerTagAdded, false)
	save("wf-3", "tenant-1", models.TriggerLeadCreated, true)
	save("wf-4", "tenant-2", models.TriggerTagAdded, true)

	workflows, err := fp.ActiveWorkflowsByTrigger(ctx, "tenant-1", models.TriggerTagAdded)
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, "wf-1", workflows[0].ID)
}

func TestSetWorkflowActive(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, fp.SaveWorkflow(ctx, &models.Workflow{ID: "wf-1", TenantID: "tenant-1", Name: "flow"}))
	require.NoError(t, fp.SetWorkflowActive(ctx, "wf-1", true))

	loaded, err := fp.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, loaded.Active)
}

func TestTransitionStatus_Conditional(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, fp.SaveExecution(ctx, &models.Execution{
		ID:     "exec-1",
		Status: models.ExecutionRunning,
	}))

	moved, err := fp.TransitionStatus(ctx, "exec-1",
		[]models.ExecutionStatus{models.ExecutionRunning}, models.ExecutionCancelled)
	require.NoError(t, err)
	assert.True(t, moved)

	// The execution already left running; a second transition must lose.
	moved, err = fp.TransitionStatus(ctx, "exec-1",
		[]models.ExecutionStatus{models.ExecutionRunning}, models.ExecutionCompleted)
	require.NoError(t, err)
	assert.False(t, moved)

	status, err := fp.ExecutionStatus(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCancelled, status)
}

func TestHasNonTerminalExecution(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, fp.SaveExecution(ctx, &models.Execution{
		ID: "exec-1", WorkflowID: "wf-1", LeadID: "lead-1", Status: models.ExecutionCompleted,
	}))

	active, err := fp.HasNonTerminalExecution(ctx, "wf-1", "lead-1")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, fp.SaveExecution(ctx, &models.Execution{
		ID: "exec-2", WorkflowID: "wf-1", LeadID: "lead-1", Status: models.ExecutionSuspended,
	}))

	active, err = fp.HasNonTerminalExecution(ctx, "wf-1", "lead-1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestExecutions_Filter(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, fp.SaveExecution(ctx, &models.Execution{
		ID: "exec-1", WorkflowID: "wf-1", LeadID: "lead-1", Status: models.ExecutionCompleted,
		StartedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, fp.SaveExecution(ctx, &models.Execution{
		ID: "exec-2", WorkflowID: "wf-1", LeadID: "lead-2", Status: models.ExecutionRunning,
		StartedAt: time.Now(),
	}))

	all, err := fp.Executions(ctx, persistence.ExecutionFilter{WorkflowID: "wf-1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "exec-2", all[0].ID, "newest first")

	byLead, err := fp.Executions(ctx, persistence.ExecutionFilter{WorkflowID: "wf-1", LeadID: "lead-1"})
	require.NoError(t, err)
	require.Len(t, byLead, 1)
	assert.Equal(t, "exec-1", byLead[0].ID)

	byStatus, err := fp.Executions(ctx, persistence.ExecutionFilter{Status: models.ExecutionRunning})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "exec-2", byStatus[0].ID)
}

func TestMarkWaitResumed_SingleWinner(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, fp.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-1", ExecutionID: "exec-1", NodeID: "delay-1", Kind: models.WaitKindDelay,
	}))

	won, err := fp.MarkWaitResumed(ctx, "wait-1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = fp.MarkWaitResumed(ctx, "wait-1")
	require.NoError(t, err)
	assert.False(t, won, "duplicate resume must lose")
}

func TestPendingWait_IgnoresResumed(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, fp.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-1", ExecutionID: "exec-1", NodeID: "delay-1",
		Kind: models.WaitKindDelay, Resumed: true,
	}))

	_, err := fp.PendingWait(ctx, "exec-1", "delay-1")
	assert.True(t, persistence.IsWaitStateNotFound(err))
}

func TestDueWaitStates(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	earlier := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	save := func(id string, kind models.WaitKind, resumeAt *time.Time, resumed bool) {
		require.NoError(t, fp.SaveWaitState(ctx, &models.WaitState{
			ID: id, ExecutionID: "exec-" + id, NodeID: "node", Kind: kind,
			ResumeAt: resumeAt, Resumed: resumed,
		}))
	}

	save("due-delay", models.WaitKindDelay, &past, false)
	save("due-throttle", models.WaitKindThrottle, &earlier, false)
	save("not-due", models.WaitKindDelay, &future, false)
	save("already-resumed", models.WaitKindDelay, &past, true)
	save("event-wait", models.WaitKindReply, nil, false)

	due, err := fp.DueWaitStates(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)

	// Ordered by resume time, earliest first.
	assert.Equal(t, "due-throttle", due[0].ID)
	assert.Equal(t, "due-delay", due[1].ID)

	limited, err := fp.DueWaitStates(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "due-throttle", limited[0].ID)
}

func TestPendingWaitsForEvent(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, fp.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-1", ExecutionID: "exec-1", TenantID: "tenant-1", NodeID: "reply-1",
		Kind:  models.WaitKindReply,
		Match: &models.EventMatch{EventType: models.TriggerMessageReceived, LeadID: "lead-1"},
	}))
	require.NoError(t, fp.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-2", ExecutionID: "exec-2", TenantID: "tenant-2", NodeID: "reply-1",
		Kind:  models.WaitKindReply,
		Match: &models.EventMatch{EventType: models.TriggerMessageReceived, LeadID: "lead-1"},
	}))

	waits, err := fp.PendingWaitsForEvent(ctx, &models.Event{
		TenantID: "tenant-1",
		Type:     models.TriggerMessageReceived,
		LeadID:   "lead-1",
	})
	require.NoError(t, err)
	require.Len(t, waits, 1, "other tenant's wait must not match")
	assert.Equal(t, "wait-1", waits[0].ID)
}

func TestHealthCheck(t *testing.T) {
	fp := newTestPersistence(t)
	assert.NoError(t, fp.HealthCheck(context.Background()))

	missing := NewPersistence("/nonexistent/leadfuse-test-root")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
