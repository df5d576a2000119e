package workflow

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence/file"
)

func newTestMatcher(t *testing.T) (*Matcher, *file.Persistence) {
	t.Helper()

	fp := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewMatcher(fp, logger), fp
}

func saveActiveWorkflow(t *testing.T, fp *file.Persistence, workflow *models.Workflow) {
	t.Helper()

	workflow.Active = true
	require.NoError(t, fp.SaveWorkflow(context.Background(), workflow))
}

func TestMatcher_ActivatesOnTriggerType(t *testing.T) {
	matcher, fp := newTestMatcher(t)
	ctx := context.Background()

	saveActiveWorkflow(t, fp, &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "tag flow",
		Trigger:  &models.Trigger{Type: models.TriggerTagAdded},
	})

	activations, resumptions, err := matcher.Match(ctx, &models.Event{
		ID:       "evt-1",
		TenantID: "tenant-1",
		Type:     models.TriggerTagAdded,
		LeadID:   "lead-1",
		Payload:  map[string]any{"tag": "vip"},
	})
	require.NoError(t, err)
	assert.Empty(t, resumptions)
	require.Len(t, activations, 1)
	assert.Equal(t, "wf-1", activations[0].Workflow.ID)
	assert.Equal(t, "lead-1", activations[0].LeadID)
	assert.Equal(t, "vip", activations[0].TriggerData["tag"])
}

func TestMatcher_TriggerPredicate(t *testing.T) {
	matcher, fp := newTestMatcher(t)
	ctx := context.Background()

	saveActiveWorkflow(t, fp, &models.Workflow{
		ID:       "wf-vip",
		TenantID: "tenant-1",
		Name:     "vip flow",
		Trigger: &models.Trigger{
			Type:   models.TriggerTagAdded,
			Config: map[string]any{"tag": "vip"},
		},
	})

	match := func(tag string) []Activation {
		activations, _, err := matcher.Match(ctx, &models.Event{
			TenantID: "tenant-1",
			Type:     models.TriggerTagAdded,
			LeadID:   "lead-1",
			Payload:  map[string]any{"tag": tag},
		})
		require.NoError(t, err)

		return activations
	}

	assert.Len(t, match("vip"), 1)
	assert.Empty(t, match("newsletter"), "predicate value mismatch must not activate")
}

func TestMatcher_PredicateRequiresKeyPresence(t *testing.T) {
	matcher, fp := newTestMatcher(t)
	ctx := context.Background()

	saveActiveWorkflow(t, fp, &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "form flow",
		Trigger: &models.Trigger{
			Type:   models.TriggerFormSubmitted,
			Config: map[string]any{"form_id": "signup"},
		},
	})

	activations, _, err := matcher.Match(ctx, &models.Event{
		TenantID: "tenant-1",
		Type:     models.TriggerFormSubmitted,
		Payload:  map[string]any{},
	})
	require.NoError(t, err)
	assert.Empty(t, activations)
}

func TestMatcher_RunOncePerLeadSkipsInFlight(t *testing.T) {
	matcher, fp := newTestMatcher(t)
	ctx := context.Background()

	saveActiveWorkflow(t, fp, &models.Workflow{
		ID:             "wf-1",
		TenantID:       "tenant-1",
		Name:           "once flow",
		Trigger:        &models.Trigger{Type: models.TriggerLeadCreated},
		RunOncePerLead: true,
	})

	require.NoError(t, fp.SaveExecution(ctx, &models.Execution{
		ID: "exec-1", WorkflowID: "wf-1", LeadID: "lead-1",
		Status: models.ExecutionSuspended,
	}))

	event := &models.Event{
		TenantID: "tenant-1",
		Type:     models.TriggerLeadCreated,
		LeadID:   "lead-1",
	}

	activations, _, err := matcher.Match(ctx, event)
	require.NoError(t, err)
	assert.Empty(t, activations, "lead already in flight, skip silently")

	// A different lead still activates.
	event.LeadID = "lead-2"

	activations, _, err = matcher.Match(ctx, event)
	require.NoError(t, err)
	assert.Len(t, activations, 1)
}

func TestMatcher_ResumeBeatsActivation(t *testing.T) {
	matcher, fp := newTestMatcher(t)
	ctx := context.Background()

	// A workflow triggered by inbound messages...
	saveActiveWorkflow(t, fp, &models.Workflow{
		ID:       "wf-inbound",
		TenantID: "tenant-1",
		Name:     "inbound flow",
		Trigger:  &models.Trigger{Type: models.TriggerMessageReceived},
	})

	// ...and a suspended execution already waiting for this lead's reply.
	require.NoError(t, fp.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-1", ExecutionID: "exec-1", TenantID: "tenant-1", NodeID: "wait-reply",
		Kind:  models.WaitKindReply,
		Match: &models.EventMatch{EventType: models.TriggerMessageReceived, LeadID: "lead-1"},
	}))

	activations, resumptions, err := matcher.Match(ctx, &models.Event{
		TenantID: "tenant-1",
		Type:     models.TriggerMessageReceived,
		LeadID:   "lead-1",
		Payload:  map[string]any{"text": "yes please"},
	})
	require.NoError(t, err)

	require.Len(t, resumptions, 1)
	assert.Equal(t, "exec-1", resumptions[0].ExecutionID)
	assert.Equal(t, "wait-reply", resumptions[0].NodeID)
	assert.Equal(t, "yes please", resumptions[0].Payload["text"])

	assert.Empty(t, activations, "the reply advances the in-flight conversation, it must not fork a new one")
}

func TestMatcher_OtherLeadStillActivatesAlongsideResume(t *testing.T) {
	matcher, fp := newTestMatcher(t)
	ctx := context.Background()

	saveActiveWorkflow(t, fp, &models.Workflow{
		ID:       "wf-inbound",
		TenantID: "tenant-1",
		Name:     "inbound flow",
		Trigger:  &models.Trigger{Type: models.TriggerMessageReceived},
	})

	require.NoError(t, fp.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-1", ExecutionID: "exec-1", TenantID: "tenant-1", NodeID: "wait-reply",
		Kind:  models.WaitKindReply,
		Match: &models.EventMatch{EventType: models.TriggerMessageReceived, LeadID: "lead-other"},
	}))

	activations, resumptions, err := matcher.Match(ctx, &models.Event{
		TenantID: "tenant-1",
		Type:     models.TriggerMessageReceived,
		LeadID:   "lead-1",
	})
	require.NoError(t, err)
	assert.Empty(t, resumptions)
	assert.Len(t, activations, 1)
}
