package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
	"github.com/leadfuse/leadfuse/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{"wait_states", "executions", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("leadfuse_test"),
			postgres.WithUsername("leadfuse"),
			postgres.WithPassword("leadfuse"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func saveRunningExecution(ctx context.Context, t *testing.T, p *postgresql.Persistence, id string) {
	t.Helper()

	require.NoError(t, p.SaveExecution(ctx, &models.Execution{
		ID:         id,
		WorkflowID: "wf-1",
		TenantID:   "tenant-1",
		LeadID:     "lead-1",
		Status:     models.ExecutionRunning,
		StartedAt:  time.Now().UTC(),
	}))
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"workflows", "executions", "wait_states", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table+" table should exist")
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestNewPersistence_WorkflowRoundTrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := &models.Workflow{
		ID:       uuid.NewString(),
		TenantID: "tenant-1",
		Name:     "Welcome flow",
		Trigger: &models.Trigger{
			Type:   models.TriggerTagAdded,
			Config: map[string]any{"tag": "vip"},
		},
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger},
			{ID: "greet", Type: models.NodeTypeSendMessage, Data: map[string]any{
				"channel": "whatsapp",
				"content": "Welcome!",
			}},
		},
		Edges:          []*models.Edge{{Source: "start", Target: "greet"}},
		RunOncePerLead: true,
	}

	require.NoError(t, p.SaveWorkflow(ctx, workflow))
	assert.False(t, workflow.CreatedAt.IsZero())

	retrieved, err := p.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, retrieved.Name)
	assert.Equal(t, models.TriggerTagAdded, retrieved.Trigger.Type)
	assert.Equal(t, "vip", retrieved.Trigger.Config["tag"])
	assert.True(t, retrieved.RunOncePerLead)
	require.Len(t, retrieved.Nodes, 2)
	assert.Equal(t, "Welcome!", retrieved.Nodes[1].Data["content"])
	require.Len(t, retrieved.Edges, 1)

	_, err = p.WorkflowByID(ctx, uuid.NewString())
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestNewPersistence_ActiveWorkflowsByTrigger(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	active := &models.Workflow{
		ID:       uuid.NewString(),
		TenantID: "tenant-1",
		Name:     "active",
		Trigger:  &models.Trigger{Type: models.TriggerLeadCreated},
		Nodes:    []*models.Node{{ID: "start", Type: models.NodeTypeTrigger}},
	}
	inactive := &models.Workflow{
		ID:       uuid.NewString(),
		TenantID: "tenant-1",
		Name:     "inactive",
		Trigger:  &models.Trigger{Type: models.TriggerLeadCreated},
		Nodes:    []*models.Node{{ID: "start", Type: models.NodeTypeTrigger}},
	}

	require.NoError(t, p.SaveWorkflow(ctx, active))
	require.NoError(t, p.SaveWorkflow(ctx, inactive))
	require.NoError(t, p.SetWorkflowActive(ctx, active.ID, true))

	matched, err := p.ActiveWorkflowsByTrigger(ctx, "tenant-1", models.TriggerLeadCreated)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, active.ID, matched[0].ID)
}

func TestNewPersistence_TransitionStatusIsConditional(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	saveRunningExecution(ctx, t, p, "exec-1")

	moved, err := p.TransitionStatus(ctx, "exec-1",
		[]models.ExecutionStatus{models.ExecutionRunning}, models.ExecutionSuspended)
	require.NoError(t, err)
	assert.True(t, moved)

	// The execution left running; a second conditional update must lose.
	moved, err = p.TransitionStatus(ctx, "exec-1",
		[]models.ExecutionStatus{models.ExecutionRunning}, models.ExecutionCompleted)
	require.NoError(t, err)
	assert.False(t, moved)

	status, err := p.ExecutionStatus(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionSuspended, status)

	// Multiple accepted source statuses work through the ANY clause.
	moved, err = p.TransitionStatus(ctx, "exec-1",
		[]models.ExecutionStatus{models.ExecutionRunning, models.ExecutionSuspended},
		models.ExecutionCancelled)
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestNewPersistence_MarkWaitResumedSingleWinner(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	saveRunningExecution(ctx, t, p, "exec-1")

	resumeAt := time.Now().UTC().Add(time.Hour)

	require.NoError(t, p.SaveWaitState(ctx, &models.WaitState{
		ID:          "wait-1",
		ExecutionID: "exec-1",
		TenantID:    "tenant-1",
		NodeID:      "pause",
		Kind:        models.WaitKindDelay,
		ResumeAt:    &resumeAt,
		CreatedAt:   time.Now().UTC(),
	}))

	won, err := p.MarkWaitResumed(ctx, "wait-1")
	require.NoError(t, err)
	assert.True(t, won)

	// Duplicate resume signals lose.
	won, err = p.MarkWaitResumed(ctx, "wait-1")
	require.NoError(t, err)
	assert.False(t, won)

	// A resumed wait is no longer pending.
	_, err = p.PendingWait(ctx, "exec-1", "pause")
	assert.True(t, persistence.IsWaitStateNotFound(err))
}

func TestNewPersistence_DueWaitStates(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	saveRunningExecution(ctx, t, p, "exec-1")
	saveRunningExecution(ctx, t, p, "exec-2")
	saveRunningExecution(ctx, t, p, "exec-3")

	earlier := time.Now().UTC().Add(-time.Hour)
	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)

	require.NoError(t, p.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-due", ExecutionID: "exec-1", TenantID: "tenant-1", NodeID: "pause",
		Kind: models.WaitKindThrottle, ResumeAt: &earlier, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, p.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-due-later", ExecutionID: "exec-2", TenantID: "tenant-1", NodeID: "pause",
		Kind: models.WaitKindDelay, ResumeAt: &past, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, p.SaveWaitState(ctx, &models.WaitState{
		ID: "wait-future", ExecutionID: "exec-3", TenantID: "tenant-1", NodeID: "pause",
		Kind: models.WaitKindDelay, ResumeAt: &future, CreatedAt: time.Now().UTC(),
	}))

	due, err := p.DueWaitStates(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "wait-due", due[0].ID)
	assert.Equal(t, "wait-due-later", due[1].ID)
}

func TestNewPersistence_HasNonTerminalExecution(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	saveRunningExecution(ctx, t, p, "exec-1")

	inFlight, err := p.HasNonTerminalExecution(ctx, "wf-1", "lead-1")
	require.NoError(t, err)
	assert.True(t, inFlight)

	moved, err := p.TransitionStatus(ctx, "exec-1",
		[]models.ExecutionStatus{models.ExecutionRunning}, models.ExecutionCompleted)
	require.NoError(t, err)
	require.True(t, moved)

	inFlight, err = p.HasNonTerminalExecution(ctx, "wf-1", "lead-1")
	require.NoError(t, err)
	assert.False(t, inFlight)
}
