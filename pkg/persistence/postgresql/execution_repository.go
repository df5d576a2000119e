package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id, workflow_id, tenant_id, lead_id, conversation_id, snapshot,
	status, context, node_results, frontier, error_message,
	started_at, completed_at
`

// SaveExecution upserts an execution record.
func (er *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.Execution) error {
	snapshotJSON, err := json.Marshal(execution.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	resultsJSON, err := json.Marshal(execution.NodeResults)
	if err != nil {
		return fmt.Errorf("failed to marshal node results: %w", err)
	}

	frontierJSON, err := json.Marshal(execution.Frontier)
	if err != nil {
		return fmt.Errorf("failed to marshal frontier: %w", err)
	}

	query := `
		INSERT INTO executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			context = EXCLUDED.context,
			node_results = EXCLUDED.node_results,
			frontier = EXCLUDED.frontier,
			error_message = EXCLUDED.error_message,
			completed_at = EXCLUDED.completed_at
	`

	_, err = er.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.TenantID,
		nullString(execution.LeadID),
		nullString(execution.ConversationID),
		snapshotJSON,
		execution.Status,
		contextJSON,
		resultsJSON,
		frontierJSON,
		nullString(execution.ErrorMessage),
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	return nil
}

// ExecutionByID retrieves an execution by its ID.
func (er *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	execution, err := er.scanExecution(er.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// Executions retrieves executions matching the filter, newest first.
func (er *ExecutionRepository) Executions(ctx context.Context, filter persistence.ExecutionFilter) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE 1=1`

	args := []any{}

	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		query += fmt.Sprintf(" AND workflow_id = $%d", len(args))
	}

	if filter.LeadID != "" {
		args = append(args, filter.LeadID)
		query += fmt.Sprintf(" AND lead_id = $%d", len(args))
	}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY started_at DESC"

	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			er.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var executions []*models.Execution

	for rows.Next() {
		execution, err := er.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// ExecutionStatus returns just the status of one execution.
func (er *ExecutionRepository) ExecutionStatus(ctx context.Context, id string) (models.ExecutionStatus, error) {
	var status string

	err := er.db.QueryRowContext(ctx, `SELECT status FROM executions WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", persistence.ErrExecutionNotFound
		}

		return "", fmt.Errorf("failed to query execution status: %w", err)
	}

	return models.ExecutionStatus(status), nil
}

// HasNonTerminalExecution reports whether a running or suspended execution
// exists for the (workflow, lead) pair.
func (er *ExecutionRepository) HasNonTerminalExecution(ctx context.Context, workflowID, leadID string) (bool, error) {
	var exists bool

	query := `
		SELECT EXISTS (
			SELECT 1 FROM executions
			WHERE workflow_id = $1 AND lead_id = $2
			AND status IN ('running', 'suspended')
		)
	`

	err := er.db.QueryRowContext(ctx, query, workflowID, leadID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query non-terminal executions: %w", err)
	}

	return exists, nil
}

// TransitionStatus atomically moves the execution from one of the given
// statuses to the target. The conditional UPDATE succeeds for exactly one
// concurrent caller.
func (er *ExecutionRepository) TransitionStatus(ctx context.Context, id string, from []models.ExecutionStatus, to models.ExecutionStatus) (bool, error) {
	fromStatuses := make([]string, len(from))
	for i, status := range from {
		fromStatuses[i] = string(status)
	}

	result, err := er.db.ExecContext(ctx,
		`UPDATE executions SET status = $1 WHERE id = $2 AND status = ANY($3)`,
		string(to), id, pq.Array(fromStatuses))
	if err != nil {
		return false, fmt.Errorf("failed to transition execution status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows > 0, nil
}

func (er *ExecutionRepository) scanExecution(scanner interface {
	Scan(dest ...any) error
}) (*models.Execution, error) {
	var (
		execution                            models.Execution
		leadID, conversationID, errorMessage sql.NullString
		completedAt                          sql.NullTime
		snapshotJSON, contextJSON            []byte
		resultsJSON, frontierJSON            []byte
	)

	err := scanner.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.TenantID,
		&leadID,
		&conversationID,
		&snapshotJSON,
		&execution.Status,
		&contextJSON,
		&resultsJSON,
		&frontierJSON,
		&errorMessage,
		&execution.StartedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.LeadID = leadID.String
	execution.ConversationID = conversationID.String
	execution.ErrorMessage = errorMessage.String

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	if err := json.Unmarshal(snapshotJSON, &execution.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	if err := json.Unmarshal(contextJSON, &execution.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}

	if err := json.Unmarshal(resultsJSON, &execution.NodeResults); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node results: %w", err)
	}

	if err := json.Unmarshal(frontierJSON, &execution.Frontier); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frontier: %w", err)
	}

	return &execution, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
