package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
)

// WaitStateRepository handles wait-state database operations.
type WaitStateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWaitStateRepository creates a new wait state repository.
func NewWaitStateRepository(db *sql.DB, logger *slog.Logger) *WaitStateRepository {
	return &WaitStateRepository{db: db, logger: logger}
}

const waitStateColumns = `
	id, execution_id, tenant_id, node_id, kind, resume_at, match, resumed, created_at
`

// SaveWaitState upserts a wait state record. The partial unique index on
// (execution_id, node_id) rejects a second pending wait for the same node.
func (wsr *WaitStateRepository) SaveWaitState(ctx context.Context, wait *models.WaitState) error {
	var matchJSON []byte

	if wait.Match != nil {
		var err error

		matchJSON, err = json.Marshal(wait.Match)
		if err != nil {
			return fmt.Errorf("failed to marshal event match: %w", err)
		}
	}

	query := `
		INSERT INTO wait_states (` + waitStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			resume_at = EXCLUDED.resume_at,
			match = EXCLUDED.match,
			resumed = EXCLUDED.resumed
	`

	_, err := wsr.db.ExecContext(ctx, query,
		wait.ID,
		wait.ExecutionID,
		wait.TenantID,
		wait.NodeID,
		wait.Kind,
		wait.ResumeAt,
		matchJSON,
		wait.Resumed,
		wait.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save wait state: %w", err)
	}

	return nil
}

// PendingWait returns the un-resumed wait for the (execution, node) pair.
func (wsr *WaitStateRepository) PendingWait(ctx context.Context, executionID, nodeID string) (*models.WaitState, error) {
	query := `
		SELECT ` + waitStateColumns + `
		FROM wait_states
		WHERE execution_id = $1 AND node_id = $2 AND NOT resumed
	`

	wait, err := wsr.scanWaitState(wsr.db.QueryRowContext(ctx, query, executionID, nodeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWaitStateNotFound
		}

		return nil, fmt.Errorf("failed to scan wait state: %w", err)
	}

	return wait, nil
}

// PendingWaitsByExecution returns every un-resumed wait for the execution.
func (wsr *WaitStateRepository) PendingWaitsByExecution(ctx context.Context, executionID string) ([]*models.WaitState, error) {
	query := `
		SELECT ` + waitStateColumns + `
		FROM wait_states
		WHERE execution_id = $1 AND NOT resumed
		ORDER BY created_at
	`

	return wsr.queryWaitStates(ctx, query, executionID)
}

// DueWaitStates returns un-resumed timed waits whose resume time has passed,
// oldest first.
func (wsr *WaitStateRepository) DueWaitStates(ctx context.Context, now time.Time, limit int) ([]*models.WaitState, error) {
	query := `
		SELECT ` + waitStateColumns + `
		FROM wait_states
		WHERE NOT resumed AND resume_at IS NOT NULL AND resume_at <= $1
		AND kind IN ('delay', 'condition_poll', 'throttle')
		ORDER BY resume_at
	`

	args := []any{now}

	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return wsr.queryWaitStates(ctx, query, args...)
}

// PendingWaitsForEvent returns un-resumed event waits the event could satisfy.
// The candidate set is narrowed in SQL by tenant and kind; the exact match
// signature check happens in Go via WaitState.Matches.
func (wsr *WaitStateRepository) PendingWaitsForEvent(ctx context.Context, event *models.Event) ([]*models.WaitState, error) {
	query := `
		SELECT ` + waitStateColumns + `
		FROM wait_states
		WHERE NOT resumed AND tenant_id = $1
		AND kind IN ('reply', 'external_event')
		ORDER BY created_at
	`

	candidates, err := wsr.queryWaitStates(ctx, query, event.TenantID)
	if err != nil {
		return nil, err
	}

	waits := make([]*models.WaitState, 0, len(candidates))

	for _, wait := range candidates {
		if wait.Matches(event) {
			waits = append(waits, wait)
		}
	}

	return waits, nil
}

// MarkWaitResumed conditionally flips the resumed flag. The conditional UPDATE
// succeeds for exactly one concurrent caller; false means the wait was already
// resumed.
func (wsr *WaitStateRepository) MarkWaitResumed(ctx context.Context, id string) (bool, error) {
	result, err := wsr.db.ExecContext(ctx,
		`UPDATE wait_states SET resumed = true WHERE id = $1 AND NOT resumed`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark wait state resumed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows > 0, nil
}

func (wsr *WaitStateRepository) queryWaitStates(ctx context.Context, query string, args ...any) ([]*models.WaitState, error) {
	rows, err := wsr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wait states: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			wsr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var waits []*models.WaitState

	for rows.Next() {
		wait, err := wsr.scanWaitState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wait state: %w", err)
		}

		waits = append(waits, wait)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wait states: %w", err)
	}

	return waits, nil
}

func (wsr *WaitStateRepository) scanWaitState(scanner interface {
	Scan(dest ...any) error
}) (*models.WaitState, error) {
	var (
		wait      models.WaitState
		resumeAt  sql.NullTime
		matchJSON []byte
	)

	err := scanner.Scan(
		&wait.ID,
		&wait.ExecutionID,
		&wait.TenantID,
		&wait.NodeID,
		&wait.Kind,
		&resumeAt,
		&matchJSON,
		&wait.Resumed,
		&wait.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if resumeAt.Valid {
		wait.ResumeAt = &resumeAt.Time
	}

	if matchJSON != nil {
		if err := json.Unmarshal(matchJSON, &wait.Match); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event match: %w", err)
		}
	}

	return &wait, nil
}
