package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowmate/flowmate/pkg/models"
)

// ExecutionLogRepository appends execution attempts to the execution_logs
// table. The BIGSERIAL seq column orders records, so Recent never depends
// on timestamp resolution.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionLogRepository creates a new execution log repository.
func NewExecutionLogRepository(db *sql.DB, logger *slog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, logger: logger}
}

// Append writes one execution log record, stamping ID and ExecutedAt when
// the caller left them empty.
func (r *ExecutionLogRepository) Append(ctx context.Context, entry *models.ExecutionLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO execution_logs (id, workflow_id, execution_id, status, message, executed_at, duration_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.WorkflowID,
		entry.ExecutionID,
		entry.Status,
		entry.Message,
		entry.ExecutedAt,
		int64(entry.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to append execution log for workflow %s: %w", entry.WorkflowID, err)
	}

	return nil
}

// Recent returns up to limit log records for the workflow, newest first. A
// non-positive limit returns all records.
func (r *ExecutionLogRepository) Recent(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	query := `
		SELECT id, workflow_id, execution_id, status, message, executed_at, duration_ns
		FROM execution_logs
		WHERE workflow_id = $1
		ORDER BY seq DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+` LIMIT $2`, workflowID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, workflowID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs for workflow %s: %w", workflowID, err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			entry      models.ExecutionLog
			durationNS int64
		)

		err := rows.Scan(
			&entry.ID,
			&entry.WorkflowID,
			&entry.ExecutionID,
			&entry.Status,
			&entry.Message,
			&entry.ExecutedAt,
			&durationNS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		entry.Duration = time.Duration(durationNS)
		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}
