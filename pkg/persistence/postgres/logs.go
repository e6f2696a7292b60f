package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openhaus/flowengine/pkg/models"
)

// LogRepository handles append-only execution log storage.
type LogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLogRepository creates a new execution log repository.
func NewLogRepository(db *sql.DB, logger *slog.Logger) *LogRepository {
	return &LogRepository{db: db, logger: logger}
}

const appendLogQuery = `
	INSERT INTO automation_logs (id, automation_id, executed_at, status, details, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// Append writes one execution record.
func (r *LogRepository) Append(ctx context.Context, entry *models.AutomationLog) error {
	if err := stampLog(entry); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, appendLogQuery,
		entry.ID,
		entry.AutomationID,
		entry.ExecutedAt,
		entry.Status,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append automation log: %w", err)
	}

	return nil
}

// AppendBatch writes a batch of execution records in one transaction.
func (r *LogRepository) AppendBatch(ctx context.Context, entries []*models.AutomationLog) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, entry := range entries {
		if err = stampLog(entry); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, appendLogQuery,
			entry.ID,
			entry.AutomationID,
			entry.ExecutedAt,
			entry.Status,
			entry.Details,
			entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append automation log: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByAutomation returns the most recent execution records, newest first.
func (r *LogRepository) ListByAutomation(ctx context.Context, automationID string, limit int) ([]*models.AutomationLog, error) {
	query := `
		SELECT id, automation_id, executed_at, status, details, created_at
		FROM automation_logs
		WHERE automation_id = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, automationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation logs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	logs := make([]*models.AutomationLog, 0)

	for rows.Next() {
		var entry models.AutomationLog

		err := rows.Scan(
			&entry.ID,
			&entry.AutomationID,
			&entry.ExecutedAt,
			&entry.Status,
			&entry.Details,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation log: %w", err)
		}

		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automation logs: %w", err)
	}

	return logs, nil
}

func stampLog(entry *models.AutomationLog) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate log ID: %w", err)
		}

		entry.ID = id.String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = entry.CreatedAt
	}

	return nil
}
