package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openhaus/flowengine/pkg/models"
	"github.com/openhaus/flowengine/pkg/persistence"
)

// ExecutionLog is the write target the external runner records outcomes
// through. It is pure append; nothing in the graph engine mutates history.
type ExecutionLog struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewExecutionLog creates a new execution log service.
func NewExecutionLog(p persistence.Persistence, logger *slog.Logger) *ExecutionLog {
	return &ExecutionLog{persistence: p, logger: logger}
}

// Record appends one execution outcome for an automation.
func (s *ExecutionLog) Record(ctx context.Context, automationID string, status models.ExecutionStatus, details string, executedAt time.Time) (*models.AutomationLog, error) {
	entry := &models.AutomationLog{
		AutomationID: automationID,
		Status:       status,
		Details:      details,
		ExecutedAt:   executedAt,
	}

	if err := s.checkEntry(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.persistence.LogRepository().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}

	return entry, nil
}

// RecordBatch appends a batch of execution outcomes.
func (s *ExecutionLog) RecordBatch(ctx context.Context, entries []*models.AutomationLog) error {
	for _, entry := range entries {
		if err := s.checkEntry(ctx, entry); err != nil {
			return err
		}
	}

	if err := s.persistence.LogRepository().AppendBatch(ctx, entries); err != nil {
		return fmt.Errorf("failed to record execution batch: %w", err)
	}

	return nil
}

// History returns the most recent execution records, newest first.
func (s *ExecutionLog) History(ctx context.Context, automationID string, limit int) ([]*models.AutomationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	logs, err := s.persistence.LogRepository().ListByAutomation(ctx, automationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution history: %w", err)
	}

	return logs, nil
}

func (s *ExecutionLog) checkEntry(ctx context.Context, entry *models.AutomationLog) error {
	if !models.ValidExecutionStatus(entry.Status) {
		return NewServiceError(
			"Record",
			"INVALID_STATUS",
			fmt.Sprintf("invalid execution status '%s'", entry.Status),
			ErrInvalidStatus,
		)
	}

	automation, err := s.persistence.AutomationRepository().GetByID(ctx, entry.AutomationID)
	if err != nil {
		return err
	}

	if automation == nil {
		return ErrAutomationNotFound
	}

	return nil
}
