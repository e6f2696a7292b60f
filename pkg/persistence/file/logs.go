package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openhaus/flowengine/pkg/models"
)

// LogRepository stores each automation's execution history as one JSON array
// file, append-only.
type LogRepository struct {
	root string
	mu   sync.Mutex
}

// NewLogRepository creates a new file-backed log repository.
func NewLogRepository(root string) *LogRepository {
	return &LogRepository{root: root}
}

// Append writes one execution record.
func (r *LogRepository) Append(ctx context.Context, entry *models.AutomationLog) error {
	return r.AppendBatch(ctx, []*models.AutomationLog{entry})
}

// AppendBatch writes a batch of execution records.
func (r *LogRepository) AppendBatch(_ context.Context, entries []*models.AutomationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byAutomation := make(map[string][]*models.AutomationLog)

	for _, entry := range entries {
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

		byAutomation[entry.AutomationID] = append(byAutomation[entry.AutomationID], entry)
	}

	for automationID, newEntries := range byAutomation {
		existing, err := r.read(automationID)
		if err != nil {
			return err
		}

		existing = append(existing, newEntries...)

		if err := os.MkdirAll(logsDir(r.root), 0o755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}

		data, err := json.MarshalIndent(existing, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal automation logs: %w", err)
		}

		if err := os.WriteFile(r.path(automationID), data, 0o600); err != nil {
			return fmt.Errorf("failed to write automation logs: %w", err)
		}
	}

	return nil
}

// ListByAutomation returns the most recent execution records, newest first.
func (r *LogRepository) ListByAutomation(_ context.Context, automationID string, limit int) ([]*models.AutomationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read(automationID)
	if err != nil {
		return nil, err
	}

	// Stored oldest-first; return newest-first.
	out := make([]*models.AutomationLog, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

func (r *LogRepository) path(automationID string) string {
	return filepath.Join(logsDir(r.root), automationID+".json")
}

func (r *LogRepository) read(automationID string) ([]*models.AutomationLog, error) {
	data, err := os.ReadFile(r.path(automationID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read automation logs: %w", err)
	}

	var entries []*models.AutomationLog
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal automation logs: %w", err)
	}

	return entries, nil
}
