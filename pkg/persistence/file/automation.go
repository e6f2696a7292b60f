package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openhaus/flowengine/pkg/models"
	"github.com/openhaus/flowengine/pkg/persistence"
)

// AutomationRepository stores each automation as one JSON document.
type AutomationRepository struct {
	root string
	mu   sync.RWMutex
}

// NewAutomationRepository creates a new file-backed automation repository.
func NewAutomationRepository(root string) *AutomationRepository {
	return &AutomationRepository{root: root}
}

// GetByID returns the automation, or nil when it does not exist.
func (r *AutomationRepository) GetByID(_ context.Context, id string) (*models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(id)
}

// List returns one page of automations matching the options.
func (r *AutomationRepository) List(_ context.Context, opts persistence.ListAutomationsOptions) (*persistence.ListAutomationsResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(automationsDir(r.root))
	if err != nil {
		if os.IsNotExist(err) {
			return &persistence.ListAutomationsResult{Automations: []*models.Automation{}}, nil
		}

		return nil, fmt.Errorf("failed to read automations directory: %w", err)
	}

	automations := make([]*models.Automation, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		automation, err := r.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		if automation == nil {
			continue
		}

		if opts.OwnerID != "" && automation.OwnerID != opts.OwnerID {
			continue
		}

		if opts.Enabled != nil && automation.Enabled != *opts.Enabled {
			continue
		}

		if opts.IsDraft != nil && automation.IsDraft != *opts.IsDraft {
			continue
		}

		automations = append(automations, automation)
	}

	if err := sortAutomations(automations, opts.SortBy, opts.SortOrder); err != nil {
		return nil, err
	}

	totalCount := int64(len(automations))

	offset := opts.Offset
	if offset > len(automations) {
		offset = len(automations)
	}

	end := len(automations)
	if opts.Limit > 0 && offset+opts.Limit < end {
		end = offset + opts.Limit
	}

	page := automations[offset:end]

	return &persistence.ListAutomationsResult{
		Automations: page,
		TotalCount:  totalCount,
		HasNextPage: int64(end) < totalCount,
	}, nil
}

// Save writes the automation document. The whole document is replaced in one
// write, so entities and flow graph always commit together.
func (r *AutomationRepository) Save(_ context.Context, automation *models.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if automation.CreatedAt.IsZero() {
		automation.CreatedAt = now
	}

	automation.UpdatedAt = now

	if automation.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate automation ID: %w", err)
		}

		automation.ID = id.String()
	}

	if err := os.MkdirAll(automationsDir(r.root), 0o755); err != nil {
		return fmt.Errorf("failed to create automations directory: %w", err)
	}

	data, err := json.MarshalIndent(automation, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal automation: %w", err)
	}

	if err := os.WriteFile(r.path(automation.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write automation file: %w", err)
	}

	return nil
}

// Delete removes the automation document and its logs.
func (r *AutomationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
		}

		return fmt.Errorf("failed to delete automation file: %w", err)
	}

	// Logs cascade with the automation.
	_ = os.Remove(filepath.Join(logsDir(r.root), id+".json"))

	return nil
}

func (r *AutomationRepository) path(id string) string {
	return filepath.Join(automationsDir(r.root), id+".json")
}

func (r *AutomationRepository) read(id string) (*models.Automation, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read automation file: %w", err)
	}

	var automation models.Automation
	if err := json.Unmarshal(data, &automation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal automation %s: %w", id, err)
	}

	return &automation, nil
}

func sortAutomations(automations []*models.Automation, sortBy, sortOrder string) error {
	if sortBy == "" {
		sortBy = "created_at"
	}

	var compare func(a, b *models.Automation) int

	switch sortBy {
	case "created_at":
		compare = func(a, b *models.Automation) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case "updated_at":
		compare = func(a, b *models.Automation) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	case "name":
		compare = func(a, b *models.Automation) int { return strings.Compare(a.Name, b.Name) }
	default:
		return fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, sortBy)
	}

	slices.SortStableFunc(automations, compare)

	if sortOrder != "asc" {
		slices.Reverse(automations)
	}

	return nil
}
