// Package persistence provides the data storage abstraction for automations
// and their execution logs.
package persistence

import (
	"context"

	"github.com/openhaus/flowengine/pkg/models"
)

// Persistence is the storage layer handed to services. Implementations must
// make AutomationRepository.Save atomic: entity diffs and the reconciled flow
// graph commit together or not at all.
type Persistence interface {
	AutomationRepository() AutomationRepository
	LogRepository() LogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListAutomationsOptions filters and pages automation listings.
type ListAutomationsOptions struct {
	Limit   int
	Offset  int
	OwnerID string
	Enabled *bool
	IsDraft *bool

	SortBy    string
	SortOrder string
}

// ListAutomationsResult is one page of automations.
type ListAutomationsResult struct {
	Automations []*models.Automation
	TotalCount  int64
	HasNextPage bool
}

// AutomationRepository stores automations together with their owned entities
// and flow graph.
type AutomationRepository interface {
	// GetByID returns the automation with its entities and flow graph loaded,
	// or nil when no such automation exists.
	GetByID(ctx context.Context, id string) (*models.Automation, error)

	// List returns one page of automations matching the options.
	List(ctx context.Context, opts ListAutomationsOptions) (*ListAutomationsResult, error)

	// Save persists the automation base row, replaces its entity rows with
	// exactly the rows on the model (rows absent from the model are deleted,
	// carried ids are updated in place) and writes the flow graph, all in one
	// transaction.
	Save(ctx context.Context, automation *models.Automation) error

	// Delete removes the automation and cascades to its entities and logs.
	Delete(ctx context.Context, id string) error
}

// LogRepository stores append-only execution history written by the external
// runner.
type LogRepository interface {
	Append(ctx context.Context, entry *models.AutomationLog) error
	AppendBatch(ctx context.Context, entries []*models.AutomationLog) error
	ListByAutomation(ctx context.Context, automationID string, limit int) ([]*models.AutomationLog, error)
}
