// Package flow implements the automation flow graph engine: sync-by-diff of
// relational entities, reconciliation of the editor graph against persisted
// entity ids, structural validation and per-trigger execution path
// resolution.
package flow

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/openhaus/flowengine/pkg/models"
)

// SyncResult is the outcome of diffing one entity kind against its existing
// rows. Rows is the post-diff row set in submission order (updates followed
// by creates interleaved exactly as submitted); CreatedIDs lists the ids
// assigned to new rows in submission order, which is what the graph
// reconciler consumes.
type SyncResult[T any] struct {
	Rows       []T
	Created    []T
	Updated    []T
	CreatedIDs []string
	DeletedIDs []string
}

// syncByID diffs submitted rows against existing rows by id. A submitted row
// carrying a known id is an update; one with no id or an unrecognized id is a
// create and receives a fresh id. Existing rows absent from the submission
// are deleted. The diff is pure: persistence happens later, atomically, from
// the result.
func syncByID[T any](existing, submitted []T, id func(T) string, setID func(T, string)) (SyncResult[T], error) {
	var result SyncResult[T]

	known := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		known[id(row)] = struct{}{}
	}

	kept := make(map[string]struct{}, len(submitted))

	for _, row := range submitted {
		rowID := id(row)
		if _, exists := known[rowID]; rowID != "" && exists {
			kept[rowID] = struct{}{}
			result.Updated = append(result.Updated, row)
			result.Rows = append(result.Rows, row)

			continue
		}

		newID, err := uuid.NewV7()
		if err != nil {
			return SyncResult[T]{}, fmt.Errorf("failed to generate entity ID: %w", err)
		}

		setID(row, newID.String())
		result.Created = append(result.Created, row)
		result.CreatedIDs = append(result.CreatedIDs, newID.String())
		result.Rows = append(result.Rows, row)
	}

	for _, row := range existing {
		if _, ok := kept[id(row)]; !ok {
			result.DeletedIDs = append(result.DeletedIDs, id(row))
		}
	}

	return result, nil
}

// SyncTriggers diffs submitted triggers against existing rows.
func SyncTriggers(existing, submitted []*models.Trigger) (SyncResult[*models.Trigger], error) {
	return syncByID(existing, submitted,
		func(t *models.Trigger) string { return t.ID },
		func(t *models.Trigger, id string) { t.ID = id },
	)
}

// SyncConditions diffs submitted conditions against existing rows.
func SyncConditions(existing, submitted []*models.Condition) (SyncResult[*models.Condition], error) {
	return syncByID(existing, submitted,
		func(c *models.Condition) string { return c.ID },
		func(c *models.Condition, id string) { c.ID = id },
	)
}

// SyncActions diffs submitted actions against existing rows.
func SyncActions(existing, submitted []*models.Action) (SyncResult[*models.Action], error) {
	return syncByID(existing, submitted,
		func(a *models.Action) string { return a.ID },
		func(a *models.Action, id string) { a.ID = id },
	)
}
