package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/openhaus/flowengine/pkg/models"
	"github.com/openhaus/flowengine/pkg/persistence"
)

// AutomationRepository handles automation-related database operations.
type AutomationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAutomationRepository creates a new automation repository.
func NewAutomationRepository(db *sql.DB, logger *slog.Logger) *AutomationRepository {
	return &AutomationRepository{db: db, logger: logger}
}

const automationColumns = `
	id
  , owner_id
  , name
  , description
  , enabled
  , is_draft
  , flow_metadata
  , created_at
  , updated_at
  , deleted_at
`

// GetByID returns an automation with entities and flow graph loaded, or nil
// when it does not exist.
func (r *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = $1 AND deleted_at IS NULL`

	row := r.db.QueryRowContext(ctx, query, id)

	automation, err := scanAutomation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan automation: %w", err)
	}

	if err := r.loadEntities(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to load automation entities: %w", err)
	}

	return automation, nil
}

var sortableColumns = []string{"created_at", "updated_at", "name"}

// List returns one page of automations matching the options, entities loaded.
func (r *AutomationRepository) List(ctx context.Context, opts persistence.ListAutomationsOptions) (*persistence.ListAutomationsResult, error) {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}

	if !slices.Contains(sortableColumns, sortBy) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, sortBy)
	}

	sortOrder := "DESC"
	if opts.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	where := "deleted_at IS NULL"
	args := []any{}

	appendArg := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}

	if opts.OwnerID != "" {
		appendArg("owner_id =", opts.OwnerID)
	}

	if opts.Enabled != nil {
		appendArg("enabled =", *opts.Enabled)
	}

	if opts.IsDraft != nil {
		appendArg("is_draft =", *opts.IsDraft)
	}

	var totalCount int64

	countQuery := "SELECT COUNT(*) FROM automations WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count automations: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM automations WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		automationColumns, where, sortBy, sortOrder, len(args)+1, len(args)+2,
	)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automations = append(automations, automation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	for _, automation := range automations {
		if err := r.loadEntities(ctx, automation); err != nil {
			return nil, fmt.Errorf("failed to load automation entities: %w", err)
		}
	}

	return &persistence.ListAutomationsResult{
		Automations: automations,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(automations)) < totalCount,
	}, nil
}

// Save persists the automation base row, replaces its entity rows with
// exactly the rows on the model and writes the flow graph, all in one
// transaction. Any failure rolls the whole unit back, leaving the prior
// persisted state untouched.
func (r *AutomationRepository) Save(ctx context.Context, automation *models.Automation) error {
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

	flowJSON, err := json.Marshal(automation.Flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow metadata: %w", err)
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

	baseQuery := `
		INSERT INTO automations (id, owner_id, name, description, enabled, is_draft, flow_metadata, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			is_draft = EXCLUDED.is_draft,
			flow_metadata = EXCLUDED.flow_metadata,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = tx.ExecContext(ctx, baseQuery,
		automation.ID,
		automation.OwnerID,
		automation.Name,
		automation.Description,
		automation.Enabled,
		automation.IsDraft,
		flowJSON,
		automation.CreatedAt,
		automation.UpdatedAt,
		automation.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save automation base: %w", err)
	}

	err = r.syncEntityRows(ctx, tx, "automation_triggers", "trigger_type", automation.ID, triggerRows(automation.Triggers))
	if err != nil {
		return fmt.Errorf("failed to save triggers: %w", err)
	}

	err = r.syncEntityRows(ctx, tx, "automation_conditions", "condition_type", automation.ID, conditionRows(automation.Conditions))
	if err != nil {
		return fmt.Errorf("failed to save conditions: %w", err)
	}

	err = r.syncEntityRows(ctx, tx, "automation_actions", "action_type", automation.ID, actionRows(automation.Actions))
	if err != nil {
		return fmt.Errorf("failed to save actions: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete soft deletes an automation; entity and log rows cascade when the row
// is eventually purged.
func (r *AutomationRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE automations SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete automation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	return nil
}

// entityRow is the serialized form of one trigger/condition/action row.
type entityRow struct {
	id     string
	typ    string
	config []byte
}

// syncEntityRows materializes one entity kind's diff inside the transaction:
// rows absent from the submission are deleted, submitted rows are upserted in
// submission order.
func (r *AutomationRepository) syncEntityRows(ctx context.Context, tx *sql.Tx, table, typeColumn, automationID string, rows []entityRow) error {
	keptIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		keptIDs = append(keptIDs, row.id)
	}

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE automation_id = $1 AND id <> ALL($2)", table)

	_, err := tx.ExecContext(ctx, deleteQuery, automationID, pq.Array(keptIDs))
	if err != nil {
		return fmt.Errorf("failed to delete absent rows from %s: %w", table, err)
	}

	upsertQuery := fmt.Sprintf(`
		INSERT INTO %s (id, automation_id, %s, config, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			%s = EXCLUDED.%s,
			config = EXCLUDED.config,
			position = EXCLUDED.position,
			updated_at = NOW()
	`, table, typeColumn, typeColumn, typeColumn)

	for position, row := range rows {
		_, err := tx.ExecContext(ctx, upsertQuery, row.id, automationID, row.typ, row.config, position)
		if err != nil {
			return fmt.Errorf("failed to upsert row %s in %s: %w", row.id, table, err)
		}
	}

	return nil
}

func triggerRows(triggers []*models.Trigger) []entityRow {
	rows := make([]entityRow, 0, len(triggers))

	for _, t := range triggers {
		config, _ := json.Marshal(t)
		rows = append(rows, entityRow{id: t.ID, typ: string(t.Type), config: config})
	}

	return rows
}

func conditionRows(conditions []*models.Condition) []entityRow {
	rows := make([]entityRow, 0, len(conditions))

	for _, c := range conditions {
		config, _ := json.Marshal(c)
		rows = append(rows, entityRow{id: c.ID, typ: string(c.Type), config: config})
	}

	return rows
}

func actionRows(actions []*models.Action) []entityRow {
	rows := make([]entityRow, 0, len(actions))

	for _, a := range actions {
		config, _ := json.Marshal(a)
		rows = append(rows, entityRow{id: a.ID, typ: string(a.Type), config: config})
	}

	return rows
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAutomation(s scanner) (*models.Automation, error) {
	var (
		automation models.Automation
		flowJSON   []byte
	)

	err := s.Scan(
		&automation.ID,
		&automation.OwnerID,
		&automation.Name,
		&automation.Description,
		&automation.Enabled,
		&automation.IsDraft,
		&flowJSON,
		&automation.CreatedAt,
		&automation.UpdatedAt,
		&automation.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(flowJSON) > 0 {
		if err := json.Unmarshal(flowJSON, &automation.Flow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flow metadata: %w", err)
		}
	}

	return &automation, nil
}

// loadEntities loads the automation's triggers, conditions and actions in
// stored submission order.
func (r *AutomationRepository) loadEntities(ctx context.Context, automation *models.Automation) error {
	err := loadEntityRows(ctx, r, "automation_triggers", automation.ID, func(config []byte, id string) error {
		var trigger models.Trigger
		if err := json.Unmarshal(config, &trigger); err != nil {
			return err
		}

		trigger.ID = id
		trigger.AutomationID = automation.ID
		automation.Triggers = append(automation.Triggers, &trigger)

		return nil
	})
	if err != nil {
		return err
	}

	err = loadEntityRows(ctx, r, "automation_conditions", automation.ID, func(config []byte, id string) error {
		var condition models.Condition
		if err := json.Unmarshal(config, &condition); err != nil {
			return err
		}

		condition.ID = id
		condition.AutomationID = automation.ID
		automation.Conditions = append(automation.Conditions, &condition)

		return nil
	})
	if err != nil {
		return err
	}

	return loadEntityRows(ctx, r, "automation_actions", automation.ID, func(config []byte, id string) error {
		var action models.Action
		if err := json.Unmarshal(config, &action); err != nil {
			return err
		}

		action.ID = id
		action.AutomationID = automation.ID
		automation.Actions = append(automation.Actions, &action)

		return nil
	})
}

func loadEntityRows(ctx context.Context, r *AutomationRepository, table, automationID string, collect func(config []byte, id string) error) error {
	query := fmt.Sprintf("SELECT id, config FROM %s WHERE automation_id = $1 ORDER BY position", table)

	rows, err := r.db.QueryContext(ctx, query, automationID)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var (
			id     string
			config []byte
		)

		if err := rows.Scan(&id, &config); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", table, err)
		}

		if err := collect(config, id); err != nil {
			return fmt.Errorf("failed to decode %s row %s: %w", table, id, err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", table, err)
	}

	return nil
}
