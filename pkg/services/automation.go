package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/openhaus/flowengine/pkg/flow"
	"github.com/openhaus/flowengine/pkg/models"
	"github.com/openhaus/flowengine/pkg/persistence"
)

// Automation is the service behind automation create/update/toggle/read. A
// save runs entity sync, graph reconciliation and the flow write as one
// atomic unit: any failure leaves the prior persisted state untouched.
type Automation struct {
	persistence persistence.Persistence
	devices     DeviceRegistry
	reconciler  *flow.Reconciler
	logger      *slog.Logger
}

// NewAutomation creates a new automation service.
func NewAutomation(p persistence.Persistence, devices DeviceRegistry, logger *slog.Logger) *Automation {
	return &Automation{
		persistence: p,
		devices:     devices,
		reconciler:  flow.NewReconciler(logger),
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Automation) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// SaveAutomationRequest carries a full automation submission. Entities and
// flow graph always travel together; a graph edit without a matching entity
// sync is invalid state.
type SaveAutomationRequest struct {
	OwnerID     string
	Name        string
	Description string
	Enabled     bool
	IsDraft     bool

	Triggers   []*models.Trigger
	Conditions []*models.Condition
	Actions    []*models.Action
	Flow       *models.FlowGraph
}

// UpdateAutomationRequest carries a partial update. Base fields are optional;
// when Flow is set the entity lists are treated as the full submission for
// the diff (nil means empty).
type UpdateAutomationRequest struct {
	Name        *string
	Description *string
	Enabled     *bool
	IsDraft     *bool

	Triggers   []*models.Trigger
	Conditions []*models.Condition
	Actions    []*models.Action
	Flow       *models.FlowGraph
}

// Create persists a new automation: ownership check, structural validation
// for non-drafts, entity sync, graph reconciliation and the atomic write.
func (s *Automation) Create(ctx context.Context, req SaveAutomationRequest) (*models.Automation, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, ErrEmptyOwnerID
	}

	automation := &models.Automation{
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		IsDraft:     req.IsDraft,
		Triggers:    req.Triggers,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		Flow:        req.Flow,
	}

	if automation.Flow == nil {
		automation.Flow = defaultFlowGraph()
	}

	if automation.Enabled && automation.IsDraft {
		return nil, &ToggleError{Reasons: []string{"automation is a draft"}, Err: ErrDraftNotToggleable}
	}

	if err := s.authorizeDevices(ctx, automation); err != nil {
		return nil, err
	}

	if err := checkGraphStructure(automation.Flow); err != nil {
		return nil, err
	}

	// Drafts are exempt from validation entirely.
	if !automation.IsDraft {
		if valid, violations := flow.Validate(automation.Flow.Nodes, automation.Flow.Edges); !valid {
			return nil, &FlowValidationError{Violations: violations}
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate automation ID: %w", err)
	}

	automation.ID = id.String()

	if err := s.syncAndReconcile(automation, nil); err != nil {
		return nil, err
	}

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to create automation: %w", err)
	}

	return automation, nil
}

// Update runs the same transactional pipeline against existing rows.
func (s *Automation) Update(ctx context.Context, id string, req UpdateAutomationRequest) (*models.Automation, error) {
	existing, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrAutomationNotFound
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if req.IsDraft != nil {
		existing.IsDraft = *req.IsDraft
	}

	if existing.Enabled && existing.IsDraft {
		return nil, &ToggleError{Reasons: []string{"automation is a draft"}, Err: ErrDraftNotToggleable}
	}

	if req.Flow == nil {
		if req.Triggers != nil || req.Conditions != nil || req.Actions != nil {
			return nil, ErrGraphWithoutEntities
		}

		if err := s.persistence.AutomationRepository().Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update automation: %w", err)
		}

		return existing, nil
	}

	updated := &models.Automation{
		ID:          existing.ID,
		OwnerID:     existing.OwnerID,
		Name:        existing.Name,
		Description: existing.Description,
		Enabled:     existing.Enabled,
		IsDraft:     existing.IsDraft,
		Triggers:    req.Triggers,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		Flow:        req.Flow,
		CreatedAt:   existing.CreatedAt,
	}

	if err := s.authorizeDevices(ctx, updated); err != nil {
		return nil, err
	}

	if err := checkGraphStructure(updated.Flow); err != nil {
		return nil, err
	}

	if !updated.IsDraft {
		if valid, violations := flow.Validate(updated.Flow.Nodes, updated.Flow.Edges); !valid {
			return nil, &FlowValidationError{Violations: violations}
		}
	}

	if err := s.syncAndReconcile(updated, existing); err != nil {
		return nil, err
	}

	if err := s.persistence.AutomationRepository().Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update automation: %w", err)
	}

	return updated, nil
}

// syncAndReconcile diffs the submitted entities against existing rows (three
// independent diffs), then rewrites the graph so node ids and edge endpoints
// address the freshly assigned entity ids.
func (s *Automation) syncAndReconcile(automation, existing *models.Automation) error {
	var (
		prevTriggers   []*models.Trigger
		prevConditions []*models.Condition
		prevActions    []*models.Action
	)

	if existing != nil {
		prevTriggers = existing.Triggers
		prevConditions = existing.Conditions
		prevActions = existing.Actions
	}

	triggerSync, err := flow.SyncTriggers(prevTriggers, automation.Triggers)
	if err != nil {
		return err
	}

	conditionSync, err := flow.SyncConditions(prevConditions, automation.Conditions)
	if err != nil {
		return err
	}

	actionSync, err := flow.SyncActions(prevActions, automation.Actions)
	if err != nil {
		return err
	}

	automation.Triggers = triggerSync.Rows
	automation.Conditions = conditionSync.Rows
	automation.Actions = actionSync.Rows

	for _, t := range automation.Triggers {
		t.AutomationID = automation.ID
	}

	for _, c := range automation.Conditions {
		c.AutomationID = automation.ID
	}

	for _, a := range automation.Actions {
		a.AutomationID = automation.ID
	}

	s.reconciler.Reconcile(automation.Flow, triggerSync.CreatedIDs, conditionSync.CreatedIDs, actionSync.CreatedIDs)

	return nil
}

// ToggleEnabled flips the enabled flag. It refuses for drafts and for
// automations failing the lightweight completeness check: at least one
// trigger and one action, each with its type's required fields set. This is
// deliberately narrower than full flow validation; connectivity and ordering
// rules do not run here.
func (s *Automation) ToggleEnabled(ctx context.Context, id string) (*models.Automation, error) {
	automation, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if automation == nil {
		return nil, ErrAutomationNotFound
	}

	if automation.IsDraft {
		return nil, &ToggleError{Reasons: []string{"automation is a draft"}, Err: ErrDraftNotToggleable}
	}

	if reasons := completenessProblems(automation); len(reasons) > 0 {
		return nil, &ToggleError{Reasons: reasons, Err: ErrAutomationIncomplete}
	}

	automation.Enabled = !automation.Enabled

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to toggle automation: %w", err)
	}

	return automation, nil
}

// FetchByID retrieves an automation and re-derives the graph's entity
// linkage so the editor always opens against the relational truth.
func (s *Automation) FetchByID(ctx context.Context, id string) (*models.Automation, error) {
	automation, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if automation == nil {
		return nil, ErrAutomationNotFound
	}

	s.reconciler.Relink(automation.Flow, automation.Triggers, automation.Conditions, automation.Actions)

	return automation, nil
}

// Delete removes an automation; entities, flow graph and logs cascade.
func (s *Automation) Delete(ctx context.Context, id string) error {
	existing, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrAutomationNotFound
	}

	if err := s.persistence.AutomationRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete automation: %w", err)
	}

	return nil
}

// ListAutomationsRequest contains options for listing automations.
type ListAutomationsRequest struct {
	Limit   int
	Offset  int
	OwnerID string
	Enabled *bool
	IsDraft *bool

	SortBy    string
	SortOrder string
}

// ListAutomationsResponse contains the result of listing automations.
type ListAutomationsResponse struct {
	Automations []*models.Automation `json:"automations"`
	TotalCount  int64                `json:"total_count"`
	HasNextPage bool                 `json:"has_next_page"`
}

// List retrieves automations with filtering, sorting, and pagination.
func (s *Automation) List(ctx context.Context, req ListAutomationsRequest) (*ListAutomationsResponse, error) {
	if err := s.validateListRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	result, err := s.persistence.AutomationRepository().List(ctx, persistence.ListAutomationsOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		OwnerID:   req.OwnerID,
		Enabled:   req.Enabled,
		IsDraft:   req.IsDraft,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	return &ListAutomationsResponse{
		Automations: result.Automations,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// validateListRequest validates and sets defaults for the request.
func (s *Automation) validateListRequest(req *ListAutomationsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}
	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewServiceError(
			"validateListRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewServiceError(
			"validateListRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	return nil
}

// authorizeDevices rejects the whole save before any persistence begins when
// a referenced device is outside the owner's device set.
func (s *Automation) authorizeDevices(ctx context.Context, automation *models.Automation) error {
	for _, deviceID := range automation.DeviceIDs() {
		owned, err := s.devices.OwnsDevice(ctx, automation.OwnerID, deviceID)
		if err != nil {
			return fmt.Errorf("device ownership check failed for %s: %w", deviceID, err)
		}

		if !owned {
			return NewServiceError(
				"authorizeDevices",
				"DEVICE_NOT_OWNED",
				fmt.Sprintf("device %s does not belong to the automation owner", deviceID),
				ErrDeviceNotOwned,
			)
		}
	}

	return nil
}

// completenessProblems is the lightweight check behind the enable toggle.
func completenessProblems(automation *models.Automation) []string {
	var reasons []string

	if len(automation.Triggers) == 0 {
		reasons = append(reasons, flow.MsgNoTrigger)
	}

	if len(automation.Actions) == 0 {
		reasons = append(reasons, flow.MsgNoAction)
	}

	for _, t := range automation.Triggers {
		if missing := t.MissingFields(); len(missing) > 0 {
			reasons = append(reasons, fmt.Sprintf("%s trigger is missing %s", t.Type, strings.Join(missing, ", ")))
		}
	}

	for _, a := range automation.Actions {
		if missing := a.MissingFields(); len(missing) > 0 {
			reasons = append(reasons, fmt.Sprintf("%s action is missing %s", a.Type, strings.Join(missing, ", ")))
		}
	}

	return reasons
}

// checkGraphStructure enforces the structural bookends: exactly one start and
// one end node, present from creation and never user-deleted.
func checkGraphStructure(graph *models.FlowGraph) error {
	starts := len(graph.NodesOfType(models.NodeTypeStart))
	ends := len(graph.NodesOfType(models.NodeTypeEnd))

	if starts != 1 || ends != 1 {
		return NewServiceError(
			"checkGraphStructure",
			"INVALID_GRAPH_STRUCTURE",
			fmt.Sprintf("flow graph must contain exactly one start and one end node, got %d and %d", starts, ends),
			ErrInvalidRequest,
		)
	}

	return nil
}

// defaultFlowGraph is the empty canvas every automation starts from.
func defaultFlowGraph() *models.FlowGraph {
	return &models.FlowGraph{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart, Position: models.Position{X: 0, Y: 0}},
			{ID: "end", Type: models.NodeTypeEnd, Position: models.Position{X: 0, Y: 240}},
		},
		Edges: []*models.FlowEdge{},
	}
}
