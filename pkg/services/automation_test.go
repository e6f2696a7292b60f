package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhaus/flowengine/pkg/flow"
	"github.com/openhaus/flowengine/pkg/models"
	"github.com/openhaus/flowengine/pkg/persistence/file"
)

func newTestAutomationService(t *testing.T) *Automation {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewAutomation(file.NewPersistence(t.TempDir()), AllowAllDevices(), logger)
}

// fullSubmission builds the editor's save payload: transient node ids, no
// entity ids yet.
func fullSubmission() SaveAutomationRequest {
	return SaveAutomationRequest{
		OwnerID: "user-1",
		Name:    "Evening Lights",
		Triggers: []*models.Trigger{
			{Type: models.TriggerTypeTime, TimeAt: "19:00", DaysOfWeek: []string{"mon", "tue"}},
		},
		Conditions: []*models.Condition{
			{Type: models.ConditionTypeSimple, DeviceID: "sensor-1", Field: "lux", Operator: "<", Value: "50"},
		},
		Actions: []*models.Action{
			{Type: models.ActionTypeDeviceControl, DeviceID: "lamp-1", Field: "power", Value: true},
		},
		Flow: &models.FlowGraph{
			Nodes: []*models.FlowNode{
				{ID: "start", Type: models.NodeTypeStart},
				{ID: "node-1712", Type: models.NodeTypeTrigger, Data: map[string]any{
					"type": "time", "time_at": "19:00", "days_of_week": []any{"mon", "tue"},
				}},
				{ID: "node-1713", Type: models.NodeTypeCondition, Data: map[string]any{
					"type": "simple", "device_id": "sensor-1", "field": "lux", "operator": "<", "value": "50",
				}},
				{ID: "node-1714", Type: models.NodeTypeAction, Data: map[string]any{
					"type": "device_control", "device_id": "lamp-1", "field": "power", "value": true,
				}},
				{ID: "end", Type: models.NodeTypeEnd},
			},
			Edges: []*models.FlowEdge{
				{ID: "r1", Source: "start", Target: "node-1712"},
				{ID: "r2", Source: "node-1712", Target: "node-1713"},
				{ID: "r3", Source: "node-1713", Target: "node-1714"},
				{ID: "r4", Source: "node-1714", Target: "end"},
			},
		},
	}
}

func TestAutomation_CreateReconcilesGraph(t *testing.T) {
	service := newTestAutomationService(t)

	automation, err := service.Create(t.Context(), fullSubmission())
	require.NoError(t, err)
	require.NotNil(t, automation)

	assert.NotEmpty(t, automation.ID)
	require.Len(t, automation.Triggers, 1)
	require.Len(t, automation.Conditions, 1)
	require.Len(t, automation.Actions, 1)

	triggerID := automation.Triggers[0].ID
	require.NotEmpty(t, triggerID)
	assert.Equal(t, automation.ID, automation.Triggers[0].AutomationID)

	// The transient node ids were rewritten to {type}-{entityId} and the edge
	// ids regenerated from the new endpoints.
	assert.Equal(t, models.StableNodeID(models.NodeTypeTrigger, triggerID), automation.Flow.Nodes[1].ID)
	assert.Equal(t, triggerID, automation.Flow.Nodes[1].EntityID())
	assert.Equal(t, "edge-start-trigger-"+triggerID, automation.Flow.Edges[0].ID)

	// The persisted document round-trips.
	loaded, err := service.FetchByID(t.Context(), automation.ID)
	require.NoError(t, err)
	assert.Equal(t, automation.Flow.Nodes[1].ID, loaded.Flow.Nodes[1].ID)
}

func TestAutomation_CreateRequiresOwner(t *testing.T) {
	service := newTestAutomationService(t)

	req := fullSubmission()
	req.OwnerID = "  "

	_, err := service.Create(t.Context(), req)
	require.ErrorIs(t, err, ErrEmptyOwnerID)
}

func TestAutomation_CreateEnabledDraftRefused(t *testing.T) {
	service := newTestAutomationService(t)

	req := fullSubmission()
	req.Enabled = true
	req.IsDraft = true

	_, err := service.Create(t.Context(), req)
	require.Error(t, err)
	assert.True(t, IsToggleRefusal(err))
}

func TestAutomation_CreateEmptyNonDraftFailsValidation(t *testing.T) {
	service := newTestAutomationService(t)

	_, err := service.Create(t.Context(), SaveAutomationRequest{
		OwnerID: "user-1",
		Name:    "Empty",
	})
	require.Error(t, err)

	var flowErr *FlowValidationError

	require.ErrorAs(t, err, &flowErr)
	assert.Contains(t, flowErr.Violations, flow.MsgNoTrigger)
	assert.Contains(t, flowErr.Violations, flow.MsgNoAction)
}

func TestAutomation_CreateEmptyDraftAllowed(t *testing.T) {
	service := newTestAutomationService(t)

	automation, err := service.Create(t.Context(), SaveAutomationRequest{
		OwnerID: "user-1",
		Name:    "Sketch",
		IsDraft: true,
	})
	require.NoError(t, err)

	// Drafts skip validation but still get the start/end canvas.
	require.NotNil(t, automation.Flow)
	assert.Len(t, automation.Flow.Nodes, 2)
}

func TestAutomation_CreateRejectsForeignDevice(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	registry := DeviceRegistryFunc(func(_ context.Context, _, deviceID string) (bool, error) {
		return deviceID != "lamp-1", nil
	})
	service := NewAutomation(file.NewPersistence(t.TempDir()), registry, logger)

	_, err := service.Create(t.Context(), fullSubmission())
	require.Error(t, err)
	assert.True(t, IsAuthorizationError(err))
}

func TestAutomation_UpdateBaseFieldsOnly(t *testing.T) {
	service := newTestAutomationService(t)

	created, err := service.Create(t.Context(), fullSubmission())
	require.NoError(t, err)

	name := "Renamed"

	updated, err := service.Update(t.Context(), created.ID, UpdateAutomationRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	// Entities untouched by a base-field update.
	require.Len(t, updated.Triggers, 1)
	assert.Equal(t, created.Triggers[0].ID, updated.Triggers[0].ID)
}

func TestAutomation_UpdateEntitiesWithoutFlowRejected(t *testing.T) {
	service := newTestAutomationService(t)

	created, err := service.Create(t.Context(), fullSubmission())
	require.NoError(t, err)

	_, err = service.Update(t.Context(), created.ID, UpdateAutomationRequest{
		Triggers: []*models.Trigger{{Type: models.TriggerTypeMQTT, MQTTTopic: "home/door"}},
	})
	require.ErrorIs(t, err, ErrGraphWithoutEntities)
}

func TestAutomation_UpdateSyncsByDiff(t *testing.T) {
	service := newTestAutomationService(t)

	created, err := service.Create(t.Context(), fullSubmission())
	require.NoError(t, err)

	keptTrigger := created.Triggers[0]
	keptAction := created.Actions[0]

	// Resubmit keeping the trigger (edited) and action, dropping the
	// condition, and wiring the trigger straight to the action.
	keptTrigger.TimeAt = "21:00"

	updated, err := service.Update(t.Context(), created.ID, UpdateAutomationRequest{
		Triggers: []*models.Trigger{keptTrigger},
		Actions:  []*models.Action{keptAction},
		Flow: &models.FlowGraph{
			Nodes: []*models.FlowNode{
				{ID: "start", Type: models.NodeTypeStart},
				{ID: models.StableNodeID(models.NodeTypeTrigger, keptTrigger.ID), Type: models.NodeTypeTrigger, Data: map[string]any{
					"entityId": keptTrigger.ID, "type": "time", "time_at": "21:00", "days_of_week": []any{"mon"},
				}},
				{ID: models.StableNodeID(models.NodeTypeAction, keptAction.ID), Type: models.NodeTypeAction, Data: map[string]any{
					"entityId": keptAction.ID, "type": "device_control", "device_id": "lamp-1", "field": "power", "value": true,
				}},
				{ID: "end", Type: models.NodeTypeEnd},
			},
			Edges: []*models.FlowEdge{
				{ID: "e1", Source: "start", Target: models.StableNodeID(models.NodeTypeTrigger, keptTrigger.ID)},
				{ID: "e2", Source: models.StableNodeID(models.NodeTypeTrigger, keptTrigger.ID), Target: models.StableNodeID(models.NodeTypeAction, keptAction.ID)},
				{ID: "e3", Source: models.StableNodeID(models.NodeTypeAction, keptAction.ID), Target: "end"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Triggers, 1)
	assert.Equal(t, keptTrigger.ID, updated.Triggers[0].ID)
	assert.Equal(t, "21:00", updated.Triggers[0].TimeAt)
	assert.Empty(t, updated.Conditions)
	require.Len(t, updated.Actions, 1)
	assert.Equal(t, keptAction.ID, updated.Actions[0].ID)
}

func TestAutomation_UpdateMissingAutomation(t *testing.T) {
	service := newTestAutomationService(t)

	name := "ghost"

	_, err := service.Update(t.Context(), "no-such-id", UpdateAutomationRequest{Name: &name})
	require.ErrorIs(t, err, ErrAutomationNotFound)
}

func TestAutomation_ToggleEnabled(t *testing.T) {
	service := newTestAutomationService(t)

	created, err := service.Create(t.Context(), fullSubmission())
	require.NoError(t, err)
	require.False(t, created.Enabled)

	toggled, err := service.ToggleEnabled(t.Context(), created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Enabled)

	toggled, err = service.ToggleEnabled(t.Context(), created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)
}

func TestAutomation_ToggleRefusesDraft(t *testing.T) {
	service := newTestAutomationService(t)

	created, err := service.Create(t.Context(), SaveAutomationRequest{
		OwnerID: "user-1",
		Name:    "Sketch",
		IsDraft: true,
	})
	require.NoError(t, err)

	_, err = service.ToggleEnabled(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrDraftNotToggleable)
}

func TestAutomation_ToggleRefusesIncomplete(t *testing.T) {
	service := newTestAutomationService(t)

	// Seed an automation that bypassed validation: a complete trigger but no
	// action at all.
	created, err := service.Create(t.Context(), SaveAutomationRequest{
		OwnerID: "user-1",
		Name:    "Half Done",
		IsDraft: true,
		Triggers: []*models.Trigger{
			{Type: models.TriggerTypeInterval, IntervalSeconds: 60},
		},
	})
	require.NoError(t, err)

	isDraft := false

	_, err = service.Update(t.Context(), created.ID, UpdateAutomationRequest{IsDraft: &isDraft})
	require.NoError(t, err)

	_, err = service.ToggleEnabled(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrAutomationIncomplete)

	var toggleErr *ToggleError

	require.ErrorAs(t, err, &toggleErr)
	assert.Contains(t, toggleErr.Reasons, flow.MsgNoAction)
}

func TestAutomation_DeleteCascades(t *testing.T) {
	service := newTestAutomationService(t)

	created, err := service.Create(t.Context(), fullSubmission())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.FetchByID(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrAutomationNotFound)

	err = service.Delete(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrAutomationNotFound)
}

func TestAutomation_ListValidation(t *testing.T) {
	service := newTestAutomationService(t)

	_, err := service.List(t.Context(), ListAutomationsRequest{SortBy: "owner_id"})
	require.ErrorIs(t, err, ErrInvalidSortField)

	_, err = service.List(t.Context(), ListAutomationsRequest{SortOrder: "sideways"})
	require.ErrorIs(t, err, ErrInvalidSortOrder)

	response, err := service.List(t.Context(), ListAutomationsRequest{})
	require.NoError(t, err)
	assert.Empty(t, response.Automations)
}
