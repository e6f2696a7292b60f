package services

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhaus/flowengine/pkg/models"
	"github.com/openhaus/flowengine/pkg/persistence"
	"github.com/openhaus/flowengine/pkg/persistence/file"
)

func newRunnerFixture(t *testing.T) (*Runner, persistence.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	p := file.NewPersistence(t.TempDir())

	return NewRunner(p, nil, logger), p
}

func saveEnabled(t *testing.T, p persistence.Persistence, automation *models.Automation) {
	t.Helper()

	automation.Enabled = true
	automation.IsDraft = false
	require.NoError(t, p.AutomationRepository().Save(t.Context(), automation))
}

func validRunnerAutomation(name string) *models.Automation {
	return &models.Automation{
		OwnerID: "user-1",
		Name:    name,
		Triggers: []*models.Trigger{
			{ID: "t1", Type: models.TriggerTypeTime, TimeAt: "07:00", DaysOfWeek: []string{"mon"}},
		},
		Actions: []*models.Action{
			{ID: "a1", Type: models.ActionTypeLog, Message: "fired"},
		},
		Flow: &models.FlowGraph{
			Nodes: []*models.FlowNode{
				{ID: "start", Type: models.NodeTypeStart},
				{ID: "trigger-t1", Type: models.NodeTypeTrigger, Data: map[string]any{
					"entityId": "t1", "type": "time", "time_at": "07:00", "days_of_week": []any{"mon"},
				}},
				{ID: "action-a1", Type: models.NodeTypeAction, Data: map[string]any{
					"entityId": "a1", "type": "log", "message": "fired",
				}},
				{ID: "end", Type: models.NodeTypeEnd},
			},
			Edges: []*models.FlowEdge{
				{ID: "e1", Source: "start", Target: "trigger-t1"},
				{ID: "e2", Source: "trigger-t1", Target: "action-a1"},
				{ID: "e3", Source: "action-a1", Target: "end"},
			},
		},
	}
}

func TestRunner_ActiveAutomations(t *testing.T) {
	runner, p := newRunnerFixture(t)

	saveEnabled(t, p, validRunnerAutomation("Wake Up"))

	// Disabled and draft automations never reach the runner.
	require.NoError(t, p.AutomationRepository().Save(t.Context(), &models.Automation{
		Name: "Disabled", Enabled: false,
	}))
	require.NoError(t, p.AutomationRepository().Save(t.Context(), &models.Automation{
		Name: "Draft", Enabled: false, IsDraft: true,
	}))

	batch, err := runner.ActiveAutomations(t.Context(), 50, 0)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	entry := batch[0]
	assert.Equal(t, "Wake Up", entry.Name)
	assert.True(t, entry.FlowValid)
	assert.Empty(t, entry.ValidationErrors)

	require.Len(t, entry.ExecutionPaths, 1)

	path := entry.ExecutionPaths["trigger-t1"]
	require.NotNil(t, path)
	assert.Equal(t, "t1", path.Trigger.ID)
	require.Len(t, path.Actions, 1)
	assert.Equal(t, "a1", path.Actions[0].ID)
}

func TestRunner_FailureIsolation(t *testing.T) {
	runner, p := newRunnerFixture(t)

	saveEnabled(t, p, validRunnerAutomation("Healthy"))

	// A backwards edge fails the broken automation; it must be annotated, not
	// fatal for the batch.
	broken := validRunnerAutomation("Broken")
	broken.Flow.Edges = append(broken.Flow.Edges, &models.FlowEdge{
		ID: "back", Source: "action-a1", Target: "trigger-t1",
	})
	saveEnabled(t, p, broken)

	batch, err := runner.ActiveAutomations(t.Context(), 50, 0)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	byName := make(map[string]*RunnerAutomation, len(batch))
	for _, entry := range batch {
		byName[entry.Name] = entry
	}

	healthy := byName["Healthy"]
	require.NotNil(t, healthy)
	assert.True(t, healthy.FlowValid)

	failed := byName["Broken"]
	require.NotNil(t, failed)
	assert.False(t, failed.FlowValid)
	assert.NotEmpty(t, failed.ValidationErrors)
	assert.Nil(t, failed.ExecutionPaths)
}

func TestRunner_InvalidFlowAnnotated(t *testing.T) {
	runner, p := newRunnerFixture(t)

	// No flow metadata at all.
	bare := &models.Automation{Name: "Bare"}
	saveEnabled(t, p, bare)

	// Structurally present but failing validation: no action node.
	incomplete := validRunnerAutomation("Incomplete")
	incomplete.Flow.Nodes = incomplete.Flow.Nodes[:2] // keep only start and trigger
	incomplete.Flow.Edges = incomplete.Flow.Edges[:1]
	saveEnabled(t, p, incomplete)

	batch, err := runner.ActiveAutomations(t.Context(), 50, 0)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	for _, entry := range batch {
		assert.False(t, entry.FlowValid, entry.Name)
		assert.NotEmpty(t, entry.ValidationErrors, entry.Name)
	}
}
