package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhaus/flowengine/pkg/models"
)

func stableNode(t models.NodeType, entityID string) *models.FlowNode {
	return &models.FlowNode{
		ID:   models.StableNodeID(t, entityID),
		Type: t,
		Data: map[string]any{"entityId": entityID},
	}
}

func TestResolve_MinimalPath(t *testing.T) {
	nodes := []*models.FlowNode{
		{ID: "start", Type: models.NodeTypeStart},
		stableNode(models.NodeTypeTrigger, "t1"),
		stableNode(models.NodeTypeCondition, "c1"),
		stableNode(models.NodeTypeAction, "a1"),
		{ID: "end", Type: models.NodeTypeEnd},
	}

	edges := []*models.FlowEdge{
		{ID: "e1", Source: "start", Target: "trigger-t1"},
		{ID: "e2", Source: "trigger-t1", Target: "condition-c1"},
		{ID: "e3", Source: "condition-c1", Target: "action-a1"},
		{ID: "e4", Source: "action-a1", Target: "end"},
	}

	triggers := []*models.Trigger{{ID: "t1", Type: models.TriggerTypeTime}}
	conditions := []*models.Condition{{ID: "c1", Type: models.ConditionTypeSimple}}
	actions := []*models.Action{{ID: "a1", Type: models.ActionTypeLog}}

	paths, err := Resolve(nodes, edges, triggers, conditions, actions)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	path := paths["trigger-t1"]
	require.NotNil(t, path)
	assert.Equal(t, "t1", path.Trigger.ID)

	require.Len(t, path.Conditions, 1)
	assert.Equal(t, "c1", path.Conditions[0].ID)

	require.Len(t, path.Actions, 1)
	assert.Equal(t, "a1", path.Actions[0].ID)

	assert.Equal(t, []string{"trigger-t1", "condition-c1", "action-a1", "end"}, path.PathNodeIDs)
}

func TestResolve_OnePathPerTrigger(t *testing.T) {
	nodes := []*models.FlowNode{
		stableNode(models.NodeTypeTrigger, "t1"),
		stableNode(models.NodeTypeTrigger, "t2"),
		stableNode(models.NodeTypeAction, "a1"),
	}

	// Both triggers converge on the same action.
	edges := []*models.FlowEdge{
		{ID: "e1", Source: "trigger-t1", Target: "action-a1"},
		{ID: "e2", Source: "trigger-t2", Target: "action-a1"},
	}

	triggers := []*models.Trigger{
		{ID: "t1", Type: models.TriggerTypeTime},
		{ID: "t2", Type: models.TriggerTypeMQTT},
	}
	actions := []*models.Action{{ID: "a1", Type: models.ActionTypeNotify}}

	paths, err := Resolve(nodes, edges, triggers, nil, actions)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, key := range []string{"trigger-t1", "trigger-t2"} {
		path := paths[key]
		require.NotNil(t, path, key)
		require.Len(t, path.Actions, 1)
		assert.Equal(t, "a1", path.Actions[0].ID)
	}
}

func TestResolve_DiamondVisitsActionOnce(t *testing.T) {
	nodes := []*models.FlowNode{
		stableNode(models.NodeTypeTrigger, "t1"),
		stableNode(models.NodeTypeCondition, "c1"),
		stableNode(models.NodeTypeCondition, "c2"),
		stableNode(models.NodeTypeAction, "a1"),
	}

	edges := []*models.FlowEdge{
		{ID: "e1", Source: "trigger-t1", Target: "condition-c1"},
		{ID: "e2", Source: "trigger-t1", Target: "condition-c2"},
		{ID: "e3", Source: "condition-c1", Target: "action-a1"},
		{ID: "e4", Source: "condition-c2", Target: "action-a1"},
	}

	triggers := []*models.Trigger{{ID: "t1", Type: models.TriggerTypeInterval}}
	conditions := []*models.Condition{
		{ID: "c1", Type: models.ConditionTypeSimple},
		{ID: "c2", Type: models.ConditionTypeTime},
	}
	actions := []*models.Action{{ID: "a1", Type: models.ActionTypeLog}}

	paths, err := Resolve(nodes, edges, triggers, conditions, actions)
	require.NoError(t, err)

	path := paths["trigger-t1"]
	require.NotNil(t, path)

	assert.Len(t, path.Conditions, 2)
	assert.Len(t, path.Actions, 1)
}

func TestResolve_CycleFails(t *testing.T) {
	nodes := []*models.FlowNode{
		stableNode(models.NodeTypeTrigger, "t1"),
		stableNode(models.NodeTypeCondition, "c1"),
		stableNode(models.NodeTypeAction, "a1"),
	}

	edges := []*models.FlowEdge{
		{ID: "e1", Source: "trigger-t1", Target: "condition-c1"},
		{ID: "e2", Source: "condition-c1", Target: "action-a1"},
		{ID: "e3", Source: "action-a1", Target: "condition-c1"},
	}

	triggers := []*models.Trigger{{ID: "t1", Type: models.TriggerTypeTime}}
	conditions := []*models.Condition{{ID: "c1", Type: models.ConditionTypeSimple}}
	actions := []*models.Action{{ID: "a1", Type: models.ActionTypeLog}}

	_, err := Resolve(nodes, edges, triggers, conditions, actions)
	require.ErrorIs(t, err, ErrCycleDetected)
}

func TestResolve_MalformedEdgeFails(t *testing.T) {
	nodes := []*models.FlowNode{
		stableNode(models.NodeTypeTrigger, "t1"),
	}

	edges := []*models.FlowEdge{
		{ID: "e1", Source: "trigger-t1", Target: "ghost"},
	}

	_, err := Resolve(nodes, edges, []*models.Trigger{{ID: "t1"}}, nil, nil)
	require.ErrorIs(t, err, ErrMalformedGraph)
}

func TestResolve_SkipsTransientNodes(t *testing.T) {
	nodes := []*models.FlowNode{
		stableNode(models.NodeTypeTrigger, "t1"),
		{ID: "node-77", Type: models.NodeTypeTrigger},   // transient trigger
		{ID: "node-78", Type: models.NodeTypeCondition}, // transient condition
		stableNode(models.NodeTypeAction, "a1"),
	}

	edges := []*models.FlowEdge{
		{ID: "e1", Source: "trigger-t1", Target: "node-78"},
		{ID: "e2", Source: "node-78", Target: "action-a1"},
	}

	triggers := []*models.Trigger{{ID: "t1", Type: models.TriggerTypeTime}}
	actions := []*models.Action{{ID: "a1", Type: models.ActionTypeLog}}

	paths, err := Resolve(nodes, edges, triggers, nil, actions)
	require.NoError(t, err)

	// The transient trigger yields no entry; the transient condition is
	// traversed through but contributes no row.
	require.Len(t, paths, 1)

	path := paths["trigger-t1"]
	require.NotNil(t, path)
	assert.Empty(t, path.Conditions)
	require.Len(t, path.Actions, 1)
	assert.Equal(t, "a1", path.Actions[0].ID)
}
