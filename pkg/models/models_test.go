package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutomation_DeviceIDs(t *testing.T) {
	automation := &Automation{
		Triggers: []*Trigger{
			{Type: TriggerTypeStateChange, DeviceID: "sensor-1"},
			{Type: TriggerTypeTime},
		},
		Conditions: []*Condition{
			{Type: ConditionTypeSimple, DeviceID: "sensor-1"},
			{Type: ConditionTypeSimple, DeviceID: "sensor-2"},
		},
		Actions: []*Action{
			{Type: ActionTypeDeviceControl, DeviceID: "lamp-1"},
		},
	}

	// Deduplicated, first-reference order, blanks skipped.
	assert.Equal(t, []string{"sensor-1", "sensor-2", "lamp-1"}, automation.DeviceIDs())
}

func TestTrigger_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		missing []string
	}{
		{
			name:    "time trigger complete",
			trigger: Trigger{Type: TriggerTypeTime, TimeAt: "08:00", DaysOfWeek: []string{"mon"}},
		},
		{
			name:    "time trigger empty",
			trigger: Trigger{Type: TriggerTypeTime},
			missing: []string{"time_at", "days_of_week"},
		},
		{
			name:    "interval trigger zero seconds",
			trigger: Trigger{Type: TriggerTypeInterval},
			missing: []string{"interval_seconds"},
		},
		{
			name:    "state change trigger",
			trigger: Trigger{Type: TriggerTypeStateChange, DeviceID: "sensor-1"},
			missing: []string{"field"},
		},
		{
			name:    "unknown type",
			trigger: Trigger{Type: "teleport"},
			missing: []string{"type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, tt.trigger.MissingFields())
		})
	}
}

func TestCondition_ZeroAndFalseAreSet(t *testing.T) {
	condition := Condition{
		Type:     ConditionTypeSimple,
		DeviceID: "sensor-1",
		Field:    "power",
		Operator: "==",
		Value:    false,
	}
	assert.Empty(t, condition.MissingFields())

	condition.Value = "0"
	assert.Empty(t, condition.MissingFields())

	condition.Value = ""
	assert.Equal(t, []string{"value"}, condition.MissingFields())

	condition.Value = nil
	assert.Equal(t, []string{"value"}, condition.MissingFields())
}

func TestFlowNode_EntityID(t *testing.T) {
	node := &FlowNode{ID: "node-1", Type: NodeTypeTrigger}
	assert.Empty(t, node.EntityID())

	node.SetEntityID("t1")
	assert.Equal(t, "t1", node.EntityID())
}

func TestStableNodeIDRoundTrip(t *testing.T) {
	id := StableNodeID(NodeTypeCondition, "c1")
	require.Equal(t, "condition-c1", id)

	entityID, ok := EntityIDFromNodeID(id, NodeTypeCondition)
	require.True(t, ok)
	assert.Equal(t, "c1", entityID)

	// Wrong type prefix does not match.
	_, ok = EntityIDFromNodeID(id, NodeTypeTrigger)
	assert.False(t, ok)

	// A bare prefix with no id does not match.
	_, ok = EntityIDFromNodeID("condition-", NodeTypeCondition)
	assert.False(t, ok)
}

func TestEdgeID(t *testing.T) {
	assert.Equal(t, "edge-trigger-t1-action-a1", EdgeID("trigger-t1", "action-a1"))
}

func TestNodeTypeRank(t *testing.T) {
	for nodeType, want := range map[NodeType]int{
		NodeTypeTrigger:   0,
		NodeTypeCondition: 1,
		NodeTypeAction:    2,
	} {
		rank, ok := nodeType.Rank()
		require.True(t, ok)
		assert.Equal(t, want, rank)
	}

	_, ok := NodeTypeStart.Rank()
	assert.False(t, ok)
	assert.False(t, NodeTypeEnd.IsFunctional())
}

func TestValidExecutionStatus(t *testing.T) {
	assert.True(t, ValidExecutionStatus(ExecutionStatusSuccess))
	assert.True(t, ValidExecutionStatus(ExecutionStatusPartial))
	assert.False(t, ValidExecutionStatus("exploded"))
	assert.False(t, ValidExecutionStatus(""))
}
