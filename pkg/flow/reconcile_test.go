package flow

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhaus/flowengine/pkg/models"
)

func newTestReconciler() *Reconciler {
	return NewReconciler(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func editorGraph() *models.FlowGraph {
	return &models.FlowGraph{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "node-1712", Type: models.NodeTypeTrigger, Data: map[string]any{"type": "time"}},
			{ID: "node-1713", Type: models.NodeTypeCondition, Data: map[string]any{"type": "simple"}},
			{ID: "node-1714", Type: models.NodeTypeAction, Data: map[string]any{"type": "log"}},
			{ID: "end", Type: models.NodeTypeEnd},
		},
		Edges: []*models.FlowEdge{
			{ID: "reactflow__edge-1", Source: "start", Target: "node-1712"},
			{ID: "reactflow__edge-2", Source: "node-1712", Target: "node-1713"},
			{ID: "reactflow__edge-3", Source: "node-1713", Target: "node-1714"},
			{ID: "reactflow__edge-4", Source: "node-1714", Target: "end"},
		},
	}
}

func TestReconcile_RewritesTransientNodesAndEdges(t *testing.T) {
	reconciler := newTestReconciler()
	graph := editorGraph()

	result := reconciler.Reconcile(graph, []string{"t1"}, []string{"c1"}, []string{"a1"})
	require.NotNil(t, result)

	assert.Equal(t, "trigger-t1", result.Nodes[1].ID)
	assert.Equal(t, "t1", result.Nodes[1].EntityID())
	assert.Equal(t, "condition-c1", result.Nodes[2].ID)
	assert.Equal(t, "action-a1", result.Nodes[3].ID)

	// Structural nodes are untouched.
	assert.Equal(t, "start", result.Nodes[0].ID)
	assert.Equal(t, "end", result.Nodes[4].ID)

	// Edge endpoints follow the renames and every edge id is regenerated.
	assert.Equal(t, "edge-start-trigger-t1", result.Edges[0].ID)
	assert.Equal(t, "edge-trigger-t1-condition-c1", result.Edges[1].ID)
	assert.Equal(t, "edge-condition-c1-action-a1", result.Edges[2].ID)
	assert.Equal(t, "edge-action-a1-end", result.Edges[3].ID)
	assert.Equal(t, "trigger-t1", result.Edges[0].Target)
	assert.Equal(t, "action-a1", result.Edges[3].Source)
}

func TestReconcile_IsIdempotent(t *testing.T) {
	reconciler := newTestReconciler()
	graph := editorGraph()

	reconciler.Reconcile(graph, []string{"t1"}, []string{"c1"}, []string{"a1"})

	before, err := json.Marshal(graph)
	require.NoError(t, err)

	// A second pass with no new entities must not change a single byte.
	reconciler.Reconcile(graph, nil, nil, nil)

	after, err := json.Marshal(graph)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestReconcile_StableNodesDoNotConsumeCreatedIDs(t *testing.T) {
	reconciler := newTestReconciler()

	graph := &models.FlowGraph{
		Nodes: []*models.FlowNode{
			{ID: "trigger-t1", Type: models.NodeTypeTrigger, Data: map[string]any{"entityId": "t1"}},
			{ID: "node-99", Type: models.NodeTypeTrigger, Data: map[string]any{"type": "mqtt"}},
		},
	}

	reconciler.Reconcile(graph, []string{"t2"}, nil, nil)

	// The stable node keeps its binding; the transient one takes t2.
	assert.Equal(t, "trigger-t1", graph.Nodes[0].ID)
	assert.Equal(t, "t1", graph.Nodes[0].EntityID())
	assert.Equal(t, "trigger-t2", graph.Nodes[1].ID)
	assert.Equal(t, "t2", graph.Nodes[1].EntityID())
}

func TestEntityForNode_LookupChain(t *testing.T) {
	reconciler := newTestReconciler()
	entityIDs := []string{"t1", "t2"}

	// Exact id match wins.
	id, ok := reconciler.EntityForNode(
		&models.FlowNode{ID: "trigger-t2", Type: models.NodeTypeTrigger},
		0, entityIDs)
	require.True(t, ok)
	assert.Equal(t, "t2", id)

	// Falls through to data.entityId when the node id is not canonical.
	id, ok = reconciler.EntityForNode(
		&models.FlowNode{ID: "node-5", Type: models.NodeTypeTrigger, Data: map[string]any{"entityId": "t1"}},
		1, entityIDs)
	require.True(t, ok)
	assert.Equal(t, "t1", id)

	// Positional fallback when nothing else matches.
	id, ok = reconciler.EntityForNode(
		&models.FlowNode{ID: "node-6", Type: models.NodeTypeTrigger},
		1, entityIDs)
	require.True(t, ok)
	assert.Equal(t, "t2", id)

	// No match at all.
	_, ok = reconciler.EntityForNode(
		&models.FlowNode{ID: "node-7", Type: models.NodeTypeTrigger},
		5, entityIDs)
	assert.False(t, ok)
}

func TestRelink_BackfillsEntityIDs(t *testing.T) {
	reconciler := newTestReconciler()

	graph := &models.FlowGraph{
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "trigger-t1", Type: models.NodeTypeTrigger},
			{ID: "node-old", Type: models.NodeTypeAction},
		},
	}

	reconciler.Relink(graph,
		[]*models.Trigger{{ID: "t1"}},
		nil,
		[]*models.Action{{ID: "a1"}},
	)

	assert.Equal(t, "t1", graph.Nodes[1].EntityID())

	// The action node has no canonical id or entityId; position binds it.
	assert.Equal(t, "a1", graph.Nodes[2].EntityID())
}
