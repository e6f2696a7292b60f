package flow

import (
	"log/slog"

	"github.com/openhaus/flowengine/pkg/models"
)

// Reconciler rewrites a submitted flow graph so node ids and edge endpoints
// address the freshly persisted entity rows. It is the glue that keeps the
// editor graph and the relational truth addressable by the same keys.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a reconciler. The logger is used to flag when the
// best-effort positional fallback is exercised on read.
func NewReconciler(logger *slog.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile walks the graph's nodes in order. Functional nodes that are
// transient (no stable "{type}-{entityId}" id yet) consume the next created
// id of their type, in submission order, and are rewritten in place. Nodes
// that already carry a stable id are left untouched and do not consume
// created ids. Edge endpoints are remapped through the oldId -> newId map and
// every edge id is regenerated from its endpoints, so reconciling an
// already-reconciled graph is a no-op.
//
// Index-position matching is the authoritative rule here: it assumes the
// caller submitted triggers, conditions and actions in the same order as the
// corresponding graph nodes appear.
func (r *Reconciler) Reconcile(graph *models.FlowGraph, triggerIDs, conditionIDs, actionIDs []string) *models.FlowGraph {
	if graph == nil {
		return nil
	}

	pending := map[models.NodeType][]string{
		models.NodeTypeTrigger:   triggerIDs,
		models.NodeTypeCondition: conditionIDs,
		models.NodeTypeAction:    actionIDs,
	}

	renamed := make(map[string]string)

	for _, node := range graph.Nodes {
		if !node.Type.IsFunctional() || isStable(node) {
			continue
		}

		queue := pending[node.Type]
		if len(queue) == 0 {
			r.logger.Warn("transient node has no created entity to bind",
				"node_id", node.ID,
				"node_type", node.Type)

			continue
		}

		entityID := queue[0]
		pending[node.Type] = queue[1:]

		newID := models.StableNodeID(node.Type, entityID)
		if node.ID != newID {
			renamed[node.ID] = newID
		}

		node.ID = newID
		node.SetEntityID(entityID)
	}

	for _, edge := range graph.Edges {
		if mapped, ok := renamed[edge.Source]; ok {
			edge.Source = mapped
		}

		if mapped, ok := renamed[edge.Target]; ok {
			edge.Target = mapped
		}

		edge.ID = models.EdgeID(edge.Source, edge.Target)
	}

	return graph
}

// isStable reports whether a node already addresses a persisted entity: its
// id must be the canonical "{type}-{entityId}" form for its own entityId.
func isStable(node *models.FlowNode) bool {
	entityID := node.EntityID()
	if entityID == "" {
		return false
	}

	return node.ID == models.StableNodeID(node.Type, entityID)
}

// EntityForNode matches a persisted node back to an entity id on read. The
// lookup chain is: exact "{type}-{entityId}" id match, then data.entityId
// equality, then positional fallback (the Nth node of a type maps to the Nth
// entity of that type).
//
// The positional fallback is best-effort and can mis-map when entity ordering
// has drifted from node ordering after repeated edits. That is an accepted,
// named limitation; it is logged so operators and tests can tell the
// fallback path apart from an exact match.
//
// nodeIndex is the node's ordinal among same-type nodes; entityIDs are the
// stored entity ids of that type in storage order.
func (r *Reconciler) EntityForNode(node *models.FlowNode, nodeIndex int, entityIDs []string) (string, bool) {
	live := make(map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		live[id] = struct{}{}
	}

	if id, ok := models.EntityIDFromNodeID(node.ID, node.Type); ok {
		if _, exists := live[id]; exists {
			return id, true
		}
	}

	if id := node.EntityID(); id != "" {
		if _, exists := live[id]; exists {
			return id, true
		}
	}

	if nodeIndex >= 0 && nodeIndex < len(entityIDs) {
		r.logger.Warn("matched node to entity by position",
			"node_id", node.ID,
			"node_type", node.Type,
			"node_index", nodeIndex,
			"entity_id", entityIDs[nodeIndex])

		return entityIDs[nodeIndex], true
	}

	return "", false
}

// Relink backfills entity linkage on a stored graph before it is handed to
// the editor: every functional node gets its data.entityId re-derived through
// the lookup chain so repeated edits keep converging on the relational truth.
func (r *Reconciler) Relink(graph *models.FlowGraph, triggers []*models.Trigger, conditions []*models.Condition, actions []*models.Action) {
	if graph == nil {
		return
	}

	ids := map[models.NodeType][]string{
		models.NodeTypeTrigger:   triggerIDList(triggers),
		models.NodeTypeCondition: conditionIDList(conditions),
		models.NodeTypeAction:    actionIDList(actions),
	}

	index := make(map[models.NodeType]int)

	for _, node := range graph.Nodes {
		if !node.Type.IsFunctional() {
			continue
		}

		i := index[node.Type]
		index[node.Type] = i + 1

		if entityID, ok := r.EntityForNode(node, i, ids[node.Type]); ok {
			node.SetEntityID(entityID)
		}
	}
}

func triggerIDList(triggers []*models.Trigger) []string {
	ids := make([]string, 0, len(triggers))
	for _, t := range triggers {
		ids = append(ids, t.ID)
	}

	return ids
}

func conditionIDList(conditions []*models.Condition) []string {
	ids := make([]string, 0, len(conditions))
	for _, c := range conditions {
		ids = append(ids, c.ID)
	}

	return ids
}

func actionIDList(actions []*models.Action) []string {
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, a.ID)
	}

	return ids
}
