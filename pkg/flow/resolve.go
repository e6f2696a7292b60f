package flow

import (
	"errors"
	"fmt"

	"github.com/openhaus/flowengine/pkg/models"
)

// Resolution errors. They are caught per automation by the batch assembler
// and never abort sibling automations.
var (
	// ErrMalformedGraph indicates flow_metadata that cannot be traversed,
	// such as an edge referencing a node that does not exist.
	ErrMalformedGraph = errors.New("malformed flow graph")

	// ErrCycleDetected indicates a cycle reachable from a trigger. The
	// traversal still terminates; the automation is reported invalid.
	ErrCycleDetected = errors.New("cycle detected in flow graph")
)

// ExecutionPath is the per-trigger projection handed to the external runner:
// the trigger row, every condition and action reachable from the trigger
// node, and the raw node-id sequence for diagnostics.
//
// Conditions is the full reachable set on any forward path, not a strict
// linear chain; the traversal deliberately does not distinguish conditions
// that appear topologically after an action. This mirrors the observed
// behavior of the system this engine replaces.
type ExecutionPath struct {
	Trigger     *models.Trigger     `json:"trigger"`
	Conditions  []*models.Condition `json:"conditions"`
	Actions     []*models.Action    `json:"actions"`
	PathNodeIDs []string            `json:"path_node_ids"`
}

// Resolve derives one execution path per persisted trigger node. It is
// read-only and side-effect-free; callers may invoke it repeatedly and
// concurrently without coordination.
//
// Each traversal keeps its own visited set keyed by node id, so the walk
// terminates on any finite graph: a branch that revisits a node simply
// stops there. A back edge into a node still on the traversal stack is a
// genuine cycle and fails the whole resolution with ErrCycleDetected.
//
// Condition and action nodes without a data.entityId are transient (not yet
// saved) and are skipped; a trigger node without one yields no entry at all.
func Resolve(
	nodes []*models.FlowNode,
	edges []*models.FlowEdge,
	triggers []*models.Trigger,
	conditions []*models.Condition,
	actions []*models.Action,
) (map[string]*ExecutionPath, error) {
	byID := make(map[string]*models.FlowNode, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	outgoing := make(map[string][]string)

	for _, edge := range edges {
		if _, ok := byID[edge.Source]; !ok {
			return nil, fmt.Errorf("%w: edge %s references unknown source %s", ErrMalformedGraph, edge.ID, edge.Source)
		}

		if _, ok := byID[edge.Target]; !ok {
			return nil, fmt.Errorf("%w: edge %s references unknown target %s", ErrMalformedGraph, edge.ID, edge.Target)
		}

		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
	}

	triggerRows := make(map[string]*models.Trigger, len(triggers))
	for _, t := range triggers {
		triggerRows[t.ID] = t
	}

	conditionRows := make(map[string]*models.Condition, len(conditions))
	for _, c := range conditions {
		conditionRows[c.ID] = c
	}

	actionRows := make(map[string]*models.Action, len(actions))
	for _, a := range actions {
		actionRows[a.ID] = a
	}

	paths := make(map[string]*ExecutionPath)

	for _, node := range nodes {
		if node.Type != models.NodeTypeTrigger {
			continue
		}

		trigger := triggerRows[node.EntityID()]
		if trigger == nil {
			// Transient or orphaned trigger node: never handed to the runner.
			continue
		}

		path := &ExecutionPath{
			Trigger:     trigger,
			Conditions:  []*models.Condition{},
			Actions:     []*models.Action{},
			PathNodeIDs: []string{node.ID},
		}

		walk := walker{
			byID:          byID,
			outgoing:      outgoing,
			conditionRows: conditionRows,
			actionRows:    actionRows,
			visited:       map[string]struct{}{node.ID: {}},
			onStack:       map[string]struct{}{node.ID: {}},
		}

		if err := walk.descend(node.ID, path); err != nil {
			return nil, fmt.Errorf("trigger node %s: %w", node.ID, err)
		}

		paths[node.ID] = path
	}

	return paths, nil
}

// walker performs one depth-first traversal from a single trigger node.
type walker struct {
	byID          map[string]*models.FlowNode
	outgoing      map[string][]string
	conditionRows map[string]*models.Condition
	actionRows    map[string]*models.Action
	visited       map[string]struct{}
	onStack       map[string]struct{}
}

func (w *walker) descend(id string, path *ExecutionPath) error {
	for _, next := range w.outgoing[id] {
		if _, active := w.onStack[next]; active {
			return fmt.Errorf("%w: back edge %s -> %s", ErrCycleDetected, id, next)
		}

		if _, seen := w.visited[next]; seen {
			// Diamond: another branch already covered this subtree.
			continue
		}

		w.visited[next] = struct{}{}
		path.PathNodeIDs = append(path.PathNodeIDs, next)

		node := w.byID[next]

		switch node.Type {
		case models.NodeTypeCondition:
			if row := w.conditionRows[node.EntityID()]; row != nil {
				path.Conditions = append(path.Conditions, row)
			}
		case models.NodeTypeAction:
			if row := w.actionRows[node.EntityID()]; row != nil {
				path.Actions = append(path.Actions, row)
			}
		}

		w.onStack[next] = struct{}{}

		if err := w.descend(next, path); err != nil {
			return err
		}

		delete(w.onStack, next)
	}

	return nil
}
