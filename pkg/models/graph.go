package models

import (
	"fmt"
	"strings"
)

// NodeType is the role of a node in the editor graph. Start and end are
// structural bookends that always exist exactly once and are never deleted by
// the user; the functional roles mirror the relational entity kinds.
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeCondition NodeType = "condition"
	NodeTypeAction    NodeType = "action"
)

// Rank orders the functional roles for the causal-ordering rule: triggers
// come before conditions come before actions. Structural nodes have no rank.
func (t NodeType) Rank() (int, bool) {
	switch t {
	case NodeTypeTrigger:
		return 0, true
	case NodeTypeCondition:
		return 1, true
	case NodeTypeAction:
		return 2, true
	default:
		return 0, false
	}
}

// IsFunctional reports whether nodes of this type are backed by a relational
// entity.
func (t NodeType) IsFunctional() bool {
	_, ok := t.Rank()

	return ok
}

// Position is a canvas coordinate used only by the editor.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FlowNode is one node of the persisted flow_metadata blob. Data carries the
// node's entity linkage under "entityId" plus editor-only configuration that
// rides along untouched.
type FlowNode struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
}

const entityIDKey = "entityId"

// EntityID returns the relational entity id the node points at, or "" for a
// transient (not yet saved) node.
func (n *FlowNode) EntityID() string {
	if n.Data == nil {
		return ""
	}

	id, _ := n.Data[entityIDKey].(string)

	return id
}

// SetEntityID records the relational entity id on the node's data blob.
func (n *FlowNode) SetEntityID(id string) {
	if n.Data == nil {
		n.Data = make(map[string]any, 1)
	}

	n.Data[entityIDKey] = id
}

// DataString reads a string-valued editor config field from the node.
func (n *FlowNode) DataString(key string) string {
	if n.Data == nil {
		return ""
	}

	switch v := n.Data[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FlowEdge is a directed connection between two node ids. Edge identity is
// derived from its endpoints, never independently assigned.
type FlowEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// FlowGraph is the persisted flow_metadata blob: the node/edge/position
// representation the visual editor works on.
type FlowGraph struct {
	Nodes []*FlowNode `json:"nodes"`
	Edges []*FlowEdge `json:"edges"`
}

// NodesOfType returns the graph's nodes of one type in declaration order.
func (g *FlowGraph) NodesOfType(t NodeType) []*FlowNode {
	var nodes []*FlowNode

	for _, n := range g.Nodes {
		if n.Type == t {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// StableNodeID is the canonical id of a persisted functional node.
func StableNodeID(t NodeType, entityID string) string {
	return string(t) + "-" + entityID
}

// EdgeID is the canonical derived id of an edge between two nodes.
func EdgeID(source, target string) string {
	return "edge-" + source + "-" + target
}

// EntityIDFromNodeID extracts the entity id from a canonical "{type}-{id}"
// node id, if the node id carries the given type prefix.
func EntityIDFromNodeID(nodeID string, t NodeType) (string, bool) {
	rest, ok := strings.CutPrefix(nodeID, string(t)+"-")
	if !ok || rest == "" {
		return "", false
	}

	return rest, true
}
