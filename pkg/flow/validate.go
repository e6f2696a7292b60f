package flow

import (
	"fmt"
	"strings"

	"github.com/openhaus/flowengine/pkg/models"
)

// Validation messages. These are user-facing and stable: the API returns the
// precise rules violated, never a generic "invalid automation".
const (
	MsgNoTrigger = "automation must have at least one trigger"
	MsgNoAction  = "automation must have at least one action"

	MsgStartUnconnected = "start node must connect to the flow"
	MsgEndUnreached     = "end node must be reached by the flow"
	MsgNoPathToEnd      = "no path from start to end"

	MsgConditionAfterAction  = "condition after action is not allowed"
	MsgTriggerAfterAction    = "trigger after action is not allowed"
	MsgTriggerAfterCondition = "trigger after condition is not allowed"
)

// Validate checks a flow graph's structural and semantic correctness. It is a
// pure function: all rules are accumulated rather than short-circuited so the
// caller sees every problem at once, the result list is deduplicated in
// first-occurrence order, and valid is true iff the list is empty.
//
// Drafts never reach this function; only full saves and enable flips do.
func Validate(nodes []*models.FlowNode, edges []*models.FlowEdge) (bool, []string) {
	v := &violations{seen: make(map[string]struct{})}

	byID := make(map[string]*models.FlowNode, len(nodes))
	incoming := make(map[string]int)
	outgoing := make(map[string][]string)

	var start, end *models.FlowNode

	functional := 0
	triggers := 0
	actions := 0

	for _, node := range nodes {
		byID[node.ID] = node

		switch node.Type {
		case models.NodeTypeStart:
			start = node
		case models.NodeTypeEnd:
			end = node
		case models.NodeTypeTrigger:
			triggers++
			functional++
		case models.NodeTypeCondition:
			functional++
		case models.NodeTypeAction:
			actions++
			functional++
		}
	}

	for _, edge := range edges {
		incoming[edge.Target]++
		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
	}

	// Rule 1: cardinality.
	if triggers == 0 {
		v.add(MsgNoTrigger)
	}

	if actions == 0 {
		v.add(MsgNoAction)
	}

	// Rule 2: per-type field completeness, read from the node's editor data.
	for _, node := range nodes {
		checkNodeFields(v, node)
	}

	// Rule 3: connectivity.
	if functional > 0 {
		if start != nil && len(outgoing[start.ID]) == 0 {
			v.add(MsgStartUnconnected)
		}

		if end != nil && incoming[end.ID] == 0 {
			v.add(MsgEndUnreached)
		}
	}

	for _, node := range nodes {
		in := incoming[node.ID]
		out := len(outgoing[node.ID])

		switch node.Type {
		case models.NodeTypeTrigger:
			if out == 0 && functional > 1 {
				v.add(fmt.Sprintf("trigger node %s has no outgoing connection", node.ID))
			}
		case models.NodeTypeAction:
			if in == 0 && functional > 1 {
				v.add(fmt.Sprintf("action node %s has no incoming connection", node.ID))
			}
		case models.NodeTypeCondition:
			if in == 0 || out == 0 {
				v.add(fmt.Sprintf("condition node %s must have incoming and outgoing connections", node.ID))
			}
		}

		if node.Type.IsFunctional() && in == 0 && out == 0 && functional > 1 {
			v.add(fmt.Sprintf("node %s is isolated", node.ID))
		}
	}

	// Rule 4: reachability from start (and from triggers with no incoming
	// edge, which act as alternate roots) to end.
	if start != nil && end != nil && functional > 0 {
		roots := []string{start.ID}

		for _, node := range nodes {
			if node.Type == models.NodeTypeTrigger && incoming[node.ID] == 0 {
				roots = append(roots, node.ID)
			}
		}

		if !reaches(roots, end.ID, outgoing) {
			v.add(MsgNoPathToEnd)
		}
	}

	// Rule 5: causal ordering. A forbidden transition is a rank decrease
	// across an edge between functional nodes; checking edges directly is
	// equivalent to walking every path and is immune to cycles.
	for _, edge := range edges {
		source, target := byID[edge.Source], byID[edge.Target]
		if source == nil || target == nil {
			continue
		}

		sourceRank, ok := source.Type.Rank()
		if !ok {
			continue
		}

		targetRank, ok := target.Type.Rank()
		if !ok {
			continue
		}

		if targetRank >= sourceRank {
			continue
		}

		switch {
		case source.Type == models.NodeTypeAction && target.Type == models.NodeTypeCondition:
			v.add(MsgConditionAfterAction)
		case source.Type == models.NodeTypeAction && target.Type == models.NodeTypeTrigger:
			v.add(MsgTriggerAfterAction)
		case source.Type == models.NodeTypeCondition && target.Type == models.NodeTypeTrigger:
			v.add(MsgTriggerAfterCondition)
		}
	}

	return len(v.list) == 0, v.list
}

// violations accumulates deduplicated messages in first-occurrence order.
type violations struct {
	seen map[string]struct{}
	list []string
}

func (v *violations) add(msg string) {
	if _, ok := v.seen[msg]; ok {
		return
	}

	v.seen[msg] = struct{}{}
	v.list = append(v.list, msg)
}

// reaches reports whether any root can reach target over the adjacency map.
func reaches(roots []string, target string, outgoing map[string][]string) bool {
	visited := make(map[string]struct{})
	queue := append([]string(nil), roots...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if id == target {
			return true
		}

		if _, ok := visited[id]; ok {
			continue
		}

		visited[id] = struct{}{}
		queue = append(queue, outgoing[id]...)
	}

	return false
}

// checkNodeFields validates per-type field completeness for one functional
// node. The node's subtype and fields live in its editor data; the relational
// row models define which fields each subtype requires.
func checkNodeFields(v *violations, node *models.FlowNode) {
	switch node.Type {
	case models.NodeTypeTrigger:
		subtype := node.DataString("type")
		if subtype == "" {
			v.add(fmt.Sprintf("trigger node %s is missing a type", node.ID))

			return
		}

		trigger := models.Trigger{
			Type:            models.TriggerType(subtype),
			TimeAt:          node.DataString("time_at"),
			DaysOfWeek:      dataStrings(node, "days_of_week"),
			IntervalSeconds: dataInt(node, "interval_seconds"),
			DeviceID:        node.DataString("device_id"),
			Field:           node.DataString("field"),
			MQTTTopic:       node.DataString("mqtt_topic"),
			MQTTPayload:     node.DataString("mqtt_payload"),
		}

		addMissing(v, subtype+" trigger", trigger.MissingFields())
	case models.NodeTypeCondition:
		subtype := node.DataString("type")
		if subtype == "" {
			v.add(fmt.Sprintf("condition node %s is missing a type", node.ID))

			return
		}

		condition := models.Condition{
			Type:       models.ConditionType(subtype),
			DeviceID:   node.DataString("device_id"),
			Field:      node.DataString("field"),
			Operator:   node.DataString("operator"),
			Value:      dataValue(node, "value"),
			TimeAt:     node.DataString("time_at"),
			DaysOfWeek: dataStrings(node, "days_of_week"),
		}

		addMissing(v, subtype+" condition", condition.MissingFields())
	case models.NodeTypeAction:
		subtype := node.DataString("type")
		if subtype == "" {
			v.add(fmt.Sprintf("action node %s is missing a type", node.ID))

			return
		}

		action := models.Action{
			Type:              models.ActionType(subtype),
			DeviceID:          node.DataString("device_id"),
			Field:             node.DataString("field"),
			Value:             dataValue(node, "value"),
			MQTTTopic:         node.DataString("mqtt_topic"),
			Payload:           node.DataString("payload"),
			NotificationTitle: node.DataString("notification_title"),
			Message:           node.DataString("message"),
		}

		addMissing(v, subtype+" action", action.MissingFields())
	}
}

func addMissing(v *violations, what string, missing []string) {
	if len(missing) == 0 {
		return
	}

	v.add(fmt.Sprintf("%s is missing %s", what, strings.Join(missing, ", ")))
}

func dataStrings(node *models.FlowNode, key string) []string {
	if node.Data == nil {
		return nil
	}

	switch values := node.Data[key].(type) {
	case []string:
		return values
	case []any:
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, fmt.Sprintf("%v", v))
		}

		return out
	default:
		return nil
	}
}

func dataInt(node *models.FlowNode, key string) int {
	if node.Data == nil {
		return 0
	}

	switch v := node.Data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func dataValue(node *models.FlowNode, key string) any {
	if node.Data == nil {
		return nil
	}

	return node.Data[key]
}
