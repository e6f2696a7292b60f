// Package models defines the core domain models for automation flow graphs.
package models

import "time"

// Automation represents a user-authored rule: when trigger, if conditions,
// then actions. It owns its triggers, conditions and actions relationally and
// carries the denormalized editor graph in Flow; both representations are
// always written together.
type Automation struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"    validate:"required"`
	Name        string     `json:"name"        validate:"required,min=3"`
	Description string     `json:"description"`
	Enabled     bool       `json:"enabled"`
	IsDraft     bool       `json:"is_draft"`
	Flow        *FlowGraph `json:"flow_metadata"`

	Triggers   []*Trigger   `json:"triggers"`
	Conditions []*Condition `json:"conditions"`
	Actions    []*Action    `json:"actions"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// DeviceIDs returns every device id referenced by the automation's entities,
// deduplicated in first-reference order. Used for ownership checks before any
// persistence happens.
func (a *Automation) DeviceIDs() []string {
	seen := make(map[string]struct{})

	var ids []string

	add := func(id string) {
		if id == "" {
			return
		}

		if _, ok := seen[id]; ok {
			return
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, t := range a.Triggers {
		add(t.DeviceID)
	}

	for _, c := range a.Conditions {
		add(c.DeviceID)
	}

	for _, act := range a.Actions {
		add(act.DeviceID)
	}

	return ids
}
