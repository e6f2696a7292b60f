// Package web provides HTTP request and response types for the automation
// API.
package web

import (
	"time"

	"github.com/openhaus/flowengine/pkg/models"
)

// CreateAutomationRequest is the request body for creating an automation.
// Entities and flow graph are submitted together; the flow_metadata shape is
// the persisted wire format the editor round-trips.
type CreateAutomationRequest struct {
	OwnerID     string `json:"owner_id"    validate:"required"`
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	IsDraft     bool   `json:"is_draft"`

	Triggers   []*models.Trigger   `json:"triggers"   validate:"omitempty,dive,required"`
	Conditions []*models.Condition `json:"conditions" validate:"omitempty,dive,required"`
	Actions    []*models.Action    `json:"actions"    validate:"omitempty,dive,required"`
	Flow       *models.FlowGraph   `json:"flow_metadata"`
}

// UpdateAutomationRequest is the request body for updating an automation.
// Base fields are optional to support partial updates; when flow_metadata is
// present the entity lists are treated as the full submission.
type UpdateAutomationRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	IsDraft     *bool   `json:"is_draft,omitempty"`

	Triggers   []*models.Trigger   `json:"triggers,omitempty"`
	Conditions []*models.Condition `json:"conditions,omitempty"`
	Actions    []*models.Action    `json:"actions,omitempty"`
	Flow       *models.FlowGraph   `json:"flow_metadata,omitempty"`
}

// RecordExecutionRequest is the request body the external runner posts one
// outcome through.
type RecordExecutionRequest struct {
	Status     string    `json:"status"      validate:"required,oneof=success failed skipped partial warning"`
	Details    string    `json:"details"`
	ExecutedAt time.Time `json:"executed_at"`
}

// RecordExecutionBatchRequest is the batched variant.
type RecordExecutionBatchRequest struct {
	Executions []BatchExecutionEntry `json:"executions" validate:"required,min=1,dive"`
}

// BatchExecutionEntry is one outcome inside a batched execution report.
type BatchExecutionEntry struct {
	AutomationID string    `json:"automation_id" validate:"required"`
	Status       string    `json:"status"        validate:"required,oneof=success failed skipped partial warning"`
	Details      string    `json:"details"`
	ExecutedAt   time.Time `json:"executed_at"`
}
