package models

import "time"

// ExecutionStatus is the outcome of one runner pass over an automation.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
	ExecutionStatusSkipped ExecutionStatus = "skipped"
	ExecutionStatusPartial ExecutionStatus = "partial"
	ExecutionStatusWarning ExecutionStatus = "warning"
)

// ValidExecutionStatus reports whether s is one of the known outcomes.
func ValidExecutionStatus(s ExecutionStatus) bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusFailed, ExecutionStatusSkipped,
		ExecutionStatusPartial, ExecutionStatusWarning:
		return true
	default:
		return false
	}
}

// AutomationLog is one append-only execution record written by the external
// runner. Logs outlive entity edits and are only removed when the owning
// automation is deleted.
type AutomationLog struct {
	ID           string          `json:"id"`
	AutomationID string          `json:"automation_id" validate:"required"`
	ExecutedAt   time.Time       `json:"executed_at"`
	Status       ExecutionStatus `json:"status"        validate:"required,oneof=success failed skipped partial warning"`
	Details      string          `json:"details"`
	CreatedAt    time.Time       `json:"created_at"`
}
