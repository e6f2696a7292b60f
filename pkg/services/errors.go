// Package services implements the automation engine's inbound operations:
// the transactional save pipeline, the enable toggle, execution log writes
// and the batch read path consumed by the external runner.
package services

import (
	"errors"
	"fmt"
	"strings"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidSortField     = errors.New("invalid sort field")
	ErrInvalidSortOrder     = errors.New("invalid sort order")
	ErrInvalidStatus        = errors.New("invalid execution status")
	ErrEmptyOwnerID         = errors.New("owner ID cannot be empty")
	ErrFlowInvalid          = errors.New("flow validation failed")
	ErrGraphWithoutEntities = errors.New("flow graph and entities must be submitted together")

	// Authorization errors (403 Forbidden).
	ErrDeviceNotOwned = errors.New("device does not belong to the automation owner")

	// Not found (404).
	ErrAutomationNotFound = errors.New("automation not found")

	// Toggle refusals (422 Unprocessable Entity).
	ErrDraftNotToggleable   = errors.New("draft automations cannot be enabled")
	ErrAutomationIncomplete = errors.New("automation is incomplete")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewServiceError creates a new service error with context.
func NewServiceError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// FlowValidationError carries the full accumulated list of flow rule
// violations so the caller sees every problem at once.
type FlowValidationError struct {
	Violations []string
}

func (e *FlowValidationError) Error() string {
	return "flow validation failed: " + strings.Join(e.Violations, "; ")
}

func (e *FlowValidationError) Is(target error) bool {
	return target == ErrFlowInvalid
}

// ToggleError explains why an enable flip was refused, naming the precise
// rules violated rather than a generic failure.
type ToggleError struct {
	Reasons []string
	Err     error
}

func (e *ToggleError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Reasons, "; "))
}

func (e *ToggleError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, ErrFlowInvalid) ||
		errors.Is(err, ErrGraphWithoutEntities)
}

// IsAuthorizationError checks if an error should return HTTP 403.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrDeviceNotOwned)
}

// IsToggleRefusal checks if an error should return HTTP 422.
func IsToggleRefusal(err error) bool {
	return errors.Is(err, ErrDraftNotToggleable) ||
		errors.Is(err, ErrAutomationIncomplete)
}

// IsNotFound checks if an error should return HTTP 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}
