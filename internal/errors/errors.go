package errors

import "fmt"

// ErrorCode represents an itinvault error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrRemoteFailure  ErrorCode = "REMOTE_FAILURE"  // 502
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// VaultError represents a structured error with code, status, and details.
type VaultError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
// Validation failures are surfaced before any store I/O happens.
func NewInvalidRequest(msg string) *VaultError {
	return &VaultError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewScenarioNotFound creates a 404 error for a missing scenario.
func NewScenarioNotFound(scenarioID string) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("scenario not found: %s", scenarioID),
		Details: map[string]any{"scenario_id": scenarioID},
	}
}

// NewVersionNotFound creates a 404 error for a missing version of a scenario.
func NewVersionNotFound(scenarioID string, versionNumber int) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("version %d not found in scenario %s", versionNumber, scenarioID),
		Details: map[string]any{"scenario_id": scenarioID, "version_number": versionNumber},
	}
}

// NewConflict creates a 409 error for uniqueness conflicts, e.g. two callers
// racing to create the same scenario name.
func NewConflict(msg string) *VaultError {
	return &VaultError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewRemoteFailure creates a 502 error wrapping a failed store call.
// The failure is propagated unchanged to the caller; no retries happen here.
func NewRemoteFailure(err error) *VaultError {
	msg := "remote store call failed"
	if err != nil {
		msg = err.Error()
	}
	return &VaultError{
		Code:    ErrRemoteFailure,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VaultError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VaultError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a VaultError with the given code.
func Is(err error, code ErrorCode) bool {
	if vErr, ok := err.(*VaultError); ok {
		return vErr.Code == code
	}
	return false
}
