package errors

import (
	"fmt"
	"testing"
)

func TestVaultError_Error(t *testing.T) {
	err := &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "scenario not found",
	}

	expected := "NOT_FOUND: scenario not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("scenario_id is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "scenario_id is required" {
		t.Errorf("Message = %q, want %q", err.Message, "scenario_id is required")
	}
}

func TestNewScenarioNotFound(t *testing.T) {
	err := NewScenarioNotFound("01ABC")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["scenario_id"] != "01ABC" {
		t.Errorf("Details[scenario_id] = %v, want %q", err.Details["scenario_id"], "01ABC")
	}
}

func TestNewVersionNotFound(t *testing.T) {
	err := NewVersionNotFound("01ABC", 3)

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Details["version_number"] != 3 {
		t.Errorf("Details[version_number] = %v, want 3", err.Details["version_number"])
	}
}

func TestNewRemoteFailure(t *testing.T) {
	err := NewRemoteFailure(fmt.Errorf("connection reset"))

	if err.Code != ErrRemoteFailure {
		t.Errorf("Code = %q, want %q", err.Code, ErrRemoteFailure)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Message != "connection reset" {
		t.Errorf("Message = %q, want %q", err.Message, "connection reset")
	}
}

func TestNewRemoteFailure_NilError(t *testing.T) {
	err := NewRemoteFailure(nil)
	if err.Message != "remote store call failed" {
		t.Errorf("Message = %q, want default", err.Message)
	}
}

func TestIs(t *testing.T) {
	notFound := NewScenarioNotFound("x")

	if !Is(notFound, ErrNotFound) {
		t.Error("Is should match NOT_FOUND")
	}
	if Is(notFound, ErrConflict) {
		t.Error("Is should not match CONFLICT")
	}
	if Is(fmt.Errorf("plain"), ErrNotFound) {
		t.Error("Is should not match plain errors")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is should not match nil")
	}
}
