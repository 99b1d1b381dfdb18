// internal/common/errors/errors.go
// Package errors provides standardized error handling for the onboarding workflow.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Registry lookup errors
	ErrCodeRegistryNotFound    ErrorCode = "REGISTRY_NOT_FOUND"
	ErrCodeRegistryUnavailable ErrorCode = "REGISTRY_UNAVAILABLE"

	// Identity verification errors
	ErrCodeCodeDeliveryFailed    ErrorCode = "CODE_DELIVERY_FAILED"
	ErrCodeAttestationSendFailed ErrorCode = "ATTESTATION_SEND_FAILED"

	// Document and payout errors
	ErrCodeDocumentStorageFailed ErrorCode = "DOCUMENT_STORAGE_FAILED"
	ErrCodeBankLinkFailed        ErrorCode = "BANK_LINK_FAILED"

	// Finalization errors
	ErrCodeProfilePersistFailed ErrorCode = "PROFILE_PERSIST_FAILED"

	// Input and state machine errors
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeStaleRequest      ErrorCode = "STALE_REQUEST"

	// Infrastructure errors
	ErrCodeStateStoreFailed ErrorCode = "STATE_STORE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRegistryNotFoundError creates a non-retryable lookup error. The carrier
// may retry with a different docket number, not with the same one.
func NewRegistryNotFoundError(docketNumber string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryNotFound,
		Message:   "No authority record found for this docket number",
		Details:   fmt.Sprintf("docketNumber: %s", docketNumber),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistryUnavailableError creates a retryable registry error.
func NewRegistryUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryUnavailable,
		Message:   "Authority registry is temporarily unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCodeDeliveryFailedError creates a retryable code delivery error.
func NewCodeDeliveryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCodeDeliveryFailed,
		Message:   "Verification code could not be delivered",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAttestationSendFailedError creates a retryable attestation delivery error.
func NewAttestationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAttestationSendFailed,
		Message:   "Attestation request could not be sent to the insurance agent",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentStorageFailedError creates a retryable document upload error.
func NewDocumentStorageFailedError(slot string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentStorageFailed,
		Message:   "Document upload failed",
		Details:   fmt.Sprintf("slot: %s, error: %s", slot, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBankLinkFailedError creates a retryable account linking error.
func NewBankLinkFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBankLinkFailed,
		Message:   "Bank account linking failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfilePersistFailedError creates a retryable finalization error.
func NewProfilePersistFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfilePersistFailed,
		Message:   "Carrier profile could not be saved",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable input validation error.
// Corrected by user input, never retried against the network.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable state machine error.
func NewInvalidTransitionError(stage, action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Action is not valid in the current onboarding stage",
		Details:   fmt.Sprintf("stage: %s, action: %s", stage, action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStaleRequestError marks an in-flight result superseded by newer input.
// The result is discarded, not applied.
func NewStaleRequestError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStaleRequest,
		Message:   "Request was superseded by a newer request",
		Details:   fmt.Sprintf("action: %s", action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateStoreFailedError creates a retryable persistence error.
func NewStateStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateStoreFailed,
		Message:   "Onboarding state could not be read or written",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from err, or nil.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return nil
}

// IsRetryable reports whether the user may re-invoke the failed action
// unchanged. Nothing in the workflow auto-retries.
func IsRetryable(err error) bool {
	if stdErr := AsStandard(err); stdErr != nil {
		return stdErr.Retryable
	}
	return false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	stdErr := AsStandard(err)
	return stdErr != nil && stdErr.Code == code
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "REGISTRY"):
		return "REGISTRY"
	case strings.Contains(codeStr, "CODE") || strings.Contains(codeStr, "ATTESTATION"):
		return "IDENTITY"
	case strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENTS"
	case strings.Contains(codeStr, "BANK"):
		return "PAYOUT"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "STALE"):
		return "VALIDATION"
	default:
		return "INFRASTRUCTURE"
	}
}
