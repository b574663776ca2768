// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
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
	// Configuration errors are fatal and never retried.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Contract violations cover malformed or inconsistent LLM output:
	// missing required fields, labels outside the enum, label/score mismatch.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	ErrCodeLLMTimeout        ErrorCode = "LLM_TIMEOUT"

	ErrCodeTranscriptLookupFailed ErrorCode = "TRANSCRIPT_LOOKUP_FAILED"
	ErrCodePersistenceFailed      ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Partial execution failure is recorded, never retried: side effects
	// already performed are not assumed idempotent.
	ErrCodeExecutionPartialFailure ErrorCode = "EXECUTION_PARTIAL_FAILURE"

	ErrCodeInvalidTransition ErrorCode = "INVALID_STATUS_TRANSITION"
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
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewConfigurationError creates a fatal, non-retryable configuration error
// (unknown workflow type, missing threshold).
func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Invalid workflow configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContractViolationError creates a retryable contract violation for a stage
// whose external response broke the documented output contract.
func NewContractViolationError(stage, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeContractViolation,
		Message:   fmt.Sprintf("Stage '%s' received output violating its contract", stage),
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"stage": stage},
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(stage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   fmt.Sprintf("LLM call timed out in stage '%s'", stage),
		Details:   "completion call exceeded its deadline",
		Retryable: true,
		Metadata:  map[string]interface{}{"stage": stage},
		Timestamp: time.Now().UTC(),
	}
}

// NewTranscriptLookupFailedError creates a retryable transcript search error.
func NewTranscriptLookupFailedError(transcriptID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTranscriptLookupFailed,
		Message:   "Transcript lookup failed",
		Details:   fmt.Sprintf("transcriptId: %s, error: %s", transcriptID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError creates a retryable store error.
func NewPersistenceFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Workflow store operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExecutionPartialFailureError records a sub-step failure. Not retryable:
// the execution result keeps everything achieved before the failure.
func NewExecutionPartialFailureError(itemID, failedStep string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExecutionPartialFailure,
		Message:   "Action item execution failed partway",
		Details:   fmt.Sprintf("itemId: %s, failedStep: %s", itemID, failedStep),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable lifecycle violation.
func NewInvalidTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Illegal action item status transition",
		Details:   fmt.Sprintf("%s -> %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the per-code retry budget. Contract violations get a
// short budget before the item is surfaced as stalled; configuration and
// partial-failure errors are never retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePersistenceFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeContractViolation,
		ErrCodeTranscriptLookupFailed:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "CONTRACT") || strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "TRANSCRIPT"):
		return "SEARCH"
	case strings.Contains(codeStr, "PERSISTENCE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "EXECUTION"):
		return "EXECUTION"
	case strings.Contains(codeStr, "TRANSITION"):
		return "LIFECYCLE"
	default:
		return "OTHER"
	}
}
