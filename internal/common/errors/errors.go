// Package errors provides standardized error handling shared by the HTTP and
// job-worker surfaces.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePlannerFailure   ErrorCode = "PLANNER_FAILURE"
	ErrCodePlannerTimeout   ErrorCode = "PLANNER_TIMEOUT"
	ErrCodeCategoryNotMatch ErrorCode = "CATEGORY_NOT_MATCHED"

	ErrCodeListingFetchFailed  ErrorCode = "LISTING_FETCH_FAILED"
	ErrCodeListingFetchTimeout ErrorCode = "LISTING_FETCH_TIMEOUT"

	ErrCodeInternalConsistency ErrorCode = "INTERNAL_CONSISTENCY_FAULT"
	ErrCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeInternal                      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying error to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithCause attaches the originating error.
func (e *StandardError) WithCause(err error) *StandardError {
	e.cause = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
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
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewPlannerFailureError wraps a language model call or output parsing failure.
func NewPlannerFailureError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodePlannerFailure,
		Message:   "Failed to plan categories for the request",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewPlannerTimeoutError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodePlannerTimeout,
		Message:   "Language model did not answer in time",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

// NewCategoryNotMatchedError is recovered locally by the coordinator.
func NewCategoryNotMatchedError(categoryRaw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCategoryNotMatch,
		Message:   "No taxonomy entry matched the proposed category",
		Details:   fmt.Sprintf("category: %s", categoryRaw),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewListingFetchFailedError(categoryID string, err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeListingFetchFailed,
		Message:   "Failed to fetch listings for category",
		Retryable: true,
		Metadata:  map[string]interface{}{"categoryId": categoryID},
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewListingFetchTimeoutError(categoryID string, err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeListingFetchTimeout,
		Message:   "Listing search timed out",
		Retryable: true,
		Metadata:  map[string]interface{}{"categoryId": categoryID},
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

// NewInternalConsistencyError signals a programming fault. Never retried.
func NewInternalConsistencyError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeInternalConsistency,
		Message:   "Internal consistency fault while assembling carousels",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewElasticsearchConnectionFailedError creates a retryable search backend error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Message:   "Elasticsearch connection error",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewInternalError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a job failing with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePlannerFailure,
		ErrCodeListingFetchFailed,
		ErrCodeElasticsearchConnectionFailed:
		return 3

	case ErrCodePlannerTimeout,
		ErrCodeListingFetchTimeout:
		return 2

	default:
		return 0 // faults and invalid input: no retry
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

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HTTPStatus maps an error code to the status returned by the chat endpoint.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodePlannerFailure:
		return http.StatusBadGateway
	case ErrCodePlannerTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PLANNER"):
		return "AI"
	case strings.Contains(codeStr, "CATEGORY") || strings.Contains(codeStr, "ELASTICSEARCH"):
		return "TAXONOMY"
	case strings.HasPrefix(codeStr, "LISTING"):
		return "MARKETPLACE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
