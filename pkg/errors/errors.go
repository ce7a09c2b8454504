package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents timeouts and connection failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStatus represents unexpected HTTP status codes
	ErrorTypeStatus ErrorType = "status"
	// ErrorTypeStorage represents table read/write errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents an error raised somewhere in the scrape/store pipeline
type PipelineError struct {
	Type    ErrorType
	Weight  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	scope := e.Weight
	if scope != "" {
		scope += "g"
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, scope, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, scope, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, weight, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Weight:  weight,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(weight, message string, err error) *PipelineError {
	return New(ErrorTypeNetwork, weight, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(weight, message string, err error) *PipelineError {
	return New(ErrorTypeParsing, weight, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(weight string, retryAfter string) *PipelineError {
	return New(ErrorTypeRateLimit, weight, "rate limited; retry after "+retryAfter, nil)
}

// NewStatus creates a new unexpected status error
func NewStatus(weight string, code int) *PipelineError {
	return New(ErrorTypeStatus, weight, fmt.Sprintf("unexpected status code: %d", code), nil)
}

// NewStorage creates a new storage error
func NewStorage(weight, message string, err error) *PipelineError {
	return New(ErrorTypeStorage, weight, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(weight, message string, err error) *PipelineError {
	return New(ErrorTypePublisher, weight, message, err)
}

// NewValidation creates a new validation error
func NewValidation(weight, message string) *PipelineError {
	return New(ErrorTypeValidation, weight, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first PipelineError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ""
}

// IsRetryable reports whether err's chain holds a retryable PipelineError.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return false
}
