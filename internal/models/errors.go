package models

import (
	"fmt"
	"time"
)

// ProviderError is returned when an upstream data provider fails after
// retries are exhausted, or when it returns data that fails validation.
type ProviderError struct {
	Provider string
	Symbol   string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Symbol, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a ProviderError for a symbol
func NewProviderError(provider, symbol, message string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Symbol: symbol, Message: message, Cause: cause}
}

// RateLimitError is returned when a caller exceeds the request budget
// for the sliding window.
type RateLimitError struct {
	Identifier string
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.Limit, e.Window)
}

// ValidationError is returned for malformed or unsupported request input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
