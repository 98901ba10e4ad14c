// Package errors provides structured error types for the nexus daemon.
// Errors carry a code, a category, key/value context, an optional cause and
// remediation suggestions, and they know whether a retry can help.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Category classifies errors for consistent handling and display.
type Category string

const (
	CategoryConfig       Category = "config"       // Configuration loading/parsing errors
	CategoryBrain        Category = "brain"        // Memory API answered, but not usefully
	CategoryNetwork      Category = "network"      // Memory API unreachable or slow
	CategoryOptimization Category = "optimization" // Reflex plan execution errors
	CategoryAwareness    Category = "awareness"    // Introspection errors
	CategoryJournal      Category = "journal"      // Local persistence errors
	CategoryEngine       Category = "engine"       // Orchestration errors
	CategoryInternal     Category = "internal"     // Internal/unexpected errors
)

// NexusError is a structured error with context and suggestions.
type NexusError struct {
	// Code is a unique identifier for this error type (e.g., "BRAIN_UNHEALTHY")
	Code string

	// Category classifies this error for consistent handling
	Category Category

	// Message is the primary error message describing what went wrong
	Message string

	// Context provides additional key-value details about the error
	Context map[string]string

	// Cause is the underlying error that triggered this error
	Cause error

	// Suggestions are actionable remediation steps for the operator
	Suggestions []string
}

// Error implements the error interface.
func (e *NexusError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *NexusError) Unwrap() error {
	return e.Cause
}

// Is reports whether e matches target for errors.Is() checks.
// Two NexusErrors match if they have the same Code.
func (e *NexusError) Is(target error) bool {
	if t, ok := target.(*NexusError); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new NexusError with the given code, category, and message.
func New(code string, category Category, message string) *NexusError {
	return &NexusError{
		Code:     code,
		Category: category,
		Message:  message,
		Context:  make(map[string]string),
	}
}

// Newf is New with a formatted message.
func Newf(code string, category Category, format string, args ...any) *NexusError {
	return New(code, category, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a NexusError.
func Wrap(err error, code string, category Category, message string) *NexusError {
	return New(code, category, message).WithCause(err)
}

// WithContext adds a context key-value pair and returns the error for chaining.
func (e *NexusError) WithContext(key, value string) *NexusError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithCause wraps an underlying error and returns the error for chaining.
func (e *NexusError) WithCause(cause error) *NexusError {
	e.Cause = cause
	return e
}

// WithSuggestions adds remediation suggestions.
func (e *NexusError) WithSuggestions(suggestions ...string) *NexusError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// HasContext returns true if the error has context information.
func (e *NexusError) HasContext() bool {
	return len(e.Context) > 0
}

// HasSuggestions returns true if the error has suggestions.
func (e *NexusError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// ContextString returns the context entries as sorted key="value" pairs.
func (e *NexusError) ContextString() string {
	if len(e.Context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, e.Context[k]))
	}
	return strings.Join(parts, ", ")
}

// Retryable reports whether retrying the failed operation may succeed.
func (e *NexusError) Retryable() bool {
	return retryableCodes[e.Code]
}

// As finds the first NexusError in err's chain.
func As(err error) (*NexusError, bool) {
	var ne *NexusError
	if stderrors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// IsCategory checks if an error chain holds a NexusError with the given category.
func IsCategory(err error, category Category) bool {
	if ne, ok := As(err); ok {
		return ne.Category == category
	}
	return false
}

// IsCode checks if an error chain holds a NexusError with the given code.
func IsCode(err error, code string) bool {
	if ne, ok := As(err); ok {
		return ne.Code == code
	}
	return false
}

// IsRetryable reports whether err is worth retrying. Plain errors are not.
func IsRetryable(err error) bool {
	if ne, ok := As(err); ok {
		return ne.Retryable()
	}
	return false
}
