package errors

import "fmt"

// Config creates a configuration error with attached suggestions.
func Config(code, message string) *NexusError {
	return AttachSuggestions(New(code, CategoryConfig, message))
}

// ConfigWrap wraps cause as a configuration error with attached suggestions.
func ConfigWrap(cause error, code, message string) *NexusError {
	return AttachSuggestions(Wrap(cause, code, CategoryConfig, message))
}

// Brain creates an error for a memory API response that could not be used.
func Brain(code, message string) *NexusError {
	return AttachSuggestions(New(code, CategoryBrain, message))
}

// BrainWrap wraps cause as a memory API error.
func BrainWrap(cause error, code, message string) *NexusError {
	return AttachSuggestions(Wrap(cause, code, CategoryBrain, message))
}

// NetworkWrap wraps a transport failure while talking to url.
func NetworkWrap(cause error, code, url string) *NexusError {
	return AttachSuggestions(Wrap(cause, code, CategoryNetwork, "memory API request failed")).
		WithContext("url", url)
}

// Optimization creates an optimization error.
func Optimization(code, message string) *NexusError {
	return AttachSuggestions(New(code, CategoryOptimization, message))
}

// Optimizationf creates an optimization error with a formatted message.
func Optimizationf(code, format string, args ...any) *NexusError {
	return Optimization(code, fmt.Sprintf(format, args...))
}

// JournalWrap wraps a database failure.
func JournalWrap(cause error, code, message string) *NexusError {
	return AttachSuggestions(Wrap(cause, code, CategoryJournal, message))
}

// Engine creates an orchestration error.
func Engine(code, message string) *NexusError {
	return AttachSuggestions(New(code, CategoryEngine, message))
}

// Internal wraps an unexpected failure.
func Internal(cause error, message string) *NexusError {
	return Wrap(cause, "INTERNAL", CategoryInternal, message)
}

// HTTPStatus classifies a non-2xx memory API status into an error.
// 5xx is retryable, everything else is a rejection.
func HTTPStatus(status int, method, endpoint, body string) *NexusError {
	code := ErrBrainRequestRejected
	if status >= 500 {
		code = ErrBrainServerError
	}
	e := Brain(code, fmt.Sprintf("%s %s returned %d", method, endpoint, status)).
		WithContext("status", fmt.Sprintf("%d", status))
	if body != "" {
		e.WithContext("body", body)
	}
	return e
}
