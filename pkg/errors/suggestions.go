package errors

// suggestionsByCode maps error codes to operator remediation steps.
var suggestionsByCode = map[string][]string{
	ErrConfigReadFailed: {
		"Check that the config file exists and is readable",
		"Run 'nexus init' to write a default configuration",
	},
	ErrConfigParseFailed: {
		"Check the YAML syntax (indentation, colons, quoting)",
		"Compare with the output of 'nexus init --force' in a scratch directory",
	},
	ErrConfigInvalid: {
		"Intervals and limits must be positive",
		"brain.url must be an absolute http(s) URL",
	},
	ErrNetworkUnreachable: {
		"Check that the memory API is running (default http://localhost:8001)",
		"Override the address with NEXUS_BRAIN_URL or brain.url",
	},
	ErrNetworkTimeout: {
		"The memory API is slow to answer; raise brain.timeout if this persists",
	},
	ErrBrainUnhealthy: {
		"Inspect the memory API logs; /health did not answer 200",
	},
	ErrBrainServerError: {
		"The memory API failed internally; the request will be retried",
	},
	ErrBrainRequestRejected: {
		"The memory API rejected the request; check that its version matches the endpoints used here",
	},
	ErrUnknownOptimization: {
		"Run 'nexus optimize --list' to see the available optimizations",
	},
	ErrOptimizationBusy: {
		"Wait for running optimizations to finish or raise optimizer.max_concurrent",
	},
	ErrEmergencyShutdown: {
		"Review recent changes with 'nexus history' before restarting",
		"Raise engine.emergency_shutdown_threshold only if the activity is expected",
	},
	ErrBrainConnection: {
		"Start the memory API before awakening the nervous system",
		"Run 'nexus status' to see which endpoints answer",
	},
	ErrJournalOpenFailed: {
		"Check that the journal directory exists and is writable",
		"Set journal.enabled to false to run without persistence",
	},
}

// SuggestionsFor returns the registered suggestions for a code, or nil.
func SuggestionsFor(code string) []string {
	s := suggestionsByCode[code]
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// AttachSuggestions appends the registered suggestions for e.Code.
func AttachSuggestions(e *NexusError) *NexusError {
	if e == nil {
		return nil
	}
	return e.WithSuggestions(SuggestionsFor(e.Code)...)
}
