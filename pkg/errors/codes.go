package errors

// -----------------------------------------------------------------------------
// Configuration Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrConfigReadFailed indicates the config file could not be read.
	ErrConfigReadFailed = "CONFIG_READ_FAILED"

	// ErrConfigParseFailed indicates the configuration file could not be parsed.
	ErrConfigParseFailed = "CONFIG_PARSE_FAILED"

	// ErrConfigInvalid indicates configuration values are invalid.
	ErrConfigInvalid = "CONFIG_INVALID"

	// ErrConfigWriteFailed indicates the config file could not be written.
	ErrConfigWriteFailed = "CONFIG_WRITE_FAILED"

	// ErrConfigWatchFailed indicates the config file could not be watched.
	ErrConfigWatchFailed = "CONFIG_WATCH_FAILED"
)

// -----------------------------------------------------------------------------
// Memory API Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrNetworkUnreachable indicates the memory API could not be reached.
	ErrNetworkUnreachable = "NETWORK_UNREACHABLE"

	// ErrNetworkTimeout indicates a request to the memory API timed out.
	ErrNetworkTimeout = "NETWORK_TIMEOUT"

	// ErrBrainUnhealthy indicates /health answered with a non-200 status.
	ErrBrainUnhealthy = "BRAIN_UNHEALTHY"

	// ErrBrainServerError indicates the memory API answered 5xx.
	ErrBrainServerError = "BRAIN_SERVER_ERROR"

	// ErrBrainRequestRejected indicates the memory API answered 4xx.
	ErrBrainRequestRejected = "BRAIN_REQUEST_REJECTED"

	// ErrBrainDecodeFailed indicates a response body was not the expected JSON.
	ErrBrainDecodeFailed = "BRAIN_DECODE_FAILED"

	// ErrBrainEncodeFailed indicates a request body could not be encoded.
	ErrBrainEncodeFailed = "BRAIN_ENCODE_FAILED"
)

// -----------------------------------------------------------------------------
// Optimization Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrUnknownOptimization indicates no plan exists for the requested type.
	ErrUnknownOptimization = "OPTIMIZATION_UNKNOWN"

	// ErrOptimizationBusy indicates the concurrency limit is reached.
	ErrOptimizationBusy = "OPTIMIZATION_BUSY"

	// ErrOptimizationCooldown indicates the same optimization ran recently.
	ErrOptimizationCooldown = "OPTIMIZATION_COOLDOWN"

	// ErrStepFailed indicates a plan step reported failure.
	ErrStepFailed = "OPTIMIZATION_STEP_FAILED"

	// ErrStepAlreadyRegistered indicates a duplicate step registration.
	ErrStepAlreadyRegistered = "OPTIMIZATION_STEP_EXISTS"
)

// -----------------------------------------------------------------------------
// Engine / Journal / Awareness Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrEmergencyShutdown indicates the autonomous action limit tripped.
	ErrEmergencyShutdown = "ENGINE_EMERGENCY_SHUTDOWN"

	// ErrActionBudgetExhausted indicates the hourly action budget is used up.
	ErrActionBudgetExhausted = "ENGINE_ACTION_BUDGET_EXHAUSTED"

	// ErrEngineRunning indicates Run was called on an engine that is already running.
	ErrEngineRunning = "ENGINE_ALREADY_RUNNING"

	// ErrBrainConnection indicates the engine could not verify the memory API at awakening.
	ErrBrainConnection = "ENGINE_BRAIN_CONNECTION"

	// ErrNotAwake indicates an operation needs a completed awakening.
	ErrNotAwake = "AWARENESS_NOT_AWAKE"

	// ErrJournalOpenFailed indicates the journal database could not be opened.
	ErrJournalOpenFailed = "JOURNAL_OPEN_FAILED"

	// ErrJournalWriteFailed indicates a journal insert failed.
	ErrJournalWriteFailed = "JOURNAL_WRITE_FAILED"

	// ErrJournalReadFailed indicates a journal query failed.
	ErrJournalReadFailed = "JOURNAL_READ_FAILED"
)

// retryableCodes lists the codes a polling loop should back off and retry on.
var retryableCodes = map[string]bool{
	ErrNetworkUnreachable:   true,
	ErrNetworkTimeout:       true,
	ErrBrainUnhealthy:       true,
	ErrBrainServerError:     true,
	ErrOptimizationBusy:     true,
	ErrOptimizationCooldown: true,
	ErrJournalWriteFailed:   true,
}
