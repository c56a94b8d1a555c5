package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean exit
	ExitUserError     = 2 // Invalid arguments, answers or configuration
	ExitStorageError  = 3 // Progress or history directory unusable
	ExitRenderError   = 4 // Report could not be produced
	ExitInternalError = 5 // Unexpected internal error
	ExitInterrupted   = 130
)
