package main

import "github.com/peerflow/peerflow/internal/fault"

// Exit codes. Automation matches on these; keep them stable.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, invalid paths)
	ExitDataError   = 3 // Validation failure on caller input
	ExitAuthError   = 4 // Caller lacks ownership or role
	ExitStateError  = 5 // Operation illegal in the entity's current state
	ExitConflict    = 6 // Lost race: duplicate assignment, stale version, duplicate citation
	ExitNotFound    = 7 // Referenced entity does not exist
)

// exitCodeFor maps a fault classification to an exit code.
func exitCodeFor(err error) int {
	switch {
	case fault.Is(err, fault.KindValidation):
		return ExitDataError
	case fault.Is(err, fault.KindAuthorization):
		return ExitAuthError
	case fault.Is(err, fault.KindNotFound):
		return ExitNotFound
	case fault.IsConflict(err):
		return ExitConflict
	case fault.IsInvalidState(err):
		return ExitStateError
	default:
		return ExitError
	}
}
