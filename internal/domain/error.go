package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid query execution context")

	// Reconciliation errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrUnknownPlan        = errors.New("unknown plan code")
	ErrLockNotAcquired    = errors.New("could not acquire key lock")
	ErrBadExternalRef     = errors.New("malformed external reference")
)
