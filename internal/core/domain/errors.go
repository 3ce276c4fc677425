package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors. Expected branches
// (duplicate insert, too-large file) are Outcome variants, not errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyQuery indicates a blank or whitespace-only search query.
	// Callers must reject these before the store is consulted.
	ErrEmptyQuery = errors.New("empty search query")

	// ErrCatalogLocked indicates the catalog is locked and the caller
	// is not the owner.
	ErrCatalogLocked = errors.New("catalog locked")

	// ErrUserBanned indicates the user has been banned from the catalog.
	ErrUserBanned = errors.New("user banned")

	// ErrNoPendingReset indicates a reset confirmation arrived without
	// a prior reset request, or after the request expired.
	ErrNoPendingReset = errors.New("no pending reset request")

	// ErrResetTokenMismatch indicates a reset confirmation carried the
	// wrong token.
	ErrResetTokenMismatch = errors.New("reset token mismatch")

	// ErrConsumerConflict indicates the upstream rejected this process
	// because another consumer is draining the same update stream.
	ErrConsumerConflict = errors.New("conflicting consumer")

	// ErrLockHeld indicates the process lock is held by a live process.
	ErrLockHeld = errors.New("process lock held")
)
