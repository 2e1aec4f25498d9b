package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Branch errors
	ErrBranchNotFound = errors.New("branch not found")
	ErrInvalidState   = errors.New("operation not allowed in current branch state")
	ErrTrunkNotFound  = errors.New("trunk branch not found")

	// Content / version errors
	ErrContentNotFound  = errors.New("content not found")
	ErrVersionNotFound  = errors.New("version not found")
	ErrVersionConflict  = errors.New("version conflict: content was modified since last read")
	ErrVersionCollision = errors.New("version timestamp collision retries exhausted")

	// Merge / rebase errors
	ErrMergeConflict       = errors.New("merge blocked by unresolved conflicts")
	ErrNoConflict          = errors.New("no conflict recorded for content")
	ErrRebaseInProgress    = errors.New("a rebase is already in progress for this branch")
	ErrNoRebaseSession     = errors.New("no rebase in progress for this branch")
	ErrUnresolvedConflicts = errors.New("rebase has unresolved conflicts")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)
