package coordinator

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the coordinator-level taxonomy. Callers should
// use errors.Is against these, never string comparison.
var (
	// ErrNoSpace: the global bitmap is full, or every worker has zero free
	// blocks. Recoverable by the caller.
	ErrNoSpace = errors.New("coordinator: no space")

	// ErrInvalidBlock: a file-relative index is outside [0, L), or a block
	// ID is unknown to a worker.
	ErrInvalidBlock = errors.New("coordinator: invalid block")

	// ErrFileNotFound: lookup by name found no match.
	ErrFileNotFound = errors.New("coordinator: file does not exist")

	// ErrFail: catch-all for I/O errors, framing errors, worker FAIL
	// responses, and policy internal errors.
	ErrFail = errors.New("coordinator: operation failed")
)

// wrapFail logs and wraps an underlying cause as ErrFail, annotated with
// the operation and any extra context the caller supplies.
func (c *Coordinator) wrapFail(op string, cause error, args ...any) error {
	logArgs := append([]any{"operation", op, "cause", cause}, args...)
	c.log.Error("operation failed", logArgs...)
	return fmt.Errorf("%s: %w: %w", op, ErrFail, cause)
}
