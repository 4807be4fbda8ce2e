// Package corerr defines the closed set of structured error conditions the
// engine surfaces, per the error-handling design: operators and subsystems
// wrap one of these sentinels with detail rather than inventing ad-hoc error
// strings, so callers can branch with errors.Is.
package corerr

import "errors"

var (
	// ErrOutOfMemory is returned when the buffer pool manager cannot obtain a
	// frame for a new or fetched page because every frame is pinned.
	ErrOutOfMemory = errors.New("buffer pool: out of memory, no frame available")

	// ErrPinViolation is returned when Delete is called on a pinned page, or
	// the replacer is asked to remove a frame that is not evictable. Unpin
	// of an already-unpinned page reports false instead.
	ErrPinViolation = errors.New("buffer pool: pin violation")

	// ErrInvalidPage is returned when Fetch cannot read a page in, or Flush
	// targets a page that is not resident. Delete of a non-resident page
	// succeeds.
	ErrInvalidPage = errors.New("buffer pool: invalid page")

	// ErrExecution covers write-write conflicts, primary-key collisions, and
	// failed in-progress acquisitions. Raising it taints the transaction.
	ErrExecution = errors.New("execution: conflict")

	// ErrTxnState is raised by Commit on a transaction that is not RUNNING,
	// and by Abort on one that is neither RUNNING nor TAINTED. It is fatal
	// to the caller's control flow.
	ErrTxnState = errors.New("transaction: invalid state transition")

	// ErrIntegrity indicates an index and its table heap disagree, a
	// condition that should never arise and is not locally recoverable.
	ErrIntegrity = errors.New("integrity violation")
)

// NotImplemented panics; a stubbed path being reached is a build defect, not
// a runtime condition a caller can recover from.
func NotImplemented(what string) {
	panic("not implemented: " + what)
}
