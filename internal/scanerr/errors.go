// Package scanerr defines the error taxonomy shared across the scanning
// engine: sentinel errors for conditions callers branch on, and structured
// error types for conditions that carry extra context. Per-file failures are
// always wrapped and returned through a channel or stats sample; they never
// panic and never abort a scan in progress.
package scanerr

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when the scan root does not exist or is not a
// directory. The caller must reject this before walking begins.
var ErrInvalidInput = errors.New("scanerr: invalid input")

// ErrCancelled names the cancellation condition of the taxonomy. It is not
// fatal (IsFatal reports false for it). scanner.Run does not return it: a
// cancelled scan returns its partial Tree with a nil error and
// Stats.Cancelled set to true.
var ErrCancelled = errors.New("scanerr: cancelled")

// PermissionDeniedError wraps a permission failure encountered while
// listing a directory entry or opening a file mid-scan. These are
// recorded and skipped, never fatal.
type PermissionDeniedError struct {
	Path string
	Err  error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("scanerr: permission denied: %s: %v", e.Path, e.Err)
}

func (e *PermissionDeniedError) Unwrap() error { return e.Err }

// NewPermissionDenied wraps err as a PermissionDeniedError for path.
func NewPermissionDenied(path string, err error) error {
	return &PermissionDeniedError{Path: path, Err: err}
}

// TransientIOError wraps a read or stat failure mid-scan that is not a
// permission problem (disk error, file vanished between listing and open,
// and so on). Recorded and skipped, never fatal.
type TransientIOError struct {
	Path string
	Err  error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("scanerr: transient I/O error: %s: %v", e.Path, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// NewTransientIO wraps err as a TransientIOError for path.
func NewTransientIO(path string, err error) error {
	return &TransientIOError{Path: path, Err: err}
}

// DecodeFailureError wraps a perceptual-hash decode failure (a file in the
// image extension set that isn't actually a decodable image, a truncated
// file, and so on). The hasher reports a null hash and continues; this
// error exists only so the failure is visible in stats samples.
type DecodeFailureError struct {
	Path string
	Err  error
}

func (e *DecodeFailureError) Error() string {
	return fmt.Sprintf("scanerr: perceptual decode failed: %s: %v", e.Path, e.Err)
}

func (e *DecodeFailureError) Unwrap() error { return e.Err }

// NewDecodeFailure wraps err as a DecodeFailureError for path.
func NewDecodeFailure(path string, err error) error {
	return &DecodeFailureError{Path: path, Err: err}
}

// MergeError reports that two Trees being merged have different roots, or
// otherwise violate the merge precondition. Fatal: propagated to the
// caller, never swallowed.
type MergeError struct {
	WantRoot string
	GotRoot  string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("scanerr: merge error: root %q does not match %q", e.GotRoot, e.WantRoot)
}

// NewMergeError builds a MergeError for two mismatched tree roots.
func NewMergeError(wantRoot, gotRoot string) error {
	return &MergeError{WantRoot: wantRoot, GotRoot: gotRoot}
}

// InternalInvariantError reports that an internal tree or merge invariant
// was violated (a condition the engine guarantees can't happen in correct
// operation). Fatal: propagated, never swallowed, never recovered from.
type InternalInvariantError struct {
	Invariant string
	Detail    string
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("scanerr: internal invariant violated (%s): %s", e.Invariant, e.Detail)
}

// NewInternalInvariant builds an InternalInvariantError naming the violated
// invariant and a detail string.
func NewInternalInvariant(invariant, detail string) error {
	return &InternalInvariantError{Invariant: invariant, Detail: detail}
}

// IsFatal reports whether err represents one of the structural, fatal
// error kinds (InvalidInput, MergeError, InternalInvariant) rather than a
// per-file condition that a scan should simply record and continue past.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidInput) {
		return true
	}
	var mergeErr *MergeError
	var invariantErr *InternalInvariantError
	return errors.As(err, &mergeErr) || errors.As(err, &invariantErr)
}
