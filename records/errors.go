package records

import (
	"errors"
	"fmt"

	"github.com/ruteri/record-store/interfaces"
)

var (
	// ErrNotFound is returned when an operation requires a record that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when creating a record that is already present.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidName is returned when a name cannot be turned into a storage key.
	ErrInvalidName = errors.New("invalid record name")

	// ErrInvalidMode is returned when an operation is not supported in the current storage mode.
	ErrInvalidMode = errors.New("operation not supported in storage mode")

	// ErrMismatch matches every *MismatchError.
	ErrMismatch = errors.New("backends mismatch")

	// ErrPartialFailure matches every *PartialFailureError.
	ErrPartialFailure = errors.New("partial failure across backends")
)

// MismatchKind tells what two backends disagreed on.
type MismatchKind int

const (
	// ExistenceMismatch: only one backend holds the key.
	ExistenceMismatch MismatchKind = iota
	// ContentMismatch: both backends hold the key with different bytes.
	ContentMismatch
	// ListingMismatch: the key is listed by only one backend.
	ListingMismatch
)

func (k MismatchKind) String() string {
	switch k {
	case ExistenceMismatch:
		return "existence"
	case ContentMismatch:
		return "content"
	case ListingMismatch:
		return "listing"
	default:
		return "unknown"
	}
}

// MismatchError reports that the local and remote backends were observed to
// disagree about a key. It is never repaired automatically.
type MismatchError struct {
	Key  interfaces.StorageKey
	Kind MismatchKind
	// Side names the backend holding the key for existence and listing
	// mismatches. It is empty for content mismatches.
	Side string
}

func (e *MismatchError) Error() string {
	switch e.Kind {
	case ContentMismatch:
		return fmt.Sprintf("%s: %s differs between local and remote copies", ErrMismatch, e.Key)
	case ListingMismatch:
		return fmt.Sprintf("%s: %s is only listed by the %s backend", ErrMismatch, e.Key, e.Side)
	default:
		return fmt.Sprintf("%s: %s only exists in the %s backend", ErrMismatch, e.Key, e.Side)
	}
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

// PartialFailureError reports that a dual-mode mutation completed on one
// backend and failed on the other, leaving them known to be inconsistent.
// The completed side is not rolled back.
type PartialFailureError struct {
	Op        string
	Key       interfaces.StorageKey
	Succeeded string // backend that applied the change
	Failed    string // backend that did not
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %s of %s succeeded on %s but failed on %s: %v",
		ErrPartialFailure, e.Op, e.Key, e.Succeeded, e.Failed, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// translate maps backend errors onto the records taxonomy. Anything else,
// including context cancellation, is wrapped unchanged.
func translate(err error, key interfaces.StorageKey, backend string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, interfaces.ErrRecordNotFound):
		return fmt.Errorf("%w: %s (%s)", ErrNotFound, key, backend)
	case errors.Is(err, interfaces.ErrRecordExists):
		return fmt.Errorf("%w: %s (%s)", ErrAlreadyExists, key, backend)
	default:
		return fmt.Errorf("%s backend: %w", backend, err)
	}
}
