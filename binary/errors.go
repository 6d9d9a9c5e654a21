// Package binary derives decoders and encoders from elaborated format
// terms. The two derivations are structural inverses: whenever a decode
// succeeds, re-encoding its value reproduces the consumed bytes, and vice
// versa for values that satisfy the format's constraints.
package binary

import (
	"errors"
	"fmt"
)

// Decode and encode failures wrap one of these sentinels.
var (
	ErrInsufficientBytes     = errors.New("insufficient bytes")
	ErrConstraintViolation   = errors.New("constraint violation")
	ErrNoMatchingChoice      = errors.New("no choice option matches")
	ErrNoMatchingSwitchArm   = errors.New("no switch arm matches")
	ErrUnexpectedEnd         = errors.New("bytes remain past the end marker")
	ErrEndNotReached         = errors.New("decode stopped before the end of input")
	ErrLinkResolution        = errors.New("link resolution failed")
	ErrAlwaysFails           = errors.New("error format never matches")
	ErrArityMismatch         = errors.New("element count does not match")
	ErrNoInverse             = errors.New("interpretation has no inverse")
	ErrValueShape            = errors.New("value does not fit the format")
	ErrStringWidth           = errors.New("string does not fit its declared width")
	ErrUnknownBase           = errors.New("unknown link base")
)

// InsufficientBytesError reports how many bytes the failing read needed
// against how many were left.
type InsufficientBytesError struct {
	Needed    int
	Available int
}

func (e *InsufficientBytesError) Error() string {
	return fmt.Sprintf("insufficient bytes: need %d, have %d", e.Needed, e.Available)
}

func (e *InsufficientBytesError) Unwrap() error { return ErrInsufficientBytes }

// LinkResolutionError reports the base and offset of a link whose target
// falls outside the input.
type LinkResolutionError struct {
	Base   string
	Offset int64
}

func (e *LinkResolutionError) Error() string {
	return fmt.Sprintf("link resolution failed: base %q offset %d", e.Base, e.Offset)
}

func (e *LinkResolutionError) Unwrap() error { return ErrLinkResolution }

func constraintErr(expr string) error {
	return fmt.Errorf("%w: %s", ErrConstraintViolation, expr)
}
