// Package elab turns raw terms into elaborated core terms and validates the
// static invariants that make the derived decoders and encoders total:
// field scoping, guarded recursion, size placement, choice
// distinguishability, and end exclusivity.
package elab

import (
	"errors"
	"fmt"

	"github.com/partite-ai/binform/ast"
)

// Elaboration failures wrap one of these sentinels so callers can test the
// failure class with errors.Is while still seeing the full diagnostic text.
var (
	ErrUnboundVariable             = errors.New("unbound variable")
	ErrTypeMismatch                = errors.New("type mismatch")
	ErrUniverseMismatch            = errors.New("universe mismatch")
	ErrCannotInfer                 = errors.New("cannot infer type")
	ErrArityMismatch               = errors.New("wrong number of arguments")
	ErrNonDistinguishableChoice    = errors.New("choice branches are not distinguishable")
	ErrUnguardedRecursion          = errors.New("unguarded recursion")
	ErrUnknownSizeNotLast          = errors.New("unknown-size component is not last")
	ErrUnresolvedExistentialLength = errors.New("existential array length cannot be resolved")
	ErrPointeeUnknownSize          = errors.New("pointer target has unknown size")
	ErrZeroWidthRepeat             = errors.New("repeat element can match zero bytes")
	ErrIntersectSizeMismatch       = errors.New("intersection operands disagree on size")
	ErrMisplacedEnd                = errors.New("end is followed by further components")
	ErrMissingOtherwise            = errors.New("switch has no otherwise arm")
)

// Error carries the source location of the raw term whose elaboration
// failed. Locations come from the external parser and are passed through
// unchanged.
type Error struct {
	Span ast.Span
	Err  error
}

func (e *Error) Error() string {
	if e.Span == (ast.Span{}) {
		return e.Err.Error()
	}
	return fmt.Sprintf("%d-%d: %v", e.Span.Start, e.Span.End, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errAt(span ast.Span, sentinel error, format string, args ...any) error {
	if format == "" {
		return &Error{Span: span, Err: sentinel}
	}
	return &Error{Span: span, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}
