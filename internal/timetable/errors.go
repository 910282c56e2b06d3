package timetable

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures. None of them is fatal to the process.
type ErrorKind string

const (
	KindConflict           ErrorKind = "CONFLICT"
	KindNoContinuationSlot ErrorKind = "NO_CONTINUATION_SLOT"
	KindDuplicateLabel     ErrorKind = "DUPLICATE_LABEL"
	KindUnknownReference   ErrorKind = "UNKNOWN_REFERENCE"
	KindInfeasible         ErrorKind = "INFEASIBLE"
	KindInvalidPlacement   ErrorKind = "INVALID_PLACEMENT"
	KindCancelled          ErrorKind = "CANCELLED"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrConflict           = &Error{Kind: KindConflict}
	ErrNoContinuationSlot = &Error{Kind: KindNoContinuationSlot}
	ErrDuplicateLabel     = &Error{Kind: KindDuplicateLabel}
	ErrUnknownReference   = &Error{Kind: KindUnknownReference}
	ErrInfeasible         = &Error{Kind: KindInfeasible}
	ErrInvalidPlacement   = &Error{Kind: KindInvalidPlacement}
	ErrCancelled          = &Error{Kind: KindCancelled}
)

// Gap identifies the unit of demand the generator could not place.
type Gap struct {
	Section string `json:"section"`
	Subject string `json:"subject"`
	Kind    Kind   `json:"kind"`
	Reason  string `json:"reason"`
}

func (g Gap) describe() string {
	if g.Subject == "" {
		return fmt.Sprintf("cannot schedule section %s: %s", g.Section, g.Reason)
	}
	return fmt.Sprintf("cannot schedule %s for section %s: %s", g.Subject, g.Section, g.Reason)
}

// Error is the structured engine error. Only the fields relevant to Kind are set.
type Error struct {
	Kind      ErrorKind  `json:"kind"`
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
	Label     string     `json:"label,omitempty"`
	Reference string     `json:"reference,omitempty"`
	Gap       *Gap       `json:"gap,omitempty"`
	Partial   []Session  `json:"partial,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	return e.Message
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Unwrap exposes the context error behind a stopped search.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func conflictError(conflicts []Conflict) *Error {
	reasons := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		reasons = append(reasons, c.Message)
	}
	return &Error{
		Kind:      KindConflict,
		Message:   "placement conflicts: " + strings.Join(reasons, "; "),
		Conflicts: conflicts,
	}
}

func noContinuation(slot string) *Error {
	return &Error{
		Kind:    KindNoContinuationSlot,
		Message: fmt.Sprintf("practical cannot start at %q: it is the last time slot", slot),
		Label:   slot,
	}
}

func duplicateLabel(what, label string) *Error {
	return &Error{
		Kind:    KindDuplicateLabel,
		Message: fmt.Sprintf("%s %q already exists", what, label),
		Label:   label,
	}
}

func unknownReference(what, ref string) *Error {
	return &Error{
		Kind:      KindUnknownReference,
		Message:   fmt.Sprintf("%s %q does not exist", what, ref),
		Reference: ref,
	}
}

func invalidPlacement(message string) *Error {
	return &Error{Kind: KindInvalidPlacement, Message: message}
}

// stopped reports a search interrupted by its context. A deadline is an
// INFEASIBLE outcome, a cancellation is CANCELLED; both keep the progress made.
func stopped(cause error, gap *Gap, partial []Session) *Error {
	err := &Error{
		Kind:    KindInfeasible,
		Message: "no schedule found before the deadline",
		Gap:     gap,
		Partial: partial,
		cause:   cause,
	}
	if errors.Is(cause, context.Canceled) {
		err.Kind = KindCancelled
		err.Message = "generation cancelled"
	}
	if gap != nil {
		err.Message += ": " + gap.describe()
	}
	return err
}
