package auction

import (
	"fmt"
	"strings"
)

// Kind classifies why a run was refused.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindConsistency Kind = "consistency"
	KindIdempotency Kind = "idempotency"
	KindPrice       Kind = "price"
)

// Error is returned by every check in this package. Collaborator failures
// (RPC, HTTP, decoding) are never converted into an Error.
type Error struct {
	Kind       Kind
	Msg        string
	Violations []string
}

var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrConsistency = &Error{Kind: KindConsistency}
	ErrIdempotency = &Error{Kind: KindIdempotency}
	ErrPrice       = &Error{Kind: KindPrice}
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v)
	}
	return b.String()
}

// Is matches on Kind so callers can use errors.Is(err, ErrPrice).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func validationError(violations []string, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...), Violations: violations}
}

func consistencyError(format string, args ...any) *Error {
	return &Error{Kind: KindConsistency, Msg: fmt.Sprintf(format, args...)}
}

func idempotencyError(format string, args ...any) *Error {
	return &Error{Kind: KindIdempotency, Msg: fmt.Sprintf(format, args...)}
}

func priceError(format string, args ...any) *Error {
	return &Error{Kind: KindPrice, Msg: fmt.Sprintf(format, args...)}
}
