package mal

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindParse
	KindUnexpectedToken
	KindSymbolNotFound
	KindArityOrType
	KindNotCallable
	KindDivisionByZero
	KindDepthExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindUnexpectedToken:
		return "UnexpectedToken"
	case KindSymbolNotFound:
		return "SymbolNotFound"
	case KindArityOrType:
		return "ArityOrTypeError"
	case KindNotCallable:
		return "NotCallable"
	case KindDivisionByZero:
		return "DivisionByZero"
	case KindDepthExceeded:
		return "DepthExceeded"
	default:
		return "None"
	}
}

// Error is a language-level failure. It aborts the current top-level input
// only.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Is matches any *Error of the same kind, so the Err* values below work as
// sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrParse           = &Error{Kind: KindParse, Msg: "parse error"}
	ErrUnexpectedToken = &Error{Kind: KindUnexpectedToken, Msg: "unexpected token"}
	ErrSymbolNotFound  = &Error{Kind: KindSymbolNotFound, Msg: "symbol not found"}
	ErrArityOrType     = &Error{Kind: KindArityOrType, Msg: "wrong number or type of arguments"}
	ErrNotCallable     = &Error{Kind: KindNotCallable, Msg: "not callable"}
	ErrDivisionByZero  = &Error{Kind: KindDivisionByZero, Msg: "division by zero"}
	ErrDepthExceeded   = &Error{Kind: KindDepthExceeded, Msg: "maximum evaluation depth exceeded"}
)

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a language error, or KindNone for nil and for
// errors that did not come from the reader or evaluator.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}
