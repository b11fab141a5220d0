// Package clientErrors defines the failure kinds surfaced by the client:
// validation, transport, signing and compile errors. Every error returned by
// the orchestrator or the query dispatcher carries exactly one kind, no
// matter how many times it has been wrapped on the way up.
package clientErrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindSigning    Kind = "signing"
	KindCompile    Kind = "compile"
)

func (k Kind) String() string {
	return string(k)
}

// Error is a classified failure. Op names the operation that failed, e.g.
// "sendRawTransaction" or "getBlockByNumber".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NewValidationError(op string, format string, args ...interface{}) *Error {
	return newError(KindValidation, op, fmt.Errorf(format, args...))
}

func NewTransportError(op string, err error) *Error {
	return newError(KindTransport, op, err)
}

func NewSigningError(op string, err error) *Error {
	return newError(KindSigning, op, err)
}

func NewCompileError(op string, err error) *Error {
	return newError(KindCompile, op, err)
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsValidation(err error) bool { return IsKind(err, KindValidation) }
func IsTransport(err error) bool  { return IsKind(err, KindTransport) }
func IsSigning(err error) bool    { return IsKind(err, KindSigning) }
func IsCompile(err error) bool    { return IsKind(err, KindCompile) }
