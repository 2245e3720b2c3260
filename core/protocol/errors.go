package protocol

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Kind identifies one of the error categories from spec.md §7. Every error
// this module returns during a run carries one of these kinds, recoverable
// with errors.As against the concrete *Error type.
type Kind int

const (
	// ConfigError indicates a malformed spec: a duplicate secret id across
	// owners, a missing secret, or a cyclic expression tree. Detected
	// pre-run.
	ConfigError Kind = iota

	// TransportError indicates the bulletin board was unreachable or a
	// message failed to deliver.
	TransportError

	// TimeoutError indicates a blocking fetch exceeded its deadline.
	TimeoutError

	// ProtocolError indicates unexpected message content or an arity
	// mismatch from a peer.
	ProtocolError

	// ArithmeticError indicates numeric overflow. The field arithmetic in
	// this module is modular and therefore total, so this kind is reserved
	// for callers that choose a bounded, non-modular representation.
	ArithmeticError

	// InternalError indicates a broken invariant, such as the TPG serving
	// inconsistent shares for the same op id.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case TransportError:
		return "TransportError"
	case TimeoutError:
		return "TimeoutError"
	case ProtocolError:
		return "ProtocolError"
	case ArithmeticError:
		return "ArithmeticError"
	case InternalError:
		return "InternalError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type returned across this module's protocol
// boundary. It wraps an underlying cause and is tagged with a Kind so
// callers can branch on the failure category per spec.md §7's policy table.
type Error struct {
	Kind  Kind
	cause error
	stack string
}

// newError builds an Error of the given kind wrapping cause. InternalError
// additionally captures a stack trace at the point of construction, since it
// signals a violated invariant rather than an ordinary expected failure —
// mirroring the teacher's task.NewError, which does the same for every
// error it wraps (core/task/message.go).
func newError(kind Kind, cause error) *Error {
	e := &Error{Kind: kind, cause: cause}
	if kind == InternalError {
		e.stack = string(debug.Stack())
	}
	return e
}

func (e *Error) Error() string {
	if e.stack != "" {
		return fmt.Sprintf("%s: %v\n%s", e.Kind, e.cause, e.stack)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewConfigError wraps cause as a ConfigError.
func NewConfigError(format string, args ...interface{}) *Error {
	return newError(ConfigError, fmt.Errorf(format, args...))
}

// NewTransportError wraps cause as a TransportError.
func NewTransportError(cause error) *Error {
	return newError(TransportError, cause)
}

// NewTimeoutError wraps cause as a TimeoutError.
func NewTimeoutError(cause error) *Error {
	return newError(TimeoutError, cause)
}

// NewProtocolError wraps cause as a ProtocolError.
func NewProtocolError(format string, args ...interface{}) *Error {
	return newError(ProtocolError, fmt.Errorf(format, args...))
}

// NewArithmeticError wraps cause as an ArithmeticError.
func NewArithmeticError(cause error) *Error {
	return newError(ArithmeticError, cause)
}

// NewInternalError wraps cause as an InternalError, capturing a stack trace.
func NewInternalError(format string, args ...interface{}) *Error {
	return newError(InternalError, fmt.Errorf(format, args...))
}

// AuthError is returned by the TPG when a client_id it does not recognize
// requests a triple. It is surfaced as a ConfigError: an unknown participant
// id is a malformed session, not a runtime transport failure.
func AuthError(participant string) *Error {
	return NewConfigError("unknown participant %q", participant)
}

// NotReadyError is returned by the TPG when a triple is requested before
// its participant quorum has been finalized. This is a ProtocolError: the
// caller violated the TPG's precondition, not an internal invariant.
func NotReadyError() *Error {
	return newError(ProtocolError, errors.New("trusted parameter generator not ready: participant quorum not finalized"))
}

// Is allows errors.Is(err, &protocol.Error{Kind: protocol.ConfigError})
// style matching against a Kind: any *Error target matches when its Kind
// equals e's, regardless of cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
