// Package elefanterrors defines the error-kind taxonomy shared by every
// component of elefant (see spec.md §7). Every error that crosses a
// component boundary is constructed through New and can be recovered with
// errors.As against *Error.
package elefanterrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and reporting purposes.
type Kind string

const (
	Network             Kind = "network"
	Tls                 Kind = "tls"
	AuthFailed          Kind = "auth_failed"
	ProtocolViolation   Kind = "protocol_violation"
	ServerError         Kind = "server_error"
	Encoding            Kind = "encoding"
	PrecisionOverflow   Kind = "precision_overflow"
	UnsupportedFeature  Kind = "unsupported_feature"
	IntrospectionMissing Kind = "introspection_missing"
	PlanError           Kind = "plan_error"
	Transient           Kind = "transient"
	Cancelled           Kind = "cancelled"
)

// Error is the concrete error type returned across component boundaries.
// Object names the offending object's qualified identifier when known;
// Phase names the orchestrator phase (or wire-layer operation) during
// which the error occurred.
type Error struct {
	Kind   Kind
	Object string
	Phase  string
	Err    error
}

// New constructs an *Error. cause may be nil.
func New(kind Kind, object, phase string, cause error) *Error {
	return &Error{Kind: kind, Object: object, Phase: phase, Err: cause}
}

func (e *Error) Error() string {
	switch {
	case e.Object != "" && e.Phase != "":
		if e.Err != nil {
			return fmt.Sprintf("%s: %s (phase=%s object=%s): %s", e.Kind, e.Kind.description(), e.Phase, e.Object, e.Err)
		}
		return fmt.Sprintf("%s: %s (phase=%s object=%s)", e.Kind, e.Kind.description(), e.Phase, e.Object)
	case e.Object != "":
		if e.Err != nil {
			return fmt.Sprintf("%s: %s (object=%s): %s", e.Kind, e.Kind.description(), e.Object, e.Err)
		}
		return fmt.Sprintf("%s: %s (object=%s)", e.Kind, e.Kind.description(), e.Object)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %s", e.Kind, e.Kind.description(), e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Kind.description())
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, elefanterrors.New(elefanterrors.Transient, "", "", nil)).
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return e.Kind == o.Kind
	}
	return false
}

func (k Kind) description() string {
	switch k {
	case Network:
		return "network failure"
	case Tls:
		return "TLS handshake failure"
	case AuthFailed:
		return "authentication failed"
	case ProtocolViolation:
		return "malformed or unexpected protocol frame"
	case ServerError:
		return "server reported an error"
	case Encoding:
		return "value codec failure"
	case PrecisionOverflow:
		return "numeric value exceeds supported precision"
	case UnsupportedFeature:
		return "object kind or feature not supported"
	case IntrospectionMissing:
		return "expected catalog column or table absent"
	case PlanError:
		return "dependency graph cannot be ordered"
	case Transient:
		return "transient failure, safe to retry"
	case Cancelled:
		return "operation cancelled"
	default:
		return "unknown error"
	}
}

// IsTransient reports whether err (or any error it wraps) is classified as
// retryable by the orchestrator's retry policy (spec.md §4.5). A
// ServerError counts only when its PgError passes IsRetryableServerError.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == ServerError {
			var pe *PgError
			return errors.As(e.Err, &pe) && IsRetryableServerError(pe)
		}
		return e.Kind == Transient || e.Kind == Network
	}
	return false
}

// IsCancelled reports whether err originated from a cancellation.
func IsCancelled(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == Cancelled
	}
	return false
}
