package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// Kind is a closed classification of resilience-layer errors. Errors are
// tagged with a Kind at the point they are produced and matched
// structurally; message text is never consulted for control decisions.
type Kind int

const (
	// KindUnknown is the default for errors produced outside this layer.
	KindUnknown Kind = iota
	// KindTransientNetwork covers connection reset/refused and
	// name-resolution failures.
	KindTransientNetwork
	// KindTimeout marks deadline expirations.
	KindTimeout
	// KindCircuitOpen marks calls short-circuited by an open breaker.
	KindCircuitOpen
	// KindCapacityExceeded marks admission-control rejections.
	KindCapacityExceeded
	// KindValidation marks caller mistakes that retrying cannot fix.
	KindValidation
	// KindInternal marks unexpected failures inside this layer.
	KindInternal
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient-network"
	case KindTimeout:
		return "timeout"
	case KindCircuitOpen:
		return "circuit-open"
	case KindCapacityExceeded:
		return "capacity-exceeded"
	case KindValidation:
		return "validation"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// retryableKinds is the retryable/non-retryable mapping, kept as data.
var retryableKinds = map[Kind]bool{
	KindTransientNetwork: true,
	KindTimeout:          true,
}

// UserMessage is localized, user-facing error text resolved from the
// message catalog. It decorates errors and is never consulted for
// control decisions.
type UserMessage struct {
	Title   string
	Message string
	Action  string
}

// Error is the error type produced by this layer. Dependency, Circuit and
// Localized are enrichment added as the error crosses outward through the
// service façade and the orchestrator.
type Error struct {
	Kind       Kind
	Dependency string
	Message    string
	Timeout    time.Duration // set for KindTimeout
	Circuit    *CircuitSnapshot
	Localized  *UserMessage
	Suppressed []error // fallback failures, diagnostic only
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("resilience: ")
	if e.Dependency != "" {
		b.WriteString(e.Dependency)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a tagged error with no underlying cause.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError tags an existing error with a kind. A nil err returns nil.
func WrapError(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewTimeoutError creates the error produced when a deadline expires.
func NewTimeoutError(timeout time.Duration) *Error {
	return &Error{
		Kind:    KindTimeout,
		Timeout: timeout,
		Message: fmt.Sprintf("operation timed out after %s", timeout),
	}
}

// NewCircuitOpenError creates the error returned for short-circuited calls.
func NewCircuitOpenError(dependency string) *Error {
	return &Error{
		Kind:       KindCircuitOpen,
		Dependency: dependency,
		Message:    "circuit breaker is open",
	}
}

// Classify derives the Kind of an arbitrary error. Tagged errors report
// their own kind; untagged errors are matched structurally against the
// known transient network and timeout shapes.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindTransientNetwork
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return KindTransientNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindUnknown
}

// Retryable reports whether an error is worth retrying.
func Retryable(err error) bool {
	return retryableKinds[Classify(err)]
}

// IsKind reports whether the error classifies as the given kind.
func IsKind(err error, kind Kind) bool {
	return Classify(err) == kind
}
