// Package errors defines the closed error taxonomy the analytics runtime
// raises internally. Every failure that crosses a component boundary is one
// of a fixed set of kinds; callers switch on Kind rather than sentinel
// values so that logging and propagation stay uniform across the graph,
// the stores, and the transport layer. Configuration errors are the only
// class that terminates the worker; everything else is logged and the
// offending element is dropped while processing continues.
package errors

import (
	"fmt"
	"time"
)

// Kind identifies which of the six error classes in the runtime's
// contract a given error belongs to.
type Kind string

const (
	// KindConfig covers missing required keys, wrong arity, and unparseable
	// values. Fatal at worker start.
	KindConfig Kind = "config"
	// KindSchema covers out-of-range indices, missing required fields, and
	// type mismatches raised while projecting a stream element.
	KindSchema Kind = "schema"
	// KindStore covers type mismatches on typed getters and reads against
	// state that hasn't been populated yet.
	KindStore Kind = "store"
	// KindDecode covers envelope bytes that fail to parse, or a decoded
	// stream name that disagrees with the envelope's source stream.
	KindDecode Kind = "decode"
	// KindEgress covers attempts to publish an INTERNAL/RAW_INPUT element
	// and publish failures against the output transport.
	KindEgress Kind = "egress"
	// KindTransport covers upstream read failures; these are surfaced to
	// the supervisor rather than swallowed by the graph.
	KindTransport Kind = "transport"
)

// Error is the concrete error type raised by every package in the runtime.
type Error struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s.%s]: %s: %v", e.Kind, e.Component, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s.%s]: %s", e.Kind, e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same Kind, enabling
// errors.Is(err, &errors.Error{Kind: errors.KindSchema}) style checks.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && e.Kind == other.Kind
}

func newErr(kind Kind, component, operation, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Component: component,
		Operation: operation,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func Config(component, operation, message string, cause error) *Error {
	return newErr(KindConfig, component, operation, message, cause)
}

func Schema(component, operation, message string, cause error) *Error {
	return newErr(KindSchema, component, operation, message, cause)
}

func Store(component, operation, message string, cause error) *Error {
	return newErr(KindStore, component, operation, message, cause)
}

func Decode(component, operation, message string, cause error) *Error {
	return newErr(KindDecode, component, operation, message, cause)
}

func Egress(component, operation, message string, cause error) *Error {
	return newErr(KindEgress, component, operation, message, cause)
}

func Transport(component, operation, message string, cause error) *Error {
	return newErr(KindTransport, component, operation, message, cause)
}

// KindOf extracts the Kind of err, walking Unwrap chains.
func KindOf(err error) (Kind, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if as, ok := err.(*Error); ok {
			return as.Kind, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

// Fatal reports whether err must terminate the worker. Only configuration
// errors are fatal; every other kind is logged and dropped.
func Fatal(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindConfig
}
