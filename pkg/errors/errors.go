// Package errors provides structured error reporting for the grant runtime.
//
// Handlers never surface these errors through their public API; delegate and
// store faults are mapped to a permission status and reported to an injected
// ErrorHandler instead.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPlatform indicates a platform channel or native bridge error.
	KindPlatform
	// KindParsing indicates a malformed payload from the native side.
	KindParsing
	// KindStore indicates a state store read or write failure.
	KindStore
	// KindTimeout indicates a delegate call that exceeded its deadline.
	KindTimeout
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindStore:
		return "store"
	case KindTimeout:
		return "timeout"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// GrantError represents a structured error in the grant runtime.
type GrantError struct {
	// Op is the operation that failed (e.g., "platform.request").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Permission is the permission identifier involved, if any.
	Permission string
	// Channel is the platform channel name, if applicable.
	Channel string
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *GrantError) Error() string {
	msg := e.Op + " [" + e.Kind.String() + "]"
	if e.Permission != "" {
		msg += " permission=" + e.Permission
	}
	if e.Channel != "" {
		msg += " channel=" + e.Channel
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *GrantError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "handler.onGranted").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to parse data received from the platform.
type ParseError struct {
	// Channel is the platform channel that delivered the data.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// ErrorHandler receives errors reported by the grant runtime.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *GrantError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
