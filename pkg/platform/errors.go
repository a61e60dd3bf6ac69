package platform

import "errors"

// Sentinel errors for platform operations.
var (
	// ErrClosed is returned when operating on a closed channel or stream.
	ErrClosed = errors.New("platform: channel closed")

	// ErrChannelNotFound indicates the requested platform channel does not exist.
	ErrChannelNotFound = errors.New("platform: channel not found")

	// ErrMethodNotFound indicates the method is not implemented on the other side.
	ErrMethodNotFound = errors.New("platform: method not implemented")

	// ErrPlatformUnavailable indicates no native bridge is attached.
	ErrPlatformUnavailable = errors.New("platform: native bridge unavailable")

	// ErrTimeout indicates the user did not answer the permission dialog
	// before the request deadline.
	ErrTimeout = errors.New("platform: operation timed out")

	// ErrCanceled indicates the operation was canceled via context cancellation.
	ErrCanceled = errors.New("platform: operation canceled")
)
