package errors

import (
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Report sends an error to h. A nil handler drops the error.
// If err.Timestamp is zero, it is set to the current time.
func Report(h ErrorHandler, err *GrantError) {
	if err == nil || h == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	h.HandleError(err)
}

// ReportPanic sends a panic error to h.
func ReportPanic(h ErrorHandler, err *PanicError) {
	if err == nil || h == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	h.HandlePanic(err)
}

// Recover is a helper for deferred panic recovery.
// Usage: defer errors.Recover(sink, "handler.onGranted")
func Recover(h ErrorHandler, op string) {
	if r := recover(); r != nil {
		ReportPanic(h, &PanicError{
			Op:         op,
			Value:      r,
			StackTrace: CaptureStack(),
			Timestamp:  time.Now(),
		})
	}
}

// CaptureStack returns the current call stack as a string.
// It skips the first few frames to exclude the CaptureStack call itself.
func CaptureStack() string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		sb.WriteString(frame.Function)
		sb.WriteString("\n\t")
		sb.WriteString(frame.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(frame.Line))
		sb.WriteString("\n")
		if !more {
			break
		}
	}
	return sb.String()
}
