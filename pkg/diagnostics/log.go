package diagnostics

import (
	"io"
	"log/slog"

	"github.com/go-drift/grant/pkg/errors"
)

// LogSink is a Sink that writes to a slog.Logger.
// Transitions and delegate calls are logged at debug level, errors at warn and
// panics at error.
type LogSink struct {
	logger *slog.Logger
	// Verbose enables stack traces on errors and panics.
	Verbose bool
}

// NewLogSink creates a LogSink. A nil logger discards output.
func NewLogSink(logger *slog.Logger, verbose bool) *LogSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSink{logger: logger.With("component", "grant"), Verbose: verbose}
}

// HandleError logs a GrantError.
func (s *LogSink) HandleError(err *errors.GrantError) {
	if err == nil {
		return
	}
	attrs := []any{
		"op", err.Op,
		"kind", err.Kind.String(),
		"error", err.Err,
	}
	if err.Permission != "" {
		attrs = append(attrs, "permission", err.Permission)
	}
	if err.Channel != "" {
		attrs = append(attrs, "channel", err.Channel)
	}
	if s.Verbose && err.StackTrace != "" {
		attrs = append(attrs, "stack", err.StackTrace)
	}
	s.logger.Warn("grant error", attrs...)
}

// HandlePanic logs a PanicError.
func (s *LogSink) HandlePanic(err *errors.PanicError) {
	if err == nil {
		return
	}
	attrs := []any{"op", err.Op, "value", err.Value}
	if s.Verbose && err.StackTrace != "" {
		attrs = append(attrs, "stack", err.StackTrace)
	}
	s.logger.Error("grant panic", attrs...)
}

func (s *LogSink) Transition(t Transition) {
	s.logger.Debug("dialog transition",
		"handler", t.HandlerID,
		"op", t.Op,
		"permission", t.Permission,
		"status", t.Status.String(),
		"from", t.From,
		"to", t.To,
	)
}

func (s *LogSink) DelegateCall(c DelegateCall) {
	s.logger.Debug("delegate call",
		"op", c.Op,
		"permission", c.Permission,
		"result", c.Result.String(),
		"duration", c.Duration,
	)
}
