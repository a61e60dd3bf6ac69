// Package diagnostics provides the side channel through which handlers,
// delegates and stores report state transitions, native calls and faults.
//
// Nothing in the runtime writes to a process-wide logger. Each component is
// given a Sink at construction and uses Nop when none is supplied.
package diagnostics

import (
	"time"

	"github.com/go-drift/grant/pkg/errors"
	"github.com/go-drift/grant/pkg/grant"
)

// Transition describes a dialog state change made by a handler.
type Transition struct {
	// HandlerID identifies the handler instance.
	HandlerID string
	// Op is the handler operation that caused the change (e.g., "request").
	Op string
	// Permission is the permission the dialog refers to, if any.
	Permission string
	// Status is the status the decision was based on.
	Status grant.Status
	// From and To are the dialog states ("hidden", "rationale", "settings").
	From, To string
	// Time is when the transition happened.
	Time time.Time
}

// DelegateCall describes a completed call into a platform delegate.
type DelegateCall struct {
	// Op is "check", "request" or "open_settings".
	Op         string
	Permission string
	Result     grant.Status
	Duration   time.Duration
}

// Sink receives diagnostics. Implementations must be safe for concurrent use.
type Sink interface {
	errors.ErrorHandler
	// Transition is called after a handler changes its dialog state.
	Transition(t Transition)
	// DelegateCall is called after a delegate call returns.
	DelegateCall(c DelegateCall)
}

// Nop is a Sink that discards everything.
type Nop struct{}

func (Nop) HandleError(*errors.GrantError) {}
func (Nop) HandlePanic(*errors.PanicError) {}
func (Nop) Transition(Transition)          {}
func (Nop) DelegateCall(DelegateCall)      {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Multi fans every event out to each sink in order.
type Multi []Sink

// NewMulti returns a Multi over the non-nil sinks.
func NewMulti(sinks ...Sink) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m Multi) HandleError(err *errors.GrantError) {
	for _, s := range m {
		s.HandleError(err)
	}
}

func (m Multi) HandlePanic(err *errors.PanicError) {
	for _, s := range m {
		s.HandlePanic(err)
	}
}

func (m Multi) Transition(t Transition) {
	for _, s := range m {
		s.Transition(t)
	}
}

func (m Multi) DelegateCall(c DelegateCall) {
	for _, s := range m {
		s.DelegateCall(c)
	}
}
