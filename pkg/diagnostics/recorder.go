package diagnostics

import (
	"sync"

	"github.com/go-drift/grant/pkg/errors"
)

// Recorder is a Sink that keeps every event in memory. It is intended for
// tests and for the simulator's trace output.
type Recorder struct {
	mu          sync.Mutex
	transitions []Transition
	calls       []DelegateCall
	errs        []*errors.GrantError
	panics      []*errors.PanicError
}

func (r *Recorder) HandleError(err *errors.GrantError) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *Recorder) HandlePanic(err *errors.PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

func (r *Recorder) Transition(t Transition) {
	r.mu.Lock()
	r.transitions = append(r.transitions, t)
	r.mu.Unlock()
}

func (r *Recorder) DelegateCall(c DelegateCall) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

// Transitions returns a copy of the recorded transitions.
func (r *Recorder) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transition(nil), r.transitions...)
}

// DelegateCalls returns a copy of the recorded delegate calls.
func (r *Recorder) DelegateCalls() []DelegateCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DelegateCall(nil), r.calls...)
}

// Errors returns a copy of the recorded errors.
func (r *Recorder) Errors() []*errors.GrantError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*errors.GrantError(nil), r.errs...)
}

// Panics returns a copy of the recorded panics.
func (r *Recorder) Panics() []*errors.PanicError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*errors.PanicError(nil), r.panics...)
}
