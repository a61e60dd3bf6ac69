package platform

import "sync"

// Dispatcher schedules a callback, typically onto the UI thread.
type Dispatcher func(callback func())

// Inline runs the callback immediately on the calling goroutine.
func Inline(callback func()) { callback() }

var (
	dispatchMu   sync.RWMutex
	dispatchFunc Dispatcher
)

// RegisterDispatch sets the dispatch function used to schedule callbacks on
// the UI thread. The host calls this once during initialization.
func RegisterDispatch(fn Dispatcher) {
	dispatchMu.Lock()
	dispatchFunc = fn
	dispatchMu.Unlock()
}

// Dispatch schedules a callback to run on the UI thread.
// Returns true if the callback was scheduled, false if no dispatch function
// is registered or the callback is nil.
func Dispatch(callback func()) bool {
	dispatchMu.RLock()
	fn := dispatchFunc
	dispatchMu.RUnlock()
	if fn == nil || callback == nil {
		return false
	}
	fn(callback)
	return true
}

// DispatchOrRun schedules callback with the registered dispatcher, or runs it
// inline when none is registered. It satisfies Dispatcher.
func DispatchOrRun(callback func()) {
	if callback == nil {
		return
	}
	if !Dispatch(callback) {
		callback()
	}
}
