package handler

import (
	"sync"

	"github.com/go-drift/grant/pkg/platform"
)

// Observable holds a value that handlers publish and the UI layer watches.
// It is safe for concurrent use.
//
// Listeners are called through the handler's dispatcher, so with
// WithDispatch they run on the UI thread. Setting a value equal to the
// current one does not notify.
type Observable[T any] struct {
	mu        sync.Mutex
	value     T
	nextID    int
	listeners map[int]func(T)
	equal     func(a, b T) bool
	dispatch  platform.Dispatcher
}

func newObservable[T any](initial T, equal func(a, b T) bool, dispatch platform.Dispatcher) *Observable[T] {
	if dispatch == nil {
		dispatch = platform.Inline
	}
	return &Observable[T]{
		value:     initial,
		listeners: make(map[int]func(T)),
		equal:     equal,
		dispatch:  dispatch,
	}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Listen registers fn and immediately delivers the current value to it.
// The returned function removes the listener; calling it more than once is
// safe.
func (o *Observable[T]) Listen(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	current := o.value
	o.mu.Unlock()

	o.dispatch(func() { fn(current) })

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// set stores v and notifies listeners when it differs from the current value.
// Listeners are called outside the lock so they may call back into the
// handler.
func (o *Observable[T]) set(v T) {
	o.mu.Lock()
	if o.equal != nil && o.equal(o.value, v) {
		o.mu.Unlock()
		return
	}
	o.value = v
	snapshot := make([]func(T), 0, len(o.listeners))
	for _, fn := range o.listeners {
		snapshot = append(snapshot, fn)
	}
	o.mu.Unlock()

	for _, fn := range snapshot {
		fn := fn
		o.dispatch(func() { fn(v) })
	}
}
