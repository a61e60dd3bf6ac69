package platform

import (
	"encoding/json"
	"sync"
)

// NativeCall records one InvokeMethod call received by a FakeNative.
type NativeCall struct {
	Channel string
	Method  string
	Args    map[string]any
}

// FakeNative is a NativeBridge that answers the permission plugin protocol
// from an in-memory status table. It is used to exercise ChannelDelegate and
// Bridge without a device.
//
// A "request" call replies immediately and, unless Silent is set, pushes the
// scripted answer on the change channel through the attached Bridge.
type FakeNative struct {
	mu       sync.Mutex
	bridge   *Bridge
	statuses map[string]string
	answers  map[string]string
	calls    []NativeCall
	streams  map[string]bool

	// Silent suppresses change events, simulating a dialog nobody answers.
	Silent bool
	// Fail makes every InvokeMethod call return this error.
	Fail error
	// Rationale is returned for shouldShowRationale.
	Rationale bool
}

// NewFakeNative creates a FakeNative. Call Attach with the Bridge built on it.
func NewFakeNative() *FakeNative {
	return &FakeNative{
		statuses: make(map[string]string),
		answers:  make(map[string]string),
		streams:  make(map[string]bool),
	}
}

// Attach connects the fake to the Bridge that receives its events.
func (f *FakeNative) Attach(b *Bridge) {
	f.mu.Lock()
	f.bridge = b
	f.mu.Unlock()
}

// SetStatus sets the native status string reported for a permission.
func (f *FakeNative) SetStatus(id, status string) {
	f.mu.Lock()
	f.statuses[id] = status
	f.mu.Unlock()
}

// Answer sets the native status the user "chooses" on the next request.
func (f *FakeNative) Answer(id, status string) {
	f.mu.Lock()
	f.answers[id] = status
	f.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (f *FakeNative) Calls() []NativeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]NativeCall(nil), f.calls...)
}

// StreamActive reports whether the event stream for channel is started.
func (f *FakeNative) StreamActive(channel string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[channel]
}

func (f *FakeNative) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	var decoded map[string]any
	if len(args) > 0 {
		_ = json.Unmarshal(args, &decoded)
	}
	id := payload(decoded).text("permission")

	f.mu.Lock()
	f.calls = append(f.calls, NativeCall{Channel: channel, Method: method, Args: decoded})
	if f.Fail != nil {
		err := f.Fail
		f.mu.Unlock()
		return nil, err
	}

	var reply any
	var event map[string]any
	switch method {
	case "check":
		reply = map[string]any{"status": f.statusFor(id)}
	case "request":
		if answer, ok := f.answers[id]; ok {
			f.statuses[id] = answer
			delete(f.answers, id)
		}
		if !f.Silent {
			event = map[string]any{"permission": id, "status": f.statusFor(id)}
		}
	case "shouldShowRationale":
		reply = map[string]any{"shouldShow": f.Rationale}
	}
	bridge := f.bridge
	f.mu.Unlock()

	if event != nil && bridge != nil {
		data, err := json.Marshal(event)
		if err != nil {
			return nil, err
		}
		if err := bridge.HandleEvent(PermissionChangesChannel, data); err != nil {
			return nil, err
		}
	}
	return json.Marshal(reply)
}

func (f *FakeNative) statusFor(id string) string {
	if s, ok := f.statuses[id]; ok {
		return s
	}
	return nativeNotDetermined
}

func (f *FakeNative) StartEventStream(channel string) error {
	f.mu.Lock()
	f.streams[channel] = true
	f.mu.Unlock()
	return nil
}

func (f *FakeNative) StopEventStream(channel string) error {
	f.mu.Lock()
	f.streams[channel] = false
	f.mu.Unlock()
	return nil
}
