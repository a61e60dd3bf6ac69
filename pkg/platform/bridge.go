package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/errors"
)

// NativeBridge defines the interface for calling native platform code.
// The host embedding (Android or iOS runner) provides the implementation.
type NativeBridge interface {
	// InvokeMethod calls a method on the native side.
	InvokeMethod(channel, method string, args []byte) ([]byte, error)

	// StartEventStream tells native to start sending events for a channel.
	StartEventStream(channel string) error

	// StopEventStream tells native to stop sending events for a channel.
	StopEventStream(channel string) error
}

// Bridge routes method calls and events between Go channels and a
// NativeBridge. Native code delivers events through HandleEvent,
// HandleEventError and HandleEventDone.
type Bridge struct {
	native NativeBridge
	codec  Codec
	sink   diagnostics.Sink

	mu             sync.RWMutex
	methodChannels map[string]*MethodChannel
	eventChannels  map[string]*EventChannel
}

// NewBridge creates a Bridge over native. A nil native bridge makes every
// invocation fail with ErrPlatformUnavailable. A nil sink discards reports.
func NewBridge(native NativeBridge, sink diagnostics.Sink) *Bridge {
	return &Bridge{
		native:         native,
		codec:          JSONCodec{},
		sink:           diagnostics.OrNop(sink),
		methodChannels: make(map[string]*MethodChannel),
		eventChannels:  make(map[string]*EventChannel),
	}
}

// MethodChannel returns the method channel with the given name, creating it
// on first use.
func (b *Bridge) MethodChannel(name string) *MethodChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.methodChannels[name]; ok {
		return ch
	}
	ch := &MethodChannel{name: name, bridge: b}
	b.methodChannels[name] = ch
	return ch
}

// EventChannel returns the event channel with the given name, creating it on
// first use.
func (b *Bridge) EventChannel(name string) *EventChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.eventChannels[name]; ok {
		return ch
	}
	ch := &EventChannel{name: name, bridge: b}
	b.eventChannels[name] = ch
	return ch
}

func (b *Bridge) eventChannel(name string) *EventChannel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.eventChannels[name]
}

func (b *Bridge) methodChannel(name string) *MethodChannel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.methodChannels[name]
}

// invoke calls a method on the native side.
func (b *Bridge) invoke(channel, method string, args any) (any, error) {
	if b.native == nil {
		return nil, ErrPlatformUnavailable
	}

	argsData, err := b.codec.Encode(args)
	if err != nil {
		return nil, err
	}

	resultData, err := b.native.InvokeMethod(channel, method, argsData)
	if err != nil {
		return nil, err
	}

	return b.codec.Decode(resultData)
}

func (b *Bridge) startEventStream(channel string) error {
	if b.native == nil {
		return b.reportStream("platform.startEventStream", channel, ErrPlatformUnavailable)
	}
	return b.reportStream("platform.startEventStream", channel, b.native.StartEventStream(channel))
}

func (b *Bridge) stopEventStream(channel string) error {
	if b.native == nil {
		return b.reportStream("platform.stopEventStream", channel, ErrPlatformUnavailable)
	}
	return b.reportStream("platform.stopEventStream", channel, b.native.StopEventStream(channel))
}

func (b *Bridge) reportStream(op, channel string, err error) error {
	if err != nil {
		errors.Report(b.sink, &errors.GrantError{
			Op:      op,
			Kind:    errors.KindPlatform,
			Channel: channel,
			Err:     err,
		})
	}
	return err
}

// HandleMethodCall is called by the host when native invokes a Go method.
func (b *Bridge) HandleMethodCall(channel, method string, argsData []byte) ([]byte, error) {
	ch := b.methodChannel(channel)
	if ch == nil {
		return nil, ErrChannelNotFound
	}

	args, err := b.codec.Decode(argsData)
	if err != nil {
		return nil, err
	}

	result, err := ch.handleCall(method, args)
	if err != nil {
		return nil, err
	}
	return b.codec.Encode(result)
}

// HandleEvent is called by the host when native sends an event.
func (b *Bridge) HandleEvent(channel string, eventData []byte) error {
	ch, err := b.lookupEvent("platform.HandleEvent", channel)
	if err != nil {
		return err
	}

	data, err := b.codec.Decode(eventData)
	if err != nil {
		ch.dispatchError(err)
		return err
	}

	ch.dispatchEvent(data)
	return nil
}

// HandleEventError is called by the host when an event stream errors.
func (b *Bridge) HandleEventError(channel string, code, message string) error {
	ch, err := b.lookupEvent("platform.HandleEventError", channel)
	if err != nil {
		return err
	}
	ch.dispatchError(NewChannelError(code, message))
	return nil
}

// HandleEventDone is called by the host when an event stream ends.
func (b *Bridge) HandleEventDone(channel string) error {
	ch, err := b.lookupEvent("platform.HandleEventDone", channel)
	if err != nil {
		return err
	}
	ch.dispatchDone()
	return nil
}

func (b *Bridge) lookupEvent(op, channel string) (*EventChannel, error) {
	ch := b.eventChannel(channel)
	if ch == nil {
		err := fmt.Errorf("%w: %s", ErrChannelNotFound, channel)
		errors.Report(b.sink, &errors.GrantError{
			Op:      op,
			Kind:    errors.KindPlatform,
			Channel: channel,
			Err:     err,
		})
		return nil, err
	}
	return ch, nil
}
