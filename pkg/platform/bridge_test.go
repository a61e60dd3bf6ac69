package platform

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/grant/pkg/diagnostics"
)

func TestBridgeChannelsAreShared(t *testing.T) {
	b := NewBridge(NewFakeNative(), nil)
	assert.Same(t, b.MethodChannel("a"), b.MethodChannel("a"))
	assert.Same(t, b.EventChannel("a"), b.EventChannel("a"))
	assert.Equal(t, "a", b.EventChannel("a").Name())
}

func TestBridgeHandleEventUnknownChannel(t *testing.T) {
	rec := &diagnostics.Recorder{}
	b := NewBridge(NewFakeNative(), rec)

	err := b.HandleEvent("nope", []byte(`{}`))
	require.ErrorIs(t, err, ErrChannelNotFound)
	require.Len(t, rec.Errors(), 1)
	assert.Equal(t, "nope", rec.Errors()[0].Channel)

	assert.ErrorIs(t, b.HandleEventError("nope", "E", "m"), ErrChannelNotFound)
	assert.ErrorIs(t, b.HandleEventDone("nope"), ErrChannelNotFound)
}

func TestBridgeHandleEventDecodeError(t *testing.T) {
	b := NewBridge(NewFakeNative(), nil)
	var gotErr error
	b.EventChannel("ev").Listen(EventHandler{OnError: func(err error) { gotErr = err }})

	require.Error(t, b.HandleEvent("ev", []byte(`{not json`)))
	assert.Error(t, gotErr)
}

func TestBridgeHandleEventErrorAndDone(t *testing.T) {
	b := NewBridge(NewFakeNative(), nil)
	var gotErr error
	done := false
	sub := b.EventChannel("ev").Listen(EventHandler{
		OnError: func(err error) { gotErr = err },
		OnDone:  func() { done = true },
	})

	require.NoError(t, b.HandleEventError("ev", "DENIED", "user said no"))
	var chErr *ChannelError
	require.ErrorAs(t, gotErr, &chErr)
	assert.Equal(t, "DENIED: user said no", chErr.Error())

	require.NoError(t, b.HandleEventDone("ev"))
	assert.True(t, done)
	assert.True(t, sub.IsCanceled())
}

func TestBridgeHandleMethodCall(t *testing.T) {
	b := NewBridge(NewFakeNative(), nil)
	ch := b.MethodChannel("drift/permissions/host")

	_, err := b.HandleMethodCall("drift/permissions/host", "ping", nil)
	assert.ErrorIs(t, err, ErrMethodNotFound)

	ch.SetHandler(func(method string, args any) (any, error) {
		return map[string]any{"method": method, "args": args}, nil
	})
	out, err := b.HandleMethodCall("drift/permissions/host", "ping", []byte(`{"x":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"ping","args":{"x":1}}`, string(out))

	_, err = b.HandleMethodCall("missing", "ping", nil)
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestEventChannelStartsOnFirstListenerOnly(t *testing.T) {
	native := NewFakeNative()
	b := NewBridge(native, nil)
	ch := b.EventChannel("ev")

	s1 := ch.Listen(EventHandler{})
	s2 := ch.Listen(EventHandler{})
	assert.True(t, native.StreamActive("ev"))

	s1.Cancel()
	assert.True(t, native.StreamActive("ev"))
	s2.Cancel()
	s2.Cancel()
	assert.False(t, native.StreamActive("ev"))
}

func TestEventChannelStartFailureReachesHandler(t *testing.T) {
	rec := &diagnostics.Recorder{}
	b := NewBridge(nil, rec)
	var gotErr error
	b.EventChannel("ev").Listen(EventHandler{OnError: func(err error) { gotErr = err }})
	assert.ErrorIs(t, gotErr, ErrPlatformUnavailable)
	assert.NotEmpty(t, rec.Errors())
}

func TestJSONCodec(t *testing.T) {
	c := JSONCodec{}
	v, err := c.Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = c.Decode([]byte("{"))
	assert.Error(t, err)

	data, err := c.Encode(map[string]any{"status": "granted"})
	require.NoError(t, err)
	v, err = c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "granted"}, v)
}

func TestChannelErrorString(t *testing.T) {
	assert.Equal(t, "CODE", NewChannelError("CODE", "").Error())
	assert.Equal(t, "CODE: msg", NewChannelError("CODE", "msg").Error())
	assert.False(t, stderrors.Is(NewChannelError("CODE", ""), ErrClosed))
}

func TestDispatch(t *testing.T) {
	t.Cleanup(func() { RegisterDispatch(nil) })

	RegisterDispatch(nil)
	assert.False(t, Dispatch(func() {}))

	ran := false
	DispatchOrRun(func() { ran = true })
	assert.True(t, ran, "DispatchOrRun should run inline without a dispatcher")

	var queued []func()
	RegisterDispatch(func(cb func()) { queued = append(queued, cb) })
	assert.True(t, Dispatch(func() {}))
	assert.False(t, Dispatch(nil))

	ran = false
	DispatchOrRun(func() { ran = true })
	assert.False(t, ran)
	require.Len(t, queued, 2)
	queued[1]()
	assert.True(t, ran)
}
