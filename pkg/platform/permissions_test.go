package platform

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/errors"
	"github.com/go-drift/grant/pkg/grant"
)

func newTestDelegate(t *testing.T, opts ...ChannelOption) (*ChannelDelegate, *FakeNative, *diagnostics.Recorder) {
	t.Helper()
	native := NewFakeNative()
	rec := &diagnostics.Recorder{}
	bridge := NewBridge(native, rec)
	native.Attach(bridge)
	return NewChannelDelegate(bridge, append([]ChannelOption{WithSink(rec)}, opts...)...), native, rec
}

func TestNativeStatusMapping(t *testing.T) {
	tests := []struct {
		native string
		want   grant.Status
		ok     bool
	}{
		{"granted", grant.Granted, true},
		{"limited", grant.Granted, true},
		{"provisional", grant.Granted, true},
		{"denied", grant.Denied, true},
		{"permanently_denied", grant.DeniedAlways, true},
		{"denied_always", grant.DeniedAlways, true},
		{"restricted", grant.DeniedAlways, true},
		{"not_determined", grant.NotDetermined, true},
		{"unknown", grant.DeniedAlways, false},
		{"", grant.DeniedAlways, false},
	}
	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			got, ok := nativeStatus(tt.native)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestChannelDelegateCheckStatus(t *testing.T) {
	d, native, _ := newTestDelegate(t)
	native.SetStatus("camera", "restricted")

	assert.Equal(t, grant.DeniedAlways, d.CheckStatus(context.Background(), grant.Camera))
	assert.Equal(t, grant.NotDetermined, d.CheckStatus(context.Background(), grant.Microphone))

	calls := native.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, PermissionsChannel, calls[0].Channel)
	assert.Equal(t, "check", calls[0].Method)
	assert.Equal(t, "camera", calls[0].Args["permission"])
	assert.Equal(t, "NSCameraUsageDescription", calls[0].Args["iosUsageKey"])
	assert.Equal(t, []any{"android.permission.CAMERA"}, calls[0].Args["android"])
}

func TestChannelDelegateCustomPermissionArgs(t *testing.T) {
	d, native, _ := newTestDelegate(t)
	custom := grant.NewCustom("body_sensors", []string{"android.permission.BODY_SENSORS"}, "")

	d.CheckStatus(context.Background(), custom)

	calls := native.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "body_sensors", calls[0].Args["permission"])
	assert.NotContains(t, calls[0].Args, "iosUsageKey")
}

func TestChannelDelegateCheckStatusFaultMapsToDeniedAlways(t *testing.T) {
	d, native, rec := newTestDelegate(t)
	native.Fail = stderrors.New("plugin missing")

	assert.Equal(t, grant.DeniedAlways, d.CheckStatus(context.Background(), grant.Camera))

	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "platform.check", errs[0].Op)
	assert.Equal(t, errors.KindPlatform, errs[0].Kind)
	assert.Equal(t, "camera", errs[0].Permission)
}

func TestChannelDelegateUnknownStatusIsParseError(t *testing.T) {
	d, native, rec := newTestDelegate(t)
	native.SetStatus("camera", "unknown")

	assert.Equal(t, grant.DeniedAlways, d.CheckStatus(context.Background(), grant.Camera))
	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, errors.KindParsing, errs[0].Kind)
}

func TestChannelDelegateRequestWaitsForChangeEvent(t *testing.T) {
	d, native, _ := newTestDelegate(t)
	native.Answer("camera", "granted")

	assert.Equal(t, grant.Granted, d.Request(context.Background(), grant.Camera))

	methods := []string{}
	for _, c := range native.Calls() {
		methods = append(methods, c.Method)
	}
	assert.Equal(t, []string{"check", "request"}, methods)
	assert.False(t, native.StreamActive(PermissionChangesChannel), "stream should stop after the request completes")
}

func TestChannelDelegateRequestSkipsDialogWhenTerminal(t *testing.T) {
	for _, native := range []string{"granted", "permanently_denied"} {
		t.Run(native, func(t *testing.T) {
			d, fake, _ := newTestDelegate(t)
			fake.SetStatus("microphone", native)

			got := d.Request(context.Background(), grant.Microphone)
			want, _ := nativeStatus(native)
			assert.Equal(t, want, got)

			for _, c := range fake.Calls() {
				assert.NotEqual(t, "request", c.Method)
			}
		})
	}
}

func TestChannelDelegateRequestTimeoutMapsToDenied(t *testing.T) {
	d, native, rec := newTestDelegate(t, WithRequestTimeout(20*time.Millisecond))
	native.Silent = true

	assert.Equal(t, grant.Denied, d.Request(context.Background(), grant.Camera))

	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, errors.KindTimeout, errs[0].Kind)
	assert.ErrorIs(t, errs[0], ErrTimeout)
}

func TestChannelDelegateRequestTimeoutUsesRecheckedStatus(t *testing.T) {
	d, native, rec := newTestDelegate(t, WithRequestTimeout(20*time.Millisecond))
	native.Silent = true
	native.Answer("camera", "permanently_denied")

	assert.Equal(t, grant.DeniedAlways, d.Request(context.Background(), grant.Camera))
	assert.Empty(t, rec.Errors())
}

func TestChannelDelegateRequestCanceled(t *testing.T) {
	d, native, rec := newTestDelegate(t)
	native.Silent = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, grant.Denied, d.Request(ctx, grant.Camera))
	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrCanceled)
}

func TestChannelDelegateRequestBridgeFault(t *testing.T) {
	d, native, _ := newTestDelegate(t)
	native.Fail = stderrors.New("activity destroyed")
	assert.Equal(t, grant.DeniedAlways, d.Request(context.Background(), grant.Camera))
}

func TestChannelDelegateNoBridge(t *testing.T) {
	rec := &diagnostics.Recorder{}
	d := NewChannelDelegate(NewBridge(nil, rec), WithSink(rec))
	assert.Equal(t, grant.DeniedAlways, d.CheckStatus(context.Background(), grant.Camera))
	errs := rec.Errors()
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[0], ErrPlatformUnavailable)
}

func TestChannelDelegateOpenSettings(t *testing.T) {
	d, native, rec := newTestDelegate(t)
	d.OpenSettings()
	calls := native.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "openSettings", calls[0].Method)
	assert.Empty(t, rec.Errors())

	native.Fail = stderrors.New("no activity")
	d.OpenSettings()
	require.Len(t, rec.Errors(), 1)
	assert.Equal(t, "platform.openSettings", rec.Errors()[0].Op)
}

func TestChannelDelegateShouldShowRationale(t *testing.T) {
	d, native, _ := newTestDelegate(t)
	assert.False(t, d.ShouldShowRationale(context.Background(), grant.Camera))
	native.Rationale = true
	assert.True(t, d.ShouldShowRationale(context.Background(), grant.Camera))
}

func TestChannelDelegateListen(t *testing.T) {
	native := NewFakeNative()
	rec := &diagnostics.Recorder{}
	bridge := NewBridge(native, rec)
	d := NewChannelDelegate(bridge, WithSink(rec))

	var got []Change
	unsub := d.Listen(func(c Change) { got = append(got, c) })
	assert.True(t, native.StreamActive(PermissionChangesChannel))

	require.NoError(t, bridge.HandleEvent(PermissionChangesChannel, []byte(`{"permission":"camera","status":"granted"}`)))
	require.NoError(t, bridge.HandleEvent(PermissionChangesChannel, []byte(`{"permission":"camera"}`)))
	unsub()
	require.NoError(t, bridge.HandleEvent(PermissionChangesChannel, []byte(`{"permission":"camera","status":"denied"}`)))

	assert.Equal(t, []Change{{Permission: "camera", Status: grant.Granted}}, got)
	require.Len(t, rec.Errors(), 1)
	assert.Equal(t, "stream.parse", rec.Errors()[0].Op)
	assert.False(t, native.StreamActive(PermissionChangesChannel))
}
