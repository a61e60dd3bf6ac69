package errors

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantErrorString(t *testing.T) {
	err := &GrantError{
		Op:         "platform.request",
		Kind:       KindPlatform,
		Permission: "camera",
		Channel:    "drift/permissions",
		Err:        stderrors.New("bridge gone"),
	}
	assert.Equal(t, "platform.request [platform] permission=camera channel=drift/permissions: bridge gone", err.Error())
}

func TestGrantErrorWithoutChannel(t *testing.T) {
	err := &GrantError{
		Op:   "store.save",
		Kind: KindStore,
		Err:  &ParseError{Channel: "test", DataType: "UIState", Got: nil},
	}
	assert.NotContains(t, err.Error(), "channel=")
	assert.Contains(t, err.Error(), "store.save [store]")
}

func TestGrantErrorUnwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := &GrantError{Op: "op", Err: sentinel}
	assert.ErrorIs(t, err, sentinel)

	var target *GrantError
	wrapped := stderrors.Join(stderrors.New("outer"), err)
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "op", target.Op)
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindPlatform, "platform"},
		{KindParsing, "parsing"},
		{KindStore, "store"},
		{KindTimeout, "timeout"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String(), "ErrorKind(%d)", tt.kind)
	}
}

func TestPanicErrorString(t *testing.T) {
	assert.Equal(t, "panic: boom", (&PanicError{Value: "boom"}).Error())
	assert.Equal(t, "panic in handler.onGranted: boom", (&PanicError{Op: "handler.onGranted", Value: "boom"}).Error())
}

func TestReportSetsTimestamp(t *testing.T) {
	h := &testHandler{}
	Report(h, &GrantError{Op: "test.op", Kind: KindStore, Err: stderrors.New("x")})

	require.Len(t, h.errs, 1)
	assert.Equal(t, "test.op", h.errs[0].Op)
	assert.False(t, h.errs[0].Timestamp.IsZero())
}

func TestReportKeepsTimestamp(t *testing.T) {
	h := &testHandler{}
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	Report(h, &GrantError{Op: "op", Timestamp: ts})
	require.Len(t, h.errs, 1)
	assert.Equal(t, ts, h.errs[0].Timestamp)
}

func TestReportNilHandler(t *testing.T) {
	assert.NotPanics(t, func() {
		Report(nil, &GrantError{Op: "op"})
		ReportPanic(nil, &PanicError{Value: 1})
	})
}

func TestRecover(t *testing.T) {
	h := &testHandler{}
	func() {
		defer Recover(h, "test.recover")
		panic("intentional test panic")
	}()

	require.Len(t, h.panics, 1)
	assert.Equal(t, "intentional test panic", h.panics[0].Value)
	assert.Equal(t, "test.recover", h.panics[0].Op)
	assert.NotEmpty(t, h.panics[0].StackTrace)
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	require.NotEmpty(t, stack)
	assert.True(t, containsAny(stack, "testing", "runtime"), "stack trace should contain testing or runtime frames, got: %s", stack)
}

type testHandler struct {
	errs   []*GrantError
	panics []*PanicError
}

func (h *testHandler) HandleError(err *GrantError) { h.errs = append(h.errs, err) }

func (h *testHandler) HandlePanic(err *PanicError) { h.panics = append(h.panics, err) }

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
