package platform

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/errors"
	"github.com/go-drift/grant/pkg/grant"
)

// Channel names used by the native permission plugin.
const (
	PermissionsChannel       = "drift/permissions"
	PermissionChangesChannel = "drift/permissions/changes"
)

// Status strings sent by the native plugin. The plugin reports a wider
// vocabulary than grant.Status; nativeStatus folds it into the four statuses.
const (
	nativeGranted           = "granted"
	nativeDenied            = "denied"
	nativePermanentlyDenied = "permanently_denied"
	nativeDeniedAlways      = "denied_always"
	nativeRestricted        = "restricted"
	nativeLimited           = "limited"
	nativeProvisional       = "provisional"
	nativeNotDetermined     = "not_determined"
)

// nativeStatus maps a native status string to a grant.Status. Limited and
// provisional access count as granted; restricted access cannot be changed by
// the user and counts as a hard denial.
func nativeStatus(s string) (grant.Status, bool) {
	switch s {
	case nativeGranted, nativeLimited, nativeProvisional:
		return grant.Granted, true
	case nativeDenied:
		return grant.Denied, true
	case nativePermanentlyDenied, nativeDeniedAlways, nativeRestricted:
		return grant.DeniedAlways, true
	case nativeNotDetermined:
		return grant.NotDetermined, true
	default:
		return grant.DeniedAlways, false
	}
}

// isTerminalStatus reports whether a request for a permission in status s
// would return without showing the system dialog.
func isTerminalStatus(s grant.Status) bool {
	return s == grant.Granted || s == grant.DeniedAlways
}

// Change is a permission status change pushed by the native side, for example
// after the user toggled the permission in the system settings.
type Change struct {
	Permission string
	Status     grant.Status
}

// ChannelOption configures a ChannelDelegate.
type ChannelOption func(*ChannelDelegate)

// WithRequestTimeout bounds every Request call. Values <= 0 are ignored.
func WithRequestTimeout(d time.Duration) ChannelOption {
	return func(c *ChannelDelegate) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSink sets the sink that receives bridge faults.
func WithSink(s diagnostics.Sink) ChannelOption {
	return func(c *ChannelDelegate) {
		c.sink = diagnostics.OrNop(s)
	}
}

// ChannelDelegate implements Delegate over the native permission plugin.
type ChannelDelegate struct {
	channel *MethodChannel
	changes *EventChannel
	sink    diagnostics.Sink
	timeout time.Duration

	// Per-permission request locks: only one system dialog per permission
	// can be on screen at a time.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ Delegate = (*ChannelDelegate)(nil)

// NewChannelDelegate creates a delegate that talks to the native permission
// plugin through bridge.
func NewChannelDelegate(bridge *Bridge, opts ...ChannelOption) *ChannelDelegate {
	d := &ChannelDelegate{
		channel: bridge.MethodChannel(PermissionsChannel),
		changes: bridge.EventChannel(PermissionChangesChannel),
		sink:    diagnostics.Nop{},
		timeout: DefaultPermissionTimeout,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ChannelDelegate) requestLock(id string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[id]
	if !ok {
		l = &sync.Mutex{}
		d.locks[id] = l
	}
	return l
}

// permissionArgs describes p to the native side, including its manifest and
// Info.plist mapping so custom permissions need no native registration.
func permissionArgs(p grant.Permission) map[string]any {
	args := map[string]any{"permission": p.Identifier()}
	if m, ok := p.(grant.PlatformMapping); ok {
		if android := m.AndroidPermissions(); len(android) > 0 {
			args["android"] = android
		}
		if key := m.IOSUsageKey(); key != "" {
			args["iosUsageKey"] = key
		}
	}
	return args
}

// CheckStatus returns the current status of p. Bridge faults are reported and
// resolve to grant.DeniedAlways.
func (d *ChannelDelegate) CheckStatus(ctx context.Context, p grant.Permission) grant.Status {
	status, err := d.status(p)
	if err != nil {
		d.report("platform.check", p, errors.KindPlatform, err)
		return grant.DeniedAlways
	}
	return status
}

func (d *ChannelDelegate) status(p grant.Permission) (grant.Status, error) {
	result, err := d.channel.Invoke("check", permissionArgs(p))
	if err != nil {
		return grant.DeniedAlways, err
	}
	return d.parseResult(p, result)
}

func (d *ChannelDelegate) parseResult(p grant.Permission, result any) (grant.Status, error) {
	status, ok := nativeStatus(asPayload(result).text("status"))
	if !ok {
		return status, &errors.ParseError{Channel: PermissionsChannel, DataType: "PermissionStatus", Got: result}
	}
	return status, nil
}

// Request shows the system dialog for p unless it is already in a terminal
// state, and waits for the answer on the change channel. The wait is bounded
// by ctx and the delegate's request timeout; on expiry the status is
// re-checked once and otherwise resolves to grant.Denied.
func (d *ChannelDelegate) Request(ctx context.Context, p grant.Permission) grant.Status {
	lock := d.requestLock(p.Identifier())
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	current, err := d.status(p)
	if err != nil {
		d.report("platform.request", p, errors.KindPlatform, err)
		return grant.DeniedAlways
	}
	if isTerminalStatus(current) {
		return current
	}

	// Subscribe before triggering the native request so the answer cannot be
	// missed.
	resultCh := make(chan grant.Status, 1)
	sub := d.changes.Listen(EventHandler{
		OnEvent: func(data any) {
			change, ok := parseChange(data)
			if ok && change.Permission == p.Identifier() {
				select {
				case resultCh <- change.Status:
				default:
				}
			}
		},
		OnError: func(err error) {
			d.report("platform.request", p, errors.KindPlatform, err)
		},
	})
	defer sub.Cancel()

	if _, err := d.channel.Invoke("request", permissionArgs(p)); err != nil {
		d.report("platform.request", p, errors.KindPlatform, err)
		return grant.DeniedAlways
	}

	select {
	case status := <-resultCh:
		return status
	case <-ctx.Done():
		if final, err := d.status(p); err == nil && final != grant.NotDetermined {
			return final
		}
		cause := ErrCanceled
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			cause = ErrTimeout
		}
		d.report("platform.request", p, errors.KindTimeout, cause)
		return grant.Denied
	}
}

// ShouldShowRationale reports whether the OS suggests explaining p before
// asking again. Android only; iOS always reports false.
func (d *ChannelDelegate) ShouldShowRationale(ctx context.Context, p grant.Permission) bool {
	result, err := d.channel.Invoke("shouldShowRationale", permissionArgs(p))
	if err != nil {
		d.report("platform.shouldShowRationale", p, errors.KindPlatform, err)
		return false
	}
	return asPayload(result).flag("shouldShow")
}

// OpenSettings opens the system settings page for this app. Failures are
// reported to the sink only.
func (d *ChannelDelegate) OpenSettings() {
	if _, err := d.channel.Invoke("openSettings", nil); err != nil {
		d.report("platform.openSettings", nil, errors.KindPlatform, err)
	}
}

// Listen subscribes to permission status changes pushed by the native side.
// Returns an unsubscribe function.
func (d *ChannelDelegate) Listen(handler func(Change)) (unsubscribe func()) {
	stream := NewStream(d.changes, d.sink, func(data any) (Change, error) {
		change, ok := parseChange(data)
		if !ok {
			return Change{}, &errors.ParseError{Channel: PermissionChangesChannel, DataType: "PermissionChange", Got: data}
		}
		return change, nil
	})
	return stream.Listen(handler)
}

func (d *ChannelDelegate) report(op string, p grant.Permission, kind errors.ErrorKind, err error) {
	ge := &errors.GrantError{
		Op:      op,
		Kind:    kind,
		Channel: PermissionsChannel,
		Err:     err,
	}
	if p != nil {
		ge.Permission = p.Identifier()
	}
	if stderrors.As(err, new(*errors.ParseError)) {
		ge.Kind = errors.KindParsing
	}
	errors.Report(d.sink, ge)
}

func parseChange(data any) (Change, bool) {
	m := asPayload(data)
	if m == nil {
		return Change{}, false
	}
	id := m.text("permission")
	status, ok := nativeStatus(m.text("status"))
	if id == "" || !ok {
		return Change{}, false
	}
	return Change{Permission: id, Status: status}, true
}
