package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/errors"
	"github.com/go-drift/grant/pkg/grant"
	"github.com/go-drift/grant/pkg/platform"
)

// Handler drives the request flow of a single permission.
//
// It is meant for one logical caller, usually the screen that owns it. The
// mutex protects its fields but is never held across a delegate call, so a
// second Request while the first is waiting on the system dialog replaces
// the pending callback and the first call's result is applied to whatever
// state exists when it returns.
type Handler struct {
	id         string
	permission grant.Permission
	delegate   platform.Delegate
	opts       options
	keys       stateKeys

	status *Observable[grant.Status]
	ui     *Observable[UIState]

	mu             sync.Mutex
	state          UIState
	known          grant.Status
	pending        func()
	gen            uint64
	rationaleMsg   string
	settingsMsg    string
	shownRationale bool
	attempted      bool
}

// New creates a Handler for p. It does not call the delegate; the status is
// read on the first Request or RefreshStatus. A dialog state saved to the
// configured store by a previous handler is restored.
func New(delegate platform.Delegate, p grant.Permission, opts ...Option) *Handler {
	o := newOptions(opts)
	h := &Handler{
		id:         uuid.NewString(),
		permission: p,
		delegate:   delegate,
		opts:       o,
		keys:       newStateKeys(singleKeyBase),
	}
	if s, _, ok := h.keys.restore(o.store); ok {
		h.state = s
		h.rationaleMsg = s.RationaleMessage
		h.settingsMsg = s.SettingsMessage
	}
	h.status = newObservable[grant.Status]("", func(a, b grant.Status) bool { return a == b }, o.dispatch)
	h.ui = newObservable(h.state, func(a, b UIState) bool { return a == b }, o.dispatch)
	return h
}

// ID returns the identifier used for this handler in diagnostics.
func (h *Handler) ID() string { return h.id }

// Permission returns the permission this handler manages.
func (h *Handler) Permission() grant.Permission { return h.permission }

// Status returns the last status reported by the delegate, or "" before
// the first read.
func (h *Handler) Status() grant.Status { return h.status.Get() }

// UIState returns the current dialog state.
func (h *Handler) UIState() UIState { return h.ui.Get() }

// StatusObservable publishes every status read from the delegate.
func (h *Handler) StatusObservable() *Observable[grant.Status] { return h.status }

// UIObservable publishes dialog state changes.
func (h *Handler) UIObservable() *Observable[UIState] { return h.ui }

// Request runs onGranted once the permission is granted. Depending on the
// known status it calls it immediately, asks the system, or shows the
// rationale or settings guide and keeps onGranted until the user answers.
// Empty messages fall back to the configured generic text.
func (h *Handler) Request(ctx context.Context, rationaleMsg, settingsMsg string, onGranted func()) {
	const op = "request"

	h.mu.Lock()
	if ctx.Err() != nil {
		h.pending = nil
		h.mu.Unlock()
		return
	}
	h.gen++
	gen := h.gen
	h.pending = onGranted
	h.rationaleMsg = h.opts.rationaleText(rationaleMsg)
	h.settingsMsg = h.opts.settingsText(settingsMsg)
	h.mu.Unlock()

	status, ok := h.currentStatus(ctx)
	if !ok {
		h.abandon(gen)
		return
	}

	fresh := false
	if status == grant.NotDetermined {
		status = h.callRequest(ctx)
		if ctx.Err() != nil {
			h.abandon(gen)
			return
		}
		h.status.set(status)
		fresh = true
	}

	h.mu.Lock()
	allowed := h.opts.policy.allows(h.shownRationale, h.attempted)
	h.attempted = true
	h.known = status
	h.mu.Unlock()

	if status == grant.Granted {
		h.transition(op, status, UIState{})
		h.grantPending(op)
		return
	}
	h.block(op, status, fresh, allowed)
}

// OnRationaleConfirmed is called when the user accepts the rationale dialog.
// It asks the system again; a grant runs the pending callback, a hard denial
// switches to the settings guide.
func (h *Handler) OnRationaleConfirmed(ctx context.Context) {
	const op = "rationale_confirmed"

	h.mu.Lock()
	h.shownRationale = true
	h.mu.Unlock()

	status := h.callRequest(ctx)
	if ctx.Err() != nil {
		return
	}
	h.status.set(status)

	h.mu.Lock()
	h.known = status
	settingsMsg := h.settingsMsg
	h.mu.Unlock()

	switch status {
	case grant.Granted:
		h.transition(op, status, UIState{})
		h.grantPending(op)
	case grant.DeniedAlways:
		h.transition(op, status, settingsState(h.opts.settingsText(settingsMsg)))
	default:
		h.dropPending()
		h.transition(op, status, UIState{})
	}
}

// OnSettingsConfirmed opens the system settings and hides the dialog. The
// status is not re-checked; call RefreshStatus when the app resumes.
func (h *Handler) OnSettingsConfirmed() {
	h.delegate.OpenSettings()
	h.opts.sink.DelegateCall(diagnostics.DelegateCall{Op: "open_settings", Permission: h.permission.Identifier()})
	h.dropPending()
	h.transition("settings_confirmed", h.status.Get(), UIState{})
}

// OnDismiss hides the dialog and forgets the pending callback.
func (h *Handler) OnDismiss() {
	h.dropPending()
	h.transition("dismiss", h.status.Get(), UIState{})
}

// RefreshStatus reads the status again, for example after returning from
// Settings. The dialog is left as it is.
func (h *Handler) RefreshStatus(ctx context.Context) grant.Status {
	status := h.callCheck(ctx)
	if ctx.Err() != nil {
		return h.status.Get()
	}
	h.mu.Lock()
	h.known = status
	h.mu.Unlock()
	h.status.set(status)
	return status
}

// currentStatus returns the cached status, reading it once from the
// delegate when nothing is known yet.
func (h *Handler) currentStatus(ctx context.Context) (grant.Status, bool) {
	h.mu.Lock()
	known := h.known
	h.mu.Unlock()
	if known != "" {
		return known, true
	}
	status := h.callCheck(ctx)
	if ctx.Err() != nil {
		return "", false
	}
	h.mu.Lock()
	h.known = status
	h.mu.Unlock()
	h.status.set(status)
	return status, true
}

func (h *Handler) block(op string, status grant.Status, fresh, guideAllowed bool) {
	h.mu.Lock()
	next := dialogFor(status, fresh, guideAllowed, h.rationaleMsg, h.settingsMsg)
	if !next.Visible {
		h.pending = nil
	}
	h.mu.Unlock()
	h.transition(op, status, next)
}

func (h *Handler) grantPending(op string) {
	h.mu.Lock()
	cb := h.pending
	h.pending = nil
	h.mu.Unlock()
	invoke(h.opts.sink, "handler."+op+".on_granted", cb)
}

// abandon drops the callback of a canceled Request unless a later Request
// has replaced it.
func (h *Handler) abandon(gen uint64) {
	h.mu.Lock()
	if h.gen == gen {
		h.pending = nil
	}
	h.mu.Unlock()
}

func (h *Handler) dropPending() {
	h.mu.Lock()
	h.pending = nil
	h.mu.Unlock()
}

// transition replaces the dialog state, persists it and notifies
// observers.
func (h *Handler) transition(op string, status grant.Status, next UIState) {
	h.mu.Lock()
	prev := h.state
	h.state = next
	h.mu.Unlock()

	if next.Visible {
		h.keys.save(h.opts.store, next, "")
	} else if prev.Visible {
		h.keys.clear(h.opts.store)
	}
	if prev.Dialog() != next.Dialog() {
		h.opts.sink.Transition(diagnostics.Transition{
			HandlerID:  h.id,
			Op:         op,
			Permission: h.permission.Identifier(),
			Status:     status,
			From:       prev.Dialog().String(),
			To:         next.Dialog().String(),
			Time:       time.Now(),
		})
	}
	h.ui.set(next)
}

func (h *Handler) callCheck(ctx context.Context) grant.Status {
	return checkStatus(ctx, h.delegate, h.opts.sink, h.permission)
}

func (h *Handler) callRequest(ctx context.Context) grant.Status {
	return requestStatus(ctx, h.delegate, h.opts.sink, h.permission)
}

func checkStatus(ctx context.Context, d platform.Delegate, sink diagnostics.Sink, p grant.Permission) grant.Status {
	start := time.Now()
	s := d.CheckStatus(ctx, p)
	sink.DelegateCall(diagnostics.DelegateCall{Op: "check", Permission: p.Identifier(), Result: s, Duration: time.Since(start)})
	return s
}

func requestStatus(ctx context.Context, d platform.Delegate, sink diagnostics.Sink, p grant.Permission) grant.Status {
	start := time.Now()
	s := d.Request(ctx, p)
	sink.DelegateCall(diagnostics.DelegateCall{Op: "request", Permission: p.Identifier(), Result: s, Duration: time.Since(start)})
	return s
}

// invoke runs a caller callback, reporting a panic instead of letting it
// unwind through the handler.
func invoke(sink diagnostics.Sink, op string, cb func()) {
	if cb == nil {
		return
	}
	defer errors.Recover(sink, op)
	cb()
}
