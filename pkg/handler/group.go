package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/grant"
	"github.com/go-drift/grant/pkg/platform"
)

var (
	// ErrNoPermissions is returned when a group is created without
	// permissions.
	ErrNoPermissions = stderrors.New("handler: group needs at least one permission")

	// ErrDuplicatePermission is returned when two permissions of a group
	// share an identifier.
	ErrDuplicatePermission = stderrors.New("handler: duplicate permission in group")
)

// GroupHandler requests an ordered list of permissions one at a time and
// stops at the first one the user has not granted.
//
// Message maps passed to Request are keyed by permission identifier.
type GroupHandler struct {
	id          string
	permissions []grant.Permission
	delegate    platform.Delegate
	opts        options
	keys        stateKeys

	statuses *Observable[map[string]grant.Status]
	state    *Observable[GroupState]

	mu             sync.Mutex
	current        GroupState
	known          map[string]grant.Status
	pending        func()
	gen            uint64
	rationaleMsgs  map[string]string
	settingsMsgs   map[string]string
	shownRationale map[string]bool
	attempted      bool
}

// NewGroup creates a GroupHandler over permissions, which are requested in
// the given order. Like New it does not call the delegate.
func NewGroup(delegate platform.Delegate, permissions []grant.Permission, opts ...Option) (*GroupHandler, error) {
	if len(permissions) == 0 {
		return nil, ErrNoPermissions
	}
	seen := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		if seen[p.Identifier()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePermission, p.Identifier())
		}
		seen[p.Identifier()] = true
	}

	o := newOptions(opts)
	g := &GroupHandler{
		id:             uuid.NewString(),
		permissions:    slices.Clone(permissions),
		delegate:       delegate,
		opts:           o,
		keys:           newStateKeys(groupKeyBase),
		known:          make(map[string]grant.Status, len(permissions)),
		shownRationale: make(map[string]bool),
	}
	g.current.TotalGrants = len(permissions)
	if s, currentID, ok := g.keys.restore(o.store); ok {
		if p := g.lookup(currentID); p != nil {
			g.current.UIState = s
			g.current.CurrentGrant = p
			g.rationaleMsgs = map[string]string{currentID: s.RationaleMessage}
			g.settingsMsgs = map[string]string{currentID: s.SettingsMessage}
		}
	}
	g.statuses = newObservable(map[string]grant.Status{}, func(a, b map[string]grant.Status) bool {
		return maps.Equal(a, b)
	}, o.dispatch)
	g.state = newObservable(g.current.clone(), groupStateEqual, o.dispatch)
	return g, nil
}

// ID returns the identifier used for this group in diagnostics.
func (g *GroupHandler) ID() string { return g.id }

// Permissions returns the group's permissions in request order.
func (g *GroupHandler) Permissions() []grant.Permission { return slices.Clone(g.permissions) }

// Statuses returns the last known status of each permission that has been
// read, keyed by identifier.
func (g *GroupHandler) Statuses() map[string]grant.Status { return maps.Clone(g.statuses.Get()) }

// State returns the current dialog state and progress.
func (g *GroupHandler) State() GroupState { return g.state.Get().clone() }

// StatusesObservable publishes the per-permission statuses. Observers must
// not modify the map.
func (g *GroupHandler) StatusesObservable() *Observable[map[string]grant.Status] { return g.statuses }

// StateObservable publishes dialog and progress changes. Observers must not
// modify GrantedGrants.
func (g *GroupHandler) StateObservable() *Observable[GroupState] { return g.state }

// Request walks the permissions in order and calls onAllGranted once every
// one of them is granted. It asks the system for the first undetermined
// permission and stops at the first one that is not granted, showing the
// rationale or settings guide for it when appropriate. Later permissions
// are never requested in that call.
func (g *GroupHandler) Request(ctx context.Context, rationaleMsgs, settingsMsgs map[string]string, onAllGranted func()) {
	g.mu.Lock()
	if ctx.Err() != nil {
		g.pending = nil
		g.mu.Unlock()
		return
	}
	g.gen++
	gen := g.gen
	g.pending = onAllGranted
	g.rationaleMsgs = maps.Clone(rationaleMsgs)
	g.settingsMsgs = maps.Clone(settingsMsgs)
	g.mu.Unlock()

	g.run(ctx, "request")
	if ctx.Err() != nil {
		g.mu.Lock()
		if g.gen == gen {
			g.pending = nil
		}
		g.mu.Unlock()
	}
}

func (g *GroupHandler) run(ctx context.Context, op string) {
	for _, p := range g.permissions {
		status, ok := g.currentStatus(ctx, p)
		if !ok {
			return
		}
		fresh := false
		if status == grant.NotDetermined {
			status = requestStatus(ctx, g.delegate, g.opts.sink, p)
			if ctx.Err() != nil {
				return
			}
			g.setStatus(p, status)
			fresh = true
		}
		if status == grant.Granted {
			g.markGranted(op, p)
			continue
		}

		g.mu.Lock()
		allowed := g.opts.policy.allows(g.shownRationale[p.Identifier()], g.attempted)
		g.attempted = true
		g.mu.Unlock()
		g.block(op, p, status, fresh, allowed)
		return
	}

	g.mu.Lock()
	g.attempted = true
	g.mu.Unlock()
	g.complete(op)
}

// OnRationaleConfirmed asks the system again for the permission that
// stopped the sequence. onAllGranted runs only if that grant completes the
// group, or, with WithResumeAfterRationale, once the resumed sequence does.
func (g *GroupHandler) OnRationaleConfirmed(ctx context.Context) {
	const op = "rationale_confirmed"

	g.mu.Lock()
	p := g.current.CurrentGrant
	if p != nil {
		g.shownRationale[p.Identifier()] = true
	}
	g.mu.Unlock()
	if p == nil {
		return
	}

	status := requestStatus(ctx, g.delegate, g.opts.sink, p)
	if ctx.Err() != nil {
		return
	}
	g.setStatus(p, status)

	switch status {
	case grant.Granted:
		g.markGranted(op, p)
		switch {
		case g.allGranted():
			g.complete(op)
		case g.opts.resume:
			g.transition(op, p, status, func(s *GroupState) {
				s.UIState = UIState{}
				s.CurrentGrant = nil
			})
			g.run(ctx, op)
		default:
			g.dropPending()
			g.transition(op, p, status, func(s *GroupState) {
				s.UIState = UIState{}
				s.CurrentGrant = nil
			})
		}
	case grant.DeniedAlways:
		g.mu.Lock()
		msg := g.opts.settingsText(g.settingsMsgs[p.Identifier()])
		g.mu.Unlock()
		g.transition(op, p, status, func(s *GroupState) { s.UIState = settingsState(msg) })
	default:
		g.dropPending()
		g.transition(op, p, status, func(s *GroupState) { s.UIState = UIState{} })
	}
}

// OnSettingsConfirmed opens the system settings, hides the dialog and
// forgets the pending callback and the blocking permission.
func (g *GroupHandler) OnSettingsConfirmed() {
	g.mu.Lock()
	p := g.current.CurrentGrant
	g.mu.Unlock()

	g.delegate.OpenSettings()
	call := diagnostics.DelegateCall{Op: "open_settings"}
	if p != nil {
		call.Permission = p.Identifier()
	}
	g.opts.sink.DelegateCall(call)
	g.reset("settings_confirmed")
}

// OnDismiss hides the dialog and forgets the pending callback and the
// blocking permission.
func (g *GroupHandler) OnDismiss() {
	g.reset("dismiss")
}

// RefreshAllStatuses reads every status again and rebuilds GrantedGrants
// from the result. The dialog is left as it is.
func (g *GroupHandler) RefreshAllStatuses(ctx context.Context) map[string]grant.Status {
	fresh := make(map[string]grant.Status, len(g.permissions))
	var granted []grant.Permission
	for _, p := range g.permissions {
		s := checkStatus(ctx, g.delegate, g.opts.sink, p)
		if ctx.Err() != nil {
			return g.Statuses()
		}
		fresh[p.Identifier()] = s
		if s == grant.Granted {
			granted = append(granted, p)
		}
	}

	g.mu.Lock()
	maps.Copy(g.known, fresh)
	all := maps.Clone(g.known)
	g.current.GrantedGrants = granted
	snapshot := g.current.clone()
	g.mu.Unlock()

	g.statuses.set(all)
	g.state.set(snapshot)
	return maps.Clone(all)
}

func (g *GroupHandler) currentStatus(ctx context.Context, p grant.Permission) (grant.Status, bool) {
	g.mu.Lock()
	s, ok := g.known[p.Identifier()]
	g.mu.Unlock()
	if ok {
		return s, true
	}
	s = checkStatus(ctx, g.delegate, g.opts.sink, p)
	if ctx.Err() != nil {
		return "", false
	}
	g.setStatus(p, s)
	return s, true
}

func (g *GroupHandler) setStatus(p grant.Permission, s grant.Status) {
	g.mu.Lock()
	g.known[p.Identifier()] = s
	all := maps.Clone(g.known)
	g.mu.Unlock()
	g.statuses.set(all)
}

func (g *GroupHandler) markGranted(op string, p grant.Permission) {
	g.mu.Lock()
	already := g.current.IsGranted(p)
	g.mu.Unlock()
	if already {
		return
	}
	g.transition(op, p, grant.Granted, func(s *GroupState) {
		s.GrantedGrants = append(slices.Clone(s.GrantedGrants), p)
	})
}

func (g *GroupHandler) allGranted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.permissions {
		if g.known[p.Identifier()] != grant.Granted {
			return false
		}
	}
	return true
}

func (g *GroupHandler) block(op string, p grant.Permission, status grant.Status, fresh, guideAllowed bool) {
	g.mu.Lock()
	id := p.Identifier()
	next := dialogFor(status, fresh, guideAllowed,
		g.opts.rationaleText(g.rationaleMsgs[id]), g.opts.settingsText(g.settingsMsgs[id]))
	if !next.Visible {
		g.pending = nil
	}
	g.mu.Unlock()

	g.transition(op, p, status, func(s *GroupState) {
		s.UIState = next
		s.CurrentGrant = p
	})
}

func (g *GroupHandler) complete(op string) {
	g.transition(op, nil, grant.Granted, func(s *GroupState) {
		s.UIState = UIState{}
		s.CurrentGrant = nil
	})
	g.mu.Lock()
	cb := g.pending
	g.pending = nil
	g.mu.Unlock()
	invoke(g.opts.sink, "group."+op+".on_all_granted", cb)
}

func (g *GroupHandler) reset(op string) {
	g.mu.Lock()
	p := g.current.CurrentGrant
	g.pending = nil
	g.mu.Unlock()
	var status grant.Status
	if p != nil {
		status = g.Statuses()[p.Identifier()]
	}
	g.transition(op, p, status, func(s *GroupState) {
		s.UIState = UIState{}
		s.CurrentGrant = nil
	})
}

func (g *GroupHandler) dropPending() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}

// transition applies mutate to the group state, persists the dialog part
// and notifies observers.
func (g *GroupHandler) transition(op string, p grant.Permission, status grant.Status, mutate func(*GroupState)) {
	g.mu.Lock()
	prev := g.current.clone()
	mutate(&g.current)
	next := g.current.clone()
	g.mu.Unlock()

	if next.Visible {
		currentID := ""
		if next.CurrentGrant != nil {
			currentID = next.CurrentGrant.Identifier()
		}
		g.keys.save(g.opts.store, next.UIState, currentID)
	} else if prev.Visible {
		g.keys.clear(g.opts.store)
	}
	if prev.Dialog() != next.Dialog() {
		t := diagnostics.Transition{
			HandlerID: g.id,
			Op:        op,
			Status:    status,
			From:      prev.Dialog().String(),
			To:        next.Dialog().String(),
			Time:      time.Now(),
		}
		if p != nil {
			t.Permission = p.Identifier()
		}
		g.opts.sink.Transition(t)
	}
	g.state.set(next)
}

func (g *GroupHandler) lookup(id string) grant.Permission {
	if id == "" {
		return nil
	}
	for _, p := range g.permissions {
		if p.Identifier() == id {
			return p
		}
	}
	return nil
}
