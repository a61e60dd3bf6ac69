package platform

import (
	"context"
	"sync"

	"github.com/go-drift/grant/pkg/grant"
)

// Fake is an in-memory Delegate with scripted answers. It records every call
// and is safe for concurrent use.
//
// CheckStatus returns the stored status (grant.NotDetermined by default).
// Request returns grant.Granted untouched when the permission is already
// granted; otherwise it consumes the next queued result, stores it and returns
// it. With nothing queued it returns the stored status, except that a
// NotDetermined permission resolves to grant.Denied (the user closed the
// dialog).
type Fake struct {
	mu             sync.Mutex
	statuses       map[string]grant.Status
	queued         map[string][]grant.Status
	checkCalls     map[string]int
	requestCalls   map[string]int
	requestOrder   []string
	settingsOpened int
	requestHook    func(ctx context.Context, p grant.Permission)
}

var _ Delegate = (*Fake)(nil)

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{
		statuses:     make(map[string]grant.Status),
		queued:       make(map[string][]grant.Status),
		checkCalls:   make(map[string]int),
		requestCalls: make(map[string]int),
	}
}

// SetStatus sets the status CheckStatus reports for p, as if changed outside
// the app.
func (f *Fake) SetStatus(p grant.Permission, s grant.Status) *Fake {
	f.mu.Lock()
	f.statuses[p.Identifier()] = s
	f.mu.Unlock()
	return f
}

// QueueResults appends answers for future Request calls on p.
func (f *Fake) QueueResults(p grant.Permission, results ...grant.Status) *Fake {
	f.mu.Lock()
	f.queued[p.Identifier()] = append(f.queued[p.Identifier()], results...)
	f.mu.Unlock()
	return f
}

// SetRequestHook installs fn to run at the start of every Request call,
// outside the Fake's lock. Tests use it to block or to observe ordering.
func (f *Fake) SetRequestHook(fn func(ctx context.Context, p grant.Permission)) {
	f.mu.Lock()
	f.requestHook = fn
	f.mu.Unlock()
}

// Status returns the stored status for p.
func (f *Fake) Status(p grant.Permission) grant.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusLocked(p.Identifier())
}

func (f *Fake) statusLocked(id string) grant.Status {
	if s, ok := f.statuses[id]; ok {
		return s
	}
	return grant.NotDetermined
}

// CheckCalls returns how many times CheckStatus was called for p.
func (f *Fake) CheckCalls(p grant.Permission) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkCalls[p.Identifier()]
}

// RequestCalls returns how many times Request was called for p.
func (f *Fake) RequestCalls(p grant.Permission) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requestCalls[p.Identifier()]
}

// TotalRequestCalls returns the number of Request calls across permissions.
func (f *Fake) TotalRequestCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requestOrder)
}

// RequestOrder returns the identifiers passed to Request, in call order.
func (f *Fake) RequestOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requestOrder...)
}

// SettingsOpened returns how many times OpenSettings was called.
func (f *Fake) SettingsOpened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settingsOpened
}

func (f *Fake) CheckStatus(ctx context.Context, p grant.Permission) grant.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := p.Identifier()
	f.checkCalls[id]++
	return f.statusLocked(id)
}

func (f *Fake) Request(ctx context.Context, p grant.Permission) grant.Status {
	f.mu.Lock()
	hook := f.requestHook
	id := p.Identifier()
	f.requestCalls[id]++
	f.requestOrder = append(f.requestOrder, id)
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, p)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.statusLocked(id)
	if current == grant.Granted {
		return current
	}
	if q := f.queued[id]; len(q) > 0 {
		f.queued[id] = q[1:]
		f.statuses[id] = q[0]
		return q[0]
	}
	if current == grant.NotDetermined {
		f.statuses[id] = grant.Denied
		return grant.Denied
	}
	return current
}

func (f *Fake) OpenSettings() {
	f.mu.Lock()
	f.settingsOpened++
	f.mu.Unlock()
}
