package handler

import (
	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/platform"
	"github.com/go-drift/grant/pkg/store"
)

// Generic messages used when a Request call passes an empty message.
const (
	DefaultRationaleMessage = "This feature needs your permission to work. Please allow access to continue."
	DefaultSettingsMessage  = "Permission was denied. You can enable it in Settings."
)

// SettingsGuidePolicy decides when a known hard denial opens the settings
// guide.
type SettingsGuidePolicy int

const (
	// SettingsGuideUnlessFresh shows the guide for every known hard denial.
	// Only a hard denial returned by the system dialog during the same call
	// is suppressed.
	SettingsGuideUnlessFresh SettingsGuidePolicy = iota

	// SettingsGuideAfterAttempt also requires that the rationale was shown
	// or an earlier Request was made on the same handler. A hard denial seen
	// on the very first Request of a session then leaves the dialog hidden.
	SettingsGuideAfterAttempt
)

func (p SettingsGuidePolicy) String() string {
	if p == SettingsGuideAfterAttempt {
		return "after_attempt"
	}
	return "unless_fresh"
}

func (p SettingsGuidePolicy) allows(shownRationale, attempted bool) bool {
	if p == SettingsGuideAfterAttempt {
		return shownRationale || attempted
	}
	return true
}

type options struct {
	store        store.Store
	sink         diagnostics.Sink
	policy       SettingsGuidePolicy
	rationaleMsg string
	settingsMsg  string
	namespace    string
	dispatch     platform.Dispatcher
	resume       bool
}

// Option configures a Handler or GroupHandler.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		rationaleMsg: DefaultRationaleMessage,
		settingsMsg:  DefaultSettingsMessage,
		dispatch:     platform.Inline,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.store = store.OrNop(o.store)
	if o.namespace != "" {
		o.store = store.Prefixed{Store: o.store, Prefix: o.namespace + "."}
	}
	o.sink = diagnostics.OrNop(o.sink)
	if o.dispatch == nil {
		o.dispatch = platform.Inline
	}
	return o
}

func (o options) rationaleText(msg string) string {
	if msg == "" {
		return o.rationaleMsg
	}
	return msg
}

func (o options) settingsText(msg string) string {
	if msg == "" {
		return o.settingsMsg
	}
	return msg
}

// WithStore persists dialog state to s so it survives handler recreation.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithSink sends transitions, delegate calls and recovered panics to s.
func WithSink(s diagnostics.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithSettingsGuidePolicy sets when the settings guide may open.
// The default is SettingsGuideUnlessFresh.
func WithSettingsGuidePolicy(p SettingsGuidePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithFallbackMessages replaces the generic dialog messages. Empty
// arguments keep the defaults.
func WithFallbackMessages(rationale, settings string) Option {
	return func(o *options) {
		if rationale != "" {
			o.rationaleMsg = rationale
		}
		if settings != "" {
			o.settingsMsg = settings
		}
	}
}

// WithStoreNamespace prefixes the store keys. Handlers sharing a store need
// distinct namespaces.
func WithStoreNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithDispatch delivers observable updates through d, for example
// platform.DispatchOrRun to reach the UI thread.
func WithDispatch(d platform.Dispatcher) Option {
	return func(o *options) { o.dispatch = d }
}

// WithResumeAfterRationale makes a GroupHandler continue its sequence when a
// rationale confirmation grants the blocking permission. By default the
// group stops and waits for the next Request. Single handlers ignore it.
func WithResumeAfterRationale(resume bool) Option {
	return func(o *options) { o.resume = resume }
}
