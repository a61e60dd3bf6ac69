// Package sim runs a grantsim scenario against a scripted platform delegate.
package sim

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-drift/grant/cmd/grantsim/internal/config"
	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/grant"
	"github.com/go-drift/grant/pkg/handler"
	"github.com/go-drift/grant/pkg/platform"
	"github.com/go-drift/grant/pkg/store"
)

// Options are the collaborators a run uses.
type Options struct {
	Store store.Store
	Sink  diagnostics.Sink
	// Out receives one line per step. Nil discards.
	Out io.Writer
}

// StepResult is the observable state after a step.
type StepResult struct {
	Action   string
	UI       handler.UIState
	Statuses map[string]grant.Status
	// Current is the blocking permission of a group, if any.
	Current string
	Granted []string
}

// Result summarizes a run.
type Result struct {
	Steps []StepResult
	// Callbacks counts how often the granted callback ran.
	Callbacks int
	// Delegate is the fake used for the run, for inspection.
	Delegate *platform.Fake
}

// target is the handler flavor a scenario drives.
type target interface {
	request(ctx context.Context, onGranted func())
	confirmRationale(ctx context.Context)
	confirmSettings()
	dismiss()
	refresh(ctx context.Context)
	snapshot(action string) StepResult
}

// Run executes every step of sc in order.
func Run(ctx context.Context, sc *config.Scenario, opts Options) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	perms := make([]grant.Permission, len(sc.Permissions))
	byID := make(map[string]grant.Permission, len(perms))
	for i, spec := range sc.Permissions {
		perms[i] = spec.Permission()
		byID[spec.ID] = perms[i]
	}

	fake := platform.NewFake()
	for id, s := range sc.Initial {
		fake.SetStatus(byID[id], grant.Status(s))
	}
	for id, results := range sc.Results {
		for _, s := range results {
			fake.QueueResults(byID[id], grant.Status(s))
		}
	}

	handlerOpts := []handler.Option{
		handler.WithStore(opts.Store),
		handler.WithSink(opts.Sink),
		handler.WithStoreNamespace(sc.Store.Namespace),
		handler.WithResumeAfterRationale(sc.Resume),
	}
	if sc.Policy == "after_attempt" {
		handlerOpts = append(handlerOpts, handler.WithSettingsGuidePolicy(handler.SettingsGuideAfterAttempt))
	}

	build := func() (target, error) {
		if sc.Group {
			g, err := handler.NewGroup(fake, perms, handlerOpts...)
			if err != nil {
				return nil, err
			}
			return &groupTarget{g: g, msgs: sc.Messages}, nil
		}
		return &singleTarget{h: handler.New(fake, perms[0], handlerOpts...), msgs: sc.Messages}, nil
	}
	t, err := build()
	if err != nil {
		return nil, err
	}

	res := &Result{Delegate: fake}
	onGranted := func() { res.Callbacks++ }

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch step.Action {
		case config.ActionRequest:
			t.request(ctx, onGranted)
		case config.ActionConfirmRationale:
			t.confirmRationale(ctx)
		case config.ActionConfirmSettings:
			t.confirmSettings()
		case config.ActionDismiss:
			t.dismiss()
		case config.ActionRefresh:
			t.refresh(ctx)
		case config.ActionSetStatus:
			fake.SetStatus(byID[step.Permission], grant.Status(step.Status))
		case config.ActionRestart:
			if t, err = build(); err != nil {
				return res, err
			}
		}
		snap := t.snapshot(step.Action)
		res.Steps = append(res.Steps, snap)
		fmt.Fprintf(out, "%2d %-18s %s\n", i+1, step.Action, describe(snap))
	}
	fmt.Fprintf(out, "granted callbacks: %d, system dialogs: %d, settings opened: %d\n",
		res.Callbacks, fake.TotalRequestCalls(), fake.SettingsOpened())
	return res, nil
}

func describe(s StepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "dialog=%s", s.UI.Dialog())
	switch {
	case s.UI.ShowRationale:
		fmt.Fprintf(&b, " message=%q", s.UI.RationaleMessage)
	case s.UI.ShowSettingsGuide:
		fmt.Fprintf(&b, " message=%q", s.UI.SettingsMessage)
	}
	if s.Current != "" {
		fmt.Fprintf(&b, " current=%s", s.Current)
	}
	if len(s.Granted) > 0 {
		fmt.Fprintf(&b, " granted=%s", strings.Join(s.Granted, ","))
	}
	return b.String()
}

type singleTarget struct {
	h    *handler.Handler
	msgs config.Messages
}

func (s *singleTarget) request(ctx context.Context, onGranted func()) {
	id := s.h.Permission().Identifier()
	s.h.Request(ctx, s.msgs.Rationale[id], s.msgs.Settings[id], onGranted)
}

func (s *singleTarget) confirmRationale(ctx context.Context) { s.h.OnRationaleConfirmed(ctx) }
func (s *singleTarget) confirmSettings()                     { s.h.OnSettingsConfirmed() }
func (s *singleTarget) dismiss()                             { s.h.OnDismiss() }
func (s *singleTarget) refresh(ctx context.Context)          { s.h.RefreshStatus(ctx) }

func (s *singleTarget) snapshot(action string) StepResult {
	id := s.h.Permission().Identifier()
	r := StepResult{Action: action, UI: s.h.UIState(), Statuses: map[string]grant.Status{}}
	if st := s.h.Status(); st != "" {
		r.Statuses[id] = st
	}
	if r.Statuses[id] == grant.Granted {
		r.Granted = []string{id}
	}
	return r
}

type groupTarget struct {
	g    *handler.GroupHandler
	msgs config.Messages
}

func (g *groupTarget) request(ctx context.Context, onGranted func()) {
	g.g.Request(ctx, g.msgs.Rationale, g.msgs.Settings, onGranted)
}

func (g *groupTarget) confirmRationale(ctx context.Context) { g.g.OnRationaleConfirmed(ctx) }
func (g *groupTarget) confirmSettings()                     { g.g.OnSettingsConfirmed() }
func (g *groupTarget) dismiss()                             { g.g.OnDismiss() }
func (g *groupTarget) refresh(ctx context.Context)          { g.g.RefreshAllStatuses(ctx) }

func (g *groupTarget) snapshot(action string) StepResult {
	st := g.g.State()
	r := StepResult{
		Action:   action,
		UI:       st.UIState,
		Statuses: g.g.Statuses(),
		Granted:  grant.Identifiers(st.GrantedGrants),
	}
	if st.CurrentGrant != nil {
		r.Current = st.CurrentGrant.Identifier()
	}
	return r
}
