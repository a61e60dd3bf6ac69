package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/grant"
	"github.com/go-drift/grant/pkg/platform"
	"github.com/go-drift/grant/pkg/store"
)

var health = grant.NewCustom("health_steps", []string{"android.permission.ACTIVITY_RECOGNITION"}, "NSHealthShareUsageDescription")

func newGroup(t *testing.T, fake *platform.Fake, perms []grant.Permission, opts ...Option) *GroupHandler {
	t.Helper()
	g, err := NewGroup(fake, perms, opts...)
	require.NoError(t, err)
	return g
}

func TestNewGroupRejectsEmptyAndDuplicates(t *testing.T) {
	_, err := NewGroup(platform.NewFake(), nil)
	assert.ErrorIs(t, err, ErrNoPermissions)

	_, err = NewGroup(platform.NewFake(), []grant.Permission{grant.Camera, grant.Custom{ID: "camera"}})
	assert.ErrorIs(t, err, ErrDuplicatePermission)
}

func TestGroupAllGranted(t *testing.T) {
	fake := platform.NewFake().
		SetStatus(grant.Camera, grant.Granted).
		QueueResults(grant.Microphone, grant.Granted).
		QueueResults(health, grant.Granted)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone, health})

	var calls counter
	g.Request(context.Background(), nil, nil, calls.inc)

	assert.Equal(t, 1, calls.get())
	st := g.State()
	assert.True(t, st.AllGranted())
	assert.Nil(t, st.CurrentGrant)
	assert.Equal(t, []string{"camera", "microphone", "health_steps"}, grant.Identifiers(st.GrantedGrants))
	assert.Equal(t, []string{"microphone", "health_steps"}, fake.RequestOrder(), "granted permissions are not requested")
}

func TestGroupShortCircuitsOnFreshDenial(t *testing.T) {
	fake := platform.NewFake().QueueResults(grant.Camera, grant.Denied)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone})

	var calls counter
	g.Request(context.Background(), nil, nil, calls.inc)

	assert.Zero(t, calls.get())
	assert.Zero(t, fake.RequestCalls(grant.Microphone))
	assert.Zero(t, fake.CheckCalls(grant.Microphone), "later permissions are not even read")
	st := g.State()
	assert.False(t, st.Visible, "no in-app dialog right after the system dialog")
	require.NotNil(t, st.CurrentGrant)
	assert.Equal(t, "camera", st.CurrentGrant.Identifier())
	assert.Empty(t, st.GrantedGrants)
	assert.Equal(t, 2, st.TotalGrants)
}

func TestGroupKnownDenialShowsDialogForBlockingPermission(t *testing.T) {
	fake := platform.NewFake().
		SetStatus(grant.Camera, grant.Granted).
		SetStatus(grant.Microphone, grant.Denied).
		SetStatus(grant.Location, grant.DeniedAlways)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone, grant.Location})

	rationale := map[string]string{"microphone": "we record voice notes"}
	g.Request(context.Background(), rationale, nil, nil)

	st := g.State()
	assert.Equal(t, rationaleState("we record voice notes"), st.UIState)
	assert.Equal(t, "microphone", st.CurrentGrant.Identifier())
	assert.Equal(t, []string{"camera"}, grant.Identifiers(st.GrantedGrants))
	assert.Zero(t, fake.TotalRequestCalls())
	assert.Zero(t, fake.CheckCalls(grant.Location))
}

func TestGroupRationaleGrantDoesNotResumeByDefault(t *testing.T) {
	ctx := context.Background()
	fake := platform.NewFake().
		SetStatus(grant.Camera, grant.Denied).
		QueueResults(grant.Camera, grant.Granted)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone})

	var calls counter
	g.Request(ctx, nil, nil, calls.inc)
	require.True(t, g.State().ShowRationale)

	g.OnRationaleConfirmed(ctx)

	st := g.State()
	assert.False(t, st.Visible)
	assert.Nil(t, st.CurrentGrant)
	assert.Equal(t, []string{"camera"}, grant.Identifiers(st.GrantedGrants))
	assert.Zero(t, fake.RequestCalls(grant.Microphone))
	assert.Zero(t, calls.get())

	// Calling Request again continues where it stopped.
	fake.QueueResults(grant.Microphone, grant.Granted)
	g.Request(ctx, nil, nil, calls.inc)
	assert.Equal(t, 1, calls.get())
	assert.Equal(t, 1, fake.RequestCalls(grant.Camera))
}

func TestGroupRationaleGrantCompletesLastPermission(t *testing.T) {
	ctx := context.Background()
	fake := platform.NewFake().
		SetStatus(grant.Camera, grant.Granted).
		SetStatus(grant.Microphone, grant.Denied).
		QueueResults(grant.Microphone, grant.Granted)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone})

	var calls counter
	g.Request(ctx, nil, nil, calls.inc)
	g.OnRationaleConfirmed(ctx)

	assert.Equal(t, 1, calls.get())
	assert.True(t, g.State().AllGranted())
}

func TestGroupResumeAfterRationale(t *testing.T) {
	ctx := context.Background()
	fake := platform.NewFake().
		SetStatus(grant.Camera, grant.Denied).
		QueueResults(grant.Camera, grant.Granted).
		QueueResults(grant.Microphone, grant.Granted)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone}, WithResumeAfterRationale(true))

	var calls counter
	g.Request(ctx, nil, nil, calls.inc)
	g.OnRationaleConfirmed(ctx)

	assert.Equal(t, 1, calls.get())
	assert.Equal(t, []string{"camera", "microphone"}, fake.RequestOrder())
	assert.True(t, g.State().AllGranted())
}

func TestGroupRationaleHardDenialShowsSettings(t *testing.T) {
	ctx := context.Background()
	fake := platform.NewFake().
		SetStatus(grant.Camera, grant.Denied).
		QueueResults(grant.Camera, grant.DeniedAlways)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone})

	g.Request(ctx, nil, map[string]string{"camera": "enable camera"}, nil)
	g.OnRationaleConfirmed(ctx)

	st := g.State()
	assert.Equal(t, settingsState("enable camera"), st.UIState)
	assert.Equal(t, "camera", st.CurrentGrant.Identifier())

	g.OnSettingsConfirmed()
	st = g.State()
	assert.False(t, st.Visible)
	assert.Nil(t, st.CurrentGrant)
	assert.Equal(t, 1, fake.SettingsOpened())
}

func TestGroupRationaleSoftDenialKeepsCurrentGrant(t *testing.T) {
	ctx := context.Background()
	fake := platform.NewFake().SetStatus(grant.Camera, grant.Denied)
	g := newGroup(t, fake, []grant.Permission{grant.Camera})

	g.Request(ctx, nil, nil, nil)
	g.OnRationaleConfirmed(ctx)

	st := g.State()
	assert.False(t, st.Visible)
	assert.Equal(t, "camera", st.CurrentGrant.Identifier())
}

func TestGroupDismiss(t *testing.T) {
	ctx := context.Background()
	fake := platform.NewFake().SetStatus(grant.Camera, grant.Denied)
	g := newGroup(t, fake, []grant.Permission{grant.Camera})

	var calls counter
	g.Request(ctx, nil, nil, calls.inc)
	g.OnDismiss()

	st := g.State()
	assert.False(t, st.Visible)
	assert.Nil(t, st.CurrentGrant)

	// Nothing to confirm once dismissed.
	g.OnRationaleConfirmed(ctx)
	assert.Zero(t, fake.TotalRequestCalls())
	assert.Zero(t, calls.get())
}

func TestGroupRefreshReplacesGrantedGrants(t *testing.T) {
	ctx := context.Background()
	fake := platform.NewFake().
		SetStatus(grant.Camera, grant.Granted).
		SetStatus(grant.Microphone, grant.Denied)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone})

	g.Request(ctx, nil, nil, nil)
	require.Equal(t, []string{"camera"}, grant.Identifiers(g.State().GrantedGrants))

	fake.SetStatus(grant.Camera, grant.DeniedAlways).SetStatus(grant.Microphone, grant.Granted)
	statuses := g.RefreshAllStatuses(ctx)

	assert.Equal(t, map[string]grant.Status{"camera": grant.DeniedAlways, "microphone": grant.Granted}, statuses)
	assert.Equal(t, statuses, g.Statuses())
	st := g.State()
	assert.Equal(t, []string{"microphone"}, grant.Identifiers(st.GrantedGrants))
	assert.True(t, st.ShowRationale, "refresh leaves the dialog alone")
}

func TestGroupStrictPolicy(t *testing.T) {
	ctx := context.Background()
	fake := platform.NewFake().SetStatus(grant.Camera, grant.DeniedAlways)
	g := newGroup(t, fake, []grant.Permission{grant.Camera}, WithSettingsGuidePolicy(SettingsGuideAfterAttempt))

	g.Request(ctx, nil, nil, nil)
	assert.False(t, g.State().Visible)

	g.Request(ctx, nil, nil, nil)
	assert.True(t, g.State().ShowSettingsGuide)
}

func TestGroupCanceledRequestDropsPendingCallback(t *testing.T) {
	fake := platform.NewFake().SetStatus(grant.Camera, grant.Denied)
	g := newGroup(t, fake, []grant.Permission{grant.Camera})

	var first, second counter
	g.Request(context.Background(), nil, nil, first.inc)
	require.True(t, g.State().ShowRationale)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g.Request(ctx, nil, nil, second.inc)

	fake.QueueResults(grant.Camera, grant.Granted)
	g.OnRationaleConfirmed(context.Background())

	assert.Zero(t, first.get())
	assert.Zero(t, second.get())
	assert.True(t, g.State().AllGranted())
	assert.False(t, g.State().Visible)
}

func TestGroupPersistence(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	fake := platform.NewFake().SetStatus(grant.Camera, grant.Granted).SetStatus(health, grant.Denied)
	perms := []grant.Permission{grant.Camera, health}

	g := newGroup(t, fake, perms, WithStore(mem))
	g.Request(ctx, map[string]string{"health_steps": "count steps"}, nil, nil)

	v, ok := mem.RestoreState("grant_group_current_grant")
	require.True(t, ok)
	assert.Equal(t, "health_steps", v)

	restored := newGroup(t, fake, perms, WithStore(mem))
	st := restored.State()
	assert.Equal(t, rationaleState("count steps"), st.UIState)
	assert.Equal(t, "health_steps", st.CurrentGrant.Identifier())

	restored.OnDismiss()
	assert.Zero(t, mem.Len())
}

func TestGroupObservers(t *testing.T) {
	fake := platform.NewFake().QueueResults(grant.Camera, grant.Granted).QueueResults(grant.Microphone, grant.Granted)
	g := newGroup(t, fake, []grant.Permission{grant.Camera, grant.Microphone})

	var progress []int
	g.StateObservable().Listen(func(s GroupState) { progress = append(progress, len(s.GrantedGrants)) })
	var last map[string]grant.Status
	g.StatusesObservable().Listen(func(m map[string]grant.Status) { last = m })

	g.Request(context.Background(), nil, nil, nil)

	assert.Equal(t, []int{0, 1, 2}, progress)
	assert.Equal(t, map[string]grant.Status{"camera": grant.Granted, "microphone": grant.Granted}, last)
}

func TestGroupDiagnostics(t *testing.T) {
	ctx := context.Background()
	rec := &diagnostics.Recorder{}
	fake := platform.NewFake().SetStatus(grant.Camera, grant.Denied)
	g := newGroup(t, fake, []grant.Permission{grant.Camera}, WithSink(rec))

	g.Request(ctx, nil, nil, nil)
	g.OnDismiss()

	transitions := rec.Transitions()
	require.Len(t, transitions, 2)
	assert.Equal(t, "rationale", transitions[0].To)
	assert.Equal(t, "camera", transitions[0].Permission)
	assert.Equal(t, "dismiss", transitions[1].Op)
	assert.Equal(t, g.ID(), transitions[1].HandlerID)
}
