package handler

import (
	"slices"
	"strconv"

	"github.com/go-drift/grant/pkg/grant"
	"github.com/go-drift/grant/pkg/store"
)

// Dialog is the in-app dialog a handler currently asks the UI to show.
type Dialog int

const (
	DialogHidden Dialog = iota
	DialogRationale
	DialogSettings
)

func (d Dialog) String() string {
	switch d {
	case DialogRationale:
		return "rationale"
	case DialogSettings:
		return "settings"
	default:
		return "hidden"
	}
}

// UIState is what the rendering layer draws. ShowRationale and
// ShowSettingsGuide are never both true, and Visible is false when neither is.
type UIState struct {
	Visible           bool
	ShowRationale     bool
	ShowSettingsGuide bool
	// RationaleMessage is set while the rationale dialog is shown.
	RationaleMessage string
	// SettingsMessage is set while the settings guide is shown.
	SettingsMessage string
}

// Dialog returns which dialog s describes.
func (s UIState) Dialog() Dialog {
	switch {
	case s.ShowRationale:
		return DialogRationale
	case s.ShowSettingsGuide:
		return DialogSettings
	default:
		return DialogHidden
	}
}

func (s UIState) valid() bool {
	if s.ShowRationale && s.ShowSettingsGuide {
		return false
	}
	return s.Visible == (s.ShowRationale || s.ShowSettingsGuide)
}

func rationaleState(msg string) UIState {
	return UIState{Visible: true, ShowRationale: true, RationaleMessage: msg}
}

func settingsState(msg string) UIState {
	return UIState{Visible: true, ShowSettingsGuide: true, SettingsMessage: msg}
}

// dialogFor decides which dialog a blocking status produces. A denial that
// the system dialog returned in the same call never opens an in-app dialog.
func dialogFor(status grant.Status, fresh, guideAllowed bool, rationaleMsg, settingsMsg string) UIState {
	if fresh {
		return UIState{}
	}
	switch status {
	case grant.Denied:
		return rationaleState(rationaleMsg)
	case grant.DeniedAlways:
		if guideAllowed {
			return settingsState(settingsMsg)
		}
	}
	return UIState{}
}

// GroupState is the UI state of a GroupHandler together with its progress.
type GroupState struct {
	UIState
	// CurrentGrant is the permission that stopped the last sequence, or nil.
	CurrentGrant grant.Permission
	// GrantedGrants lists the permissions granted so far, in the order they
	// were recorded.
	GrantedGrants []grant.Permission
	// TotalGrants is the number of permissions in the group.
	TotalGrants int
}

// IsGranted reports whether p is in GrantedGrants.
func (s GroupState) IsGranted(p grant.Permission) bool {
	return slices.ContainsFunc(s.GrantedGrants, func(g grant.Permission) bool {
		return grant.Same(g, p)
	})
}

// AllGranted reports whether every permission of the group has been granted.
func (s GroupState) AllGranted() bool {
	return s.TotalGrants > 0 && len(s.GrantedGrants) == s.TotalGrants
}

func (s GroupState) clone() GroupState {
	s.GrantedGrants = slices.Clone(s.GrantedGrants)
	return s
}

func groupStateEqual(a, b GroupState) bool {
	if a.UIState != b.UIState || a.TotalGrants != b.TotalGrants {
		return false
	}
	if (a.CurrentGrant == nil) != (b.CurrentGrant == nil) {
		return false
	}
	if a.CurrentGrant != nil && !grant.Same(a.CurrentGrant, b.CurrentGrant) {
		return false
	}
	return slices.Equal(grant.Identifiers(a.GrantedGrants), grant.Identifiers(b.GrantedGrants))
}

// stateKeys are the store keys one handler writes its dialog state under.
type stateKeys struct {
	visible      string
	rationale    string
	settings     string
	rationaleMsg string
	settingsMsg  string
	current      string
}

const (
	singleKeyBase = "grant_handler"
	groupKeyBase  = "grant_group"
)

func newStateKeys(prefix string) stateKeys {
	return stateKeys{
		visible:      prefix + "_is_visible",
		rationale:    prefix + "_show_rationale",
		settings:     prefix + "_show_settings",
		rationaleMsg: prefix + "_rationale_message",
		settingsMsg:  prefix + "_settings_message",
		current:      prefix + "_current_grant",
	}
}

// save writes s. current is only written for groups.
func (k stateKeys) save(st store.Store, s UIState, current string) {
	st.SaveState(k.visible, strconv.FormatBool(s.Visible))
	st.SaveState(k.rationale, strconv.FormatBool(s.ShowRationale))
	st.SaveState(k.settings, strconv.FormatBool(s.ShowSettingsGuide))
	st.SaveState(k.rationaleMsg, s.RationaleMessage)
	st.SaveState(k.settingsMsg, s.SettingsMessage)
	if current != "" {
		st.SaveState(k.current, current)
	} else {
		st.Clear(k.current)
	}
}

func (k stateKeys) clear(st store.Store) {
	for _, key := range []string{k.visible, k.rationale, k.settings, k.rationaleMsg, k.settingsMsg, k.current} {
		st.Clear(key)
	}
}

// restore reads a previously saved visible state. It returns false when
// nothing usable is stored.
func (k stateKeys) restore(st store.Store) (s UIState, current string, ok bool) {
	readBool := func(key string) bool {
		v, found := st.RestoreState(key)
		if !found {
			return false
		}
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	s.Visible = readBool(k.visible)
	if !s.Visible {
		return UIState{}, "", false
	}
	s.ShowRationale = readBool(k.rationale)
	s.ShowSettingsGuide = readBool(k.settings)
	s.RationaleMessage, _ = st.RestoreState(k.rationaleMsg)
	s.SettingsMessage, _ = st.RestoreState(k.settingsMsg)
	if !s.valid() {
		return UIState{}, "", false
	}
	current, _ = st.RestoreState(k.current)
	return s, current, true
}
