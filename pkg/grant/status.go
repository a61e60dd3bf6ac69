// Package grant defines the permission status model and permission identities
// shared by the platform delegates, stores and handlers.
package grant

// Status represents the state of a runtime permission as reported by the
// platform.
type Status string

// Permission status constants.
const (
	// Granted indicates full access has been granted.
	Granted Status = "granted"

	// Denied indicates the user denied the permission. The app may ask again.
	Denied Status = "denied"

	// DeniedAlways indicates the user denied with "don't ask again" (Android)
	// or the OS no longer shows its dialog (iOS). Only Settings can change it.
	DeniedAlways Status = "denied_always"

	// NotDetermined indicates the user has not been asked yet.
	NotDetermined Status = "not_determined"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case Granted, Denied, DeniedAlways, NotDetermined:
		return true
	default:
		return false
	}
}

// IsDenied reports whether s is a soft or hard denial.
func (s Status) IsDenied() bool {
	return s == Denied || s == DeniedAlways
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a status string to a Status.
// The second result is false when text is not a known status.
func ParseStatus(text string) (Status, bool) {
	s := Status(text)
	return s, s.Valid()
}
