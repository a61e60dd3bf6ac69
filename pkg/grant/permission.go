package grant

import "slices"

// Permission identifies a single permission to check or request.
// Implementations are either a Named permission from the built-in catalog or a
// Custom permission carrying its own platform mapping.
type Permission interface {
	// Identifier returns the stable string identifier of the permission.
	Identifier() string
}

// PlatformMapping is implemented by permissions that know their native
// counterparts.
type PlatformMapping interface {
	Permission
	// AndroidPermissions returns the Android manifest permission strings.
	AndroidPermissions() []string
	// IOSUsageKey returns the Info.plist usage-description key, or "" if none
	// is required.
	IOSUsageKey() string
}

// Custom is a raw permission not covered by the named catalog.
type Custom struct {
	// ID is the stable identifier, e.g. "health_steps".
	ID string
	// Android lists the Android permission strings requested together.
	Android []string
	// IOSKey is the optional Info.plist usage-description key.
	IOSKey string
}

// NewCustom creates a Custom permission.
func NewCustom(id string, android []string, iosKey string) Custom {
	return Custom{ID: id, Android: slices.Clone(android), IOSKey: iosKey}
}

func (c Custom) Identifier() string { return c.ID }

func (c Custom) AndroidPermissions() []string { return slices.Clone(c.Android) }

func (c Custom) IOSUsageKey() string { return c.IOSKey }

func (c Custom) String() string { return "custom:" + c.ID }

// Same reports whether a and b refer to the same permission identifier.
// Nil permissions are never the same as anything.
func Same(a, b Permission) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Identifier() == b.Identifier()
}

// Identifiers returns the identifiers of perms in order.
func Identifiers(perms []Permission) []string {
	ids := make([]string, len(perms))
	for i, p := range perms {
		ids[i] = p.Identifier()
	}
	return ids
}
