package platform

import (
	"context"
	"time"

	"github.com/go-drift/grant/pkg/grant"
)

// DefaultPermissionTimeout is the default upper bound for a permission request,
// including the time the user spends on the system dialog.
const DefaultPermissionTimeout = 30 * time.Second

// Delegate performs the native permission calls for one platform.
//
// Delegate methods never fail: faults are mapped to a status before they are
// returned. A request that times out resolves to grant.Denied; a bridge or
// configuration fault resolves to grant.DeniedAlways.
type Delegate interface {
	// CheckStatus returns the current status without showing any dialog.
	CheckStatus(ctx context.Context, p grant.Permission) grant.Status

	// Request may show the system dialog and returns the status after the
	// user answered. It returns grant.Granted without prompting when the
	// permission is already granted.
	Request(ctx context.Context, p grant.Permission) grant.Status

	// OpenSettings opens the app's page in the system settings. It does not
	// wait for the user to come back.
	OpenSettings()
}
