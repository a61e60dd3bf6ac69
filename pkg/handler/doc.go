// Package handler implements the runtime permission flow: when to ask the
// system, when to explain, and when to send the user to Settings.
//
// # Single permission
//
// A Handler owns one permission:
//
//	h := handler.New(delegate, grant.Camera,
//	    handler.WithSink(sink),
//	    handler.WithStore(st),
//	)
//	h.Request(ctx, "Scan receipts with the camera", "", func() {
//	    openScanner()
//	})
//
// Request looks at the last known status:
//
//   - Granted runs the callback right away.
//   - NotDetermined shows the system dialog. A denial here never opens an
//     in-app dialog on top of the one the user just closed.
//   - Denied shows the rationale dialog. OnRationaleConfirmed asks again.
//   - DeniedAlways shows the settings guide, subject to the
//     SettingsGuidePolicy. OnSettingsConfirmed opens Settings.
//
// The default policy, SettingsGuideUnlessFresh, shows the settings guide for
// a hard denial already known on the first Request of a session, before any
// rationale was shown. Use SettingsGuideAfterAttempt to require a rationale
// or an earlier Request first.
//
// A Request whose context is already done, or is canceled while it waits on
// the delegate, drops the pending callback. A known grant always hides a
// dialog left on screen.
//
// OnDismiss hides any dialog and drops the callback. RefreshStatus re-reads
// the status, typically when the app returns to the foreground.
//
// # Groups
//
// A GroupHandler walks an ordered list and stops at the first permission
// that is not granted. The callback runs only when all are granted.
//
// # Observing
//
// Status, UI state and group progress are published through Observable
// values. Listen delivers the current value first, then every change.
//
// Handlers never fail. Faults are mapped to a status by the platform
// delegate and reported to the diagnostics sink.
package handler
