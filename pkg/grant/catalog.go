package grant

import "slices"

// Named is a permission from the built-in catalog. Its value is the stable
// identifier sent over the platform channel.
type Named string

// Built-in permissions.
const (
	Camera         Named = "camera"
	Microphone     Named = "microphone"
	Location       Named = "location"
	LocationAlways Named = "location_always"
	Notifications  Named = "notifications"
	Contacts       Named = "contacts"
	Calendar       Named = "calendar"
	Gallery        Named = "gallery"
	Storage        Named = "storage"
	Bluetooth      Named = "bluetooth"
	Motion         Named = "motion"
)

type nativeMapping struct {
	android []string
	iosKey  string
}

var catalog = map[Named]nativeMapping{
	Camera: {
		android: []string{"android.permission.CAMERA"},
		iosKey:  "NSCameraUsageDescription",
	},
	Microphone: {
		android: []string{"android.permission.RECORD_AUDIO"},
		iosKey:  "NSMicrophoneUsageDescription",
	},
	Location: {
		android: []string{"android.permission.ACCESS_FINE_LOCATION", "android.permission.ACCESS_COARSE_LOCATION"},
		iosKey:  "NSLocationWhenInUseUsageDescription",
	},
	// Background location must be requested after foreground location on both
	// platforms.
	LocationAlways: {
		android: []string{"android.permission.ACCESS_BACKGROUND_LOCATION"},
		iosKey:  "NSLocationAlwaysAndWhenInUseUsageDescription",
	},
	Notifications: {
		android: []string{"android.permission.POST_NOTIFICATIONS"},
	},
	Contacts: {
		android: []string{"android.permission.READ_CONTACTS", "android.permission.WRITE_CONTACTS"},
		iosKey:  "NSContactsUsageDescription",
	},
	Calendar: {
		android: []string{"android.permission.READ_CALENDAR", "android.permission.WRITE_CALENDAR"},
		iosKey:  "NSCalendarsFullAccessUsageDescription",
	},
	Gallery: {
		android: []string{"android.permission.READ_MEDIA_IMAGES", "android.permission.READ_MEDIA_VIDEO"},
		iosKey:  "NSPhotoLibraryUsageDescription",
	},
	Storage: {
		android: []string{"android.permission.READ_EXTERNAL_STORAGE", "android.permission.WRITE_EXTERNAL_STORAGE"},
	},
	Bluetooth: {
		android: []string{"android.permission.BLUETOOTH_SCAN", "android.permission.BLUETOOTH_CONNECT"},
		iosKey:  "NSBluetoothAlwaysUsageDescription",
	},
	Motion: {
		android: []string{"android.permission.ACTIVITY_RECOGNITION"},
		iosKey:  "NSMotionUsageDescription",
	},
}

func (n Named) Identifier() string { return string(n) }

func (n Named) String() string { return string(n) }

// AndroidPermissions returns the manifest permissions requested for n.
func (n Named) AndroidPermissions() []string {
	return slices.Clone(catalog[n].android)
}

// IOSUsageKey returns the Info.plist key that must be present before n can be
// requested on iOS.
func (n Named) IOSUsageKey() string {
	return catalog[n].iosKey
}

// Known reports whether n is part of the built-in catalog.
func (n Named) Known() bool {
	_, ok := catalog[n]
	return ok
}

// All returns every built-in permission, sorted by identifier.
func All() []Named {
	names := make([]Named, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the named permission for id, or a Custom permission with no
// platform mapping when id is not in the catalog.
func Lookup(id string) Permission {
	if n := Named(id); n.Known() {
		return n
	}
	return Custom{ID: id}
}
