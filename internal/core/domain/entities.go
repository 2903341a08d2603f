package domain

import (
	"time"
)

// LocationFix is a single reported position sample.
type LocationFix struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id,omitempty"`
	Accuracy  float64   `json:"accuracy,omitempty"` // meters, 0 = unknown
}

// Point returns the coordinate of the fix.
func (f LocationFix) Point() GeoPoint {
	return GeoPoint{Lat: f.Lat, Lon: f.Lon}
}

// Place is a user-cataloged physical location.
type Place struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Location    GeoPoint  `json:"location"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProximityEvent records that a fix fell within the threshold of a place.
type ProximityEvent struct {
	Place          Place       `json:"place"`
	DistanceMeters float64     `json:"distance_meters"`
	Fix            LocationFix `json:"fix"`
	DetectedAt     time.Time   `json:"detected_at"`
}

// Notification is a user-visible alert. Notifications sharing a DedupeKey
// replace each other on the notification surface.
type Notification struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	DedupeKey int       `json:"dedupe_key"`
	CreatedAt time.Time `json:"created_at"`
}

// ProcessStatus is a snapshot of the background processes.
type ProcessStatus struct {
	Tracking          ProcessState `json:"tracking"`
	Proximity         ProcessState `json:"proximity"`
	PermissionGranted bool         `json:"permission_granted"`
	LastFix           *LocationFix `json:"last_fix,omitempty"`
}
