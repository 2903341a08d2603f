package domain

import "errors"

var (
	// ErrPermissionDenied means the host has not granted location access.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrProviderUnavailable means the position provider is disabled or failed
	// unrecoverably. A subscription that ends with it is not resumed.
	ErrProviderUnavailable = errors.New("location provider unavailable")

	// ErrCatalogFetchFailed wraps any failure to read the place catalog.
	ErrCatalogFetchFailed = errors.New("place catalog fetch failed")

	// ErrNotifyFailed wraps any failure to emit a notification.
	ErrNotifyFailed = errors.New("notification failed")

	// ErrTrackingInactive is returned when proximity checks are enabled
	// while location tracking is stopped.
	ErrTrackingInactive = errors.New("location tracking is not running")

	// ErrNetwork and ErrAuth classify catalog client failures.
	ErrNetwork = errors.New("network error")
	ErrAuth    = errors.New("auth error")

	ErrNotFound = errors.New("not found")
)
