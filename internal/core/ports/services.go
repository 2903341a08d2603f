package ports

import (
	"context"

	"github.com/samirrijal/picplace/internal/core/domain"
)

// NotificationSink emits user-visible alerts. A notification carrying the same
// dedupeKey as a previous one replaces it.
type NotificationSink interface {
	Notify(ctx context.Context, title, body string, dedupeKey int) error
}

// PermissionGate reports whether the host currently grants location access.
type PermissionGate interface {
	LocationGranted() bool
}

// FixPublisher receives every fix accepted by the tracking process, e.g. to
// make the last known location available outside this process.
type FixPublisher interface {
	PublishFix(ctx context.Context, fix domain.LocationFix) error
}

// NotificationPublisher broadcasts emitted notifications to other consumers.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n *domain.Notification) error
}

// CacheService provides simple key/value storage with TTLs.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
