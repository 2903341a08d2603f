package http

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/picplace/internal/adapters/location"
	"github.com/samirrijal/picplace/internal/adapters/postgres"
	"github.com/samirrijal/picplace/internal/adapters/valkey"
	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/usecases"
)

// PermissionToggle changes the host's location permission at runtime.
type PermissionToggle interface {
	SetLocationGranted(granted bool)
}

// NotificationReader reads and dismisses notifications on the surface.
type NotificationReader interface {
	Current(ctx context.Context, dedupeKey int) (*domain.Notification, error)
	Dismiss(ctx context.Context, dedupeKey int) error
}

// LastLocation reads the last fix published outside the tracking process.
type LastLocation interface {
	Last(ctx context.Context) (*domain.LocationFix, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Control       *usecases.ControlService
	Permissions   PermissionToggle
	Notifications NotificationReader
	Locations     LastLocation
	Simulator     *location.SimulatedProvider // nil unless provider is "simulated"
	NearbySubject string
	NATS          *nats.Conn
	DB            *postgres.DB
	Cache         *valkey.Cache
}
