package ports

import (
	"context"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
)

// PositionStream is a single live subscription to position fixes.
type PositionStream interface {
	// Fixes is closed when the subscription ends.
	Fixes() <-chan domain.LocationFix
	// Err reports why the subscription ended; nil after Close or
	// cancellation. Only meaningful once Fixes is closed.
	Err() error
	// Close tears the subscription down and waits for it to stop.
	Close()
}

// PositionSource opens independent fix subscriptions delivering at most one
// fix per minInterval.
type PositionSource interface {
	Stream(ctx context.Context, minInterval time.Duration) (PositionStream, error)
}
