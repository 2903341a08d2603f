package usecases

import (
	"context"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
)

// FirstFix opens a subscription, waits for its first fix and closes it.
func FirstFix(ctx context.Context, src ports.PositionSource, interval time.Duration) (domain.LocationFix, error) {
	stream, err := src.Stream(ctx, interval)
	if err != nil {
		return domain.LocationFix{}, err
	}
	defer stream.Close()

	select {
	case <-ctx.Done():
		return domain.LocationFix{}, ctx.Err()
	case fix, ok := <-stream.Fixes():
		if ok {
			return fix, nil
		}
		if err := stream.Err(); err != nil {
			return domain.LocationFix{}, err
		}
		if err := ctx.Err(); err != nil {
			return domain.LocationFix{}, err
		}
		return domain.LocationFix{}, domain.ErrProviderUnavailable
	}
}
