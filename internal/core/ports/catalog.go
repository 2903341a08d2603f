package ports

import (
	"context"

	"github.com/samirrijal/picplace/internal/core/domain"
)

// PlaceCatalog provides read access to the remote place collection.
// FetchAll is always a full refresh; ordering is unspecified.
type PlaceCatalog interface {
	FetchAll(ctx context.Context) ([]domain.Place, error)
}
