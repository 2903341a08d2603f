package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
)

const lastLocationKey = "picplace:location:last"

var _ ports.FixPublisher = (*LocationStore)(nil)

// LocationStore persists the last known fix so other processes can read it.
type LocationStore struct {
	cache ports.CacheService
}

func NewLocationStore(cache ports.CacheService) *LocationStore {
	return &LocationStore{cache: cache}
}

// PublishFix implements ports.FixPublisher. The entry never expires.
func (s *LocationStore) PublishFix(ctx context.Context, fix domain.LocationFix) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}
	return s.cache.Set(ctx, lastLocationKey, data, 0)
}

// Last returns the stored fix, or domain.ErrNotFound.
func (s *LocationStore) Last(ctx context.Context) (*domain.LocationFix, error) {
	data, err := s.cache.Get(ctx, lastLocationKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.CacheMisses.WithLabelValues("location").Inc()
		}
		return nil, err
	}
	metrics.CacheHits.WithLabelValues("location").Inc()

	var fix domain.LocationFix
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, fmt.Errorf("decode last fix: %w", err)
	}
	return &fix, nil
}
