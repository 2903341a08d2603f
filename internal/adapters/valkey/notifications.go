package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
)

const notificationKeyPrefix = "picplace:notification:"

var _ ports.NotificationSink = (*NotificationSurface)(nil)

// NotificationSurface keeps the current notification per dedupe key in the
// cache. Posting with a key that is already present replaces the old entry.
type NotificationSurface struct {
	cache     ports.CacheService
	ttl       int
	publisher ports.NotificationPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewNotificationSurface creates a surface whose entries expire after
// ttlSeconds. publisher may be nil.
func NewNotificationSurface(cache ports.CacheService, ttlSeconds int, publisher ports.NotificationPublisher, logger *slog.Logger) *NotificationSurface {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationSurface{
		cache:     cache,
		ttl:       ttlSeconds,
		publisher: publisher,
		logger:    logger.With("component", "notification_surface"),
		now:       time.Now,
	}
}

// Notify implements ports.NotificationSink. Broadcasting to the publisher is
// best-effort once the entry is stored.
func (s *NotificationSurface) Notify(ctx context.Context, title, body string, dedupeKey int) error {
	n := &domain.Notification{
		Title:     title,
		Body:      body,
		DedupeKey: dedupeKey,
		CreatedAt: s.now().UTC(),
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.cache.Set(ctx, notificationKey(dedupeKey), data, s.ttl); err != nil {
		return fmt.Errorf("store notification %d: %w", dedupeKey, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, n); err != nil {
			s.logger.Warn("broadcast notification failed", "dedupe_key", dedupeKey, "error", err)
		}
	}
	return nil
}

// Current returns the notification shown under dedupeKey, or
// domain.ErrNotFound.
func (s *NotificationSurface) Current(ctx context.Context, dedupeKey int) (*domain.Notification, error) {
	data, err := s.cache.Get(ctx, notificationKey(dedupeKey))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.CacheMisses.WithLabelValues("notification").Inc()
		}
		return nil, err
	}
	metrics.CacheHits.WithLabelValues("notification").Inc()

	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode notification %d: %w", dedupeKey, err)
	}
	return &n, nil
}

// Dismiss removes the notification shown under dedupeKey.
func (s *NotificationSurface) Dismiss(ctx context.Context, dedupeKey int) error {
	return s.cache.Delete(ctx, notificationKey(dedupeKey))
}

func notificationKey(dedupeKey int) string {
	return notificationKeyPrefix + strconv.Itoa(dedupeKey)
}
