package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
	"github.com/samirrijal/picplace/internal/pkg/geospatial"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
	"github.com/samirrijal/picplace/internal/pkg/telemetry"
)

// NearbyTitle is the title of every nearby-place notification.
const NearbyTitle = "Nearby place detected!"

// ProximityConfig tunes the proximity check loop.
type ProximityConfig struct {
	// Period is both the sleep between cycles and the fix interval.
	Period          time.Duration
	ThresholdMeters float64
	DedupeKey       int
}

// DefaultProximityConfig matches the behaviour of the mobile client.
func DefaultProximityConfig() ProximityConfig {
	return ProximityConfig{Period: time.Minute, ThresholdMeters: 10, DedupeKey: 2}
}

// ProximityService periodically compares the device position with the place
// catalog and posts a notification for the first place within range.
type ProximityService struct {
	source  ports.PositionSource
	catalog ports.PlaceCatalog
	sink    ports.NotificationSink
	cfg     ProximityConfig
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewProximityService creates a stopped ProximityService.
func NewProximityService(
	source ports.PositionSource,
	catalog ports.PlaceCatalog,
	sink ports.NotificationSink,
	cfg ProximityConfig,
	logger *slog.Logger,
) *ProximityService {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultProximityConfig()
	if cfg.Period <= 0 {
		cfg.Period = def.Period
	}
	if cfg.ThresholdMeters <= 0 {
		cfg.ThresholdMeters = def.ThresholdMeters
	}
	return &ProximityService{
		source:  source,
		catalog: catalog,
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With("component", "proximity"),
		now:     time.Now,
	}
}

// Start launches the check loop. It is a no-op when already running.
func (s *ProximityService) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	scope, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go s.loop(scope, done)

	metrics.SetProcessRunning("proximity", true)
	s.logger.Info("proximity check started",
		"period", s.cfg.Period.String(),
		"threshold_m", s.cfg.ThresholdMeters,
	)
	return nil
}

// Stop cancels the loop and waits for any in-flight cycle to unwind.
func (s *ProximityService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil

	metrics.SetProcessRunning("proximity", false)
	s.logger.Info("proximity check stopped")
}

// State reports whether the loop is running.
func (s *ProximityService) State() domain.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return domain.Running
	}
	return domain.Stopped
}

func (s *ProximityService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.cfg.Period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.safeCycle(ctx)
		timer.Reset(s.cfg.Period)
	}
}

// safeCycle isolates the loop from a panicking cycle.
func (s *ProximityService) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ProximityCycles.WithLabelValues("panic").Inc()
			s.logger.Error("proximity cycle panicked", "panic", fmt.Sprint(r))
		}
	}()

	event, err := s.RunCycle(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		// Stopped mid-cycle.
	case err != nil:
		s.logger.Warn("proximity cycle failed", "error", err)
	case event != nil:
		s.logger.Info("nearby place detected",
			"place_id", event.Place.ID,
			"distance_m", event.DistanceMeters,
		)
	}
}

// RunCycle obtains one fresh fix, refreshes the catalog and notifies about the
// first place closer than the threshold. It returns a nil event when nothing
// is in range. A notification failure is returned alongside the event.
func (s *ProximityService) RunCycle(ctx context.Context) (*domain.ProximityEvent, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanProximityCycle)
	defer span.End()

	result := "no_match"
	defer func() {
		metrics.ProximityCycles.WithLabelValues(result).Inc()
		span.SetAttributes(attribute.String(telemetry.AttrCycleResult, result))
	}()

	fix, err := FirstFix(ctx, s.source, s.cfg.Period)
	if err != nil {
		result = "no_fix"
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("obtain fix: %w", err)
	}

	places, err := s.fetchCatalog(ctx)
	if err != nil {
		result = "catalog_error"
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	event := s.match(fix, places)
	if event == nil {
		return nil, nil
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrPlaceID, event.Place.ID),
		attribute.Float64(telemetry.AttrDistanceMeters, event.DistanceMeters),
	)

	if err := s.notify(ctx, event); err != nil {
		result = "notify_error"
		span.SetStatus(codes.Error, err.Error())
		return event, err
	}
	result = "notified"
	return event, nil
}

func (s *ProximityService) fetchCatalog(ctx context.Context) ([]domain.Place, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCatalogFetch)
	defer span.End()

	start := time.Now()
	places, err := s.catalog.FetchAll(ctx)
	metrics.CatalogFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CatalogFetchErrors.Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogFetchFailed, err)
	}
	span.SetAttributes(attribute.Int(telemetry.AttrPlaceCount, len(places)))
	return places, nil
}

// match returns the first place, in catalog order, strictly within range.
func (s *ProximityService) match(fix domain.LocationFix, places []domain.Place) *domain.ProximityEvent {
	here := fix.Point()
	for _, p := range places {
		d := geospatial.Distance(here, p.Location)
		if d < s.cfg.ThresholdMeters {
			return &domain.ProximityEvent{
				Place:          p,
				DistanceMeters: d,
				Fix:            fix,
				DetectedAt:     s.now(),
			}
		}
	}
	return nil
}

func (s *ProximityService) notify(ctx context.Context, event *domain.ProximityEvent) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanNotify)
	defer span.End()

	if err := s.sink.Notify(ctx, NearbyTitle, NearbyBody(event.Place), s.cfg.DedupeKey); err != nil {
		metrics.NotificationsFailed.Inc()
		span.RecordError(err)
		return fmt.Errorf("%w: place %s: %w", domain.ErrNotifyFailed, event.Place.ID, err)
	}
	metrics.NotificationsSent.Inc()
	return nil
}

// NearbyBody renders the notification text for a place.
func NearbyBody(p domain.Place) string {
	name := p.Name
	if name == "" {
		name = "Place"
	}
	return fmt.Sprintf("%s at %s is nearby.", name, p.Location)
}
