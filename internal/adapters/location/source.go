// Package location turns push-based position providers into cancellable fix
// subscriptions.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
)

// Provider is a platform position provider with a callback API.
//
// RequestUpdates registers callbacks that may be invoked from any goroutine.
// onFailure reports an unrecoverable condition; the provider will not call
// onFix again for that registration. The returned cancel func deregisters the
// callbacks and must be safe to call more than once.
type Provider interface {
	Enabled() bool
	RequestUpdates(interval time.Duration, onFix func(domain.LocationFix), onFailure func(error)) (cancel func(), err error)
}

var _ ports.PositionSource = (*Source)(nil)

// Source implements ports.PositionSource over a Provider.
type Source struct {
	provider Provider
	gate     ports.PermissionGate
	logger   *slog.Logger
	now      func() time.Time
}

// NewSource creates a Source. The gate is consulted on every Stream call.
func NewSource(provider Provider, gate ports.PermissionGate, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		provider: provider,
		gate:     gate,
		logger:   logger.With("component", "position_source"),
		now:      time.Now,
	}
}

// Stream opens a new subscription. It fails immediately with
// domain.ErrPermissionDenied when location access is not granted and with
// domain.ErrProviderUnavailable when the provider is disabled.
func (s *Source) Stream(ctx context.Context, minInterval time.Duration) (ports.PositionStream, error) {
	if !s.gate.LocationGranted() {
		return nil, domain.ErrPermissionDenied
	}
	if !s.provider.Enabled() {
		return nil, fmt.Errorf("%w: provider disabled", domain.ErrProviderUnavailable)
	}
	if minInterval < 0 {
		minInterval = 0
	}

	sub := &subscription{
		minInterval: minInterval,
		now:         s.now,
		in:          make(chan domain.LocationFix, 1),
		failures:    make(chan error, 1),
		out:         make(chan domain.LocationFix),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	cancel, err := s.provider.RequestUpdates(minInterval, sub.offer, sub.fail)
	if err != nil {
		return nil, fmt.Errorf("%w: request updates: %v", domain.ErrProviderUnavailable, err)
	}
	sub.cancelProvider = cancel

	s.logger.Debug("position subscription opened", "min_interval", minInterval.String())
	go sub.run(ctx)
	return sub, nil
}

// subscription adapts provider callbacks to a channel. The in slot holds at
// most one undelivered fix; newer fixes replace it.
type subscription struct {
	minInterval time.Duration
	now         func() time.Time

	in       chan domain.LocationFix
	failures chan error
	out      chan domain.LocationFix

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	cancelProvider func()
	err            error
}

func (s *subscription) Fixes() <-chan domain.LocationFix { return s.out }

func (s *subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *subscription) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// offer never blocks the provider's goroutine.
func (s *subscription) offer(fix domain.LocationFix) {
	for {
		select {
		case <-s.done:
			return
		case s.in <- fix:
			return
		default:
		}
		select {
		case <-s.in:
			metrics.FixesDropped.WithLabelValues("coalesced").Inc()
		default:
		}
	}
}

func (s *subscription) fail(err error) {
	select {
	case s.failures <- err:
	default:
	}
}

func (s *subscription) run(ctx context.Context) {
	// done closes before out so Err is settled once Fixes reports closed.
	defer close(s.out)
	defer close(s.done)
	defer s.cancelProvider()

	var (
		pending       domain.LocationFix
		havePending   bool
		lastDelivered time.Time
	)

	for {
		var out chan<- domain.LocationFix
		if havePending {
			out = s.out
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case err := <-s.failures:
			s.err = fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
			return
		case fix := <-s.in:
			if !havePending && !lastDelivered.IsZero() && s.now().Sub(lastDelivered) < s.minInterval {
				metrics.FixesDropped.WithLabelValues("throttled").Inc()
				continue
			}
			pending, havePending = fix, true
		case out <- pending:
			havePending = false
			lastDelivered = s.now()
		}
	}
}
