package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
)

// Stopper is a process that must stop when the process it depends on stops.
type Stopper interface {
	Stop()
}

type namedPublisher struct {
	name string
	pub  ports.FixPublisher
}

// TrackingService keeps the last known device location current while it runs.
type TrackingService struct {
	source   ports.PositionSource
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	publishers []namedPublisher
	dependents []Stopper

	last atomic.Pointer[domain.LocationFix]

	watchMu  sync.Mutex
	watchers map[int]chan domain.LocationFix
	nextID   int
}

// NewTrackingService creates a stopped TrackingService that subscribes to
// source at the given interval once started.
func NewTrackingService(source ports.PositionSource, interval time.Duration, logger *slog.Logger) *TrackingService {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &TrackingService{
		source:   source,
		interval: interval,
		logger:   logger.With("component", "tracking"),
		watchers: make(map[int]chan domain.LocationFix),
	}
}

// AddPublisher registers a best-effort sink for every received fix.
func (s *TrackingService) AddPublisher(name string, p ports.FixPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers = append(s.publishers, namedPublisher{name: name, pub: p})
}

// AddDependent registers a process that is stopped whenever tracking stops.
func (s *TrackingService) AddDependent(d Stopper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dependents = append(s.dependents, d)
}

// Start opens the position subscription. It is a no-op when already running.
// The subscription lives in a scope of its own, so ctx only bounds the call.
func (s *TrackingService) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	scope, cancel := context.WithCancel(context.Background())
	stream, err := s.source.Stream(scope, s.interval)
	if err != nil {
		cancel()
		return fmt.Errorf("open position stream: %w", err)
	}

	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	publishers := append([]namedPublisher(nil), s.publishers...)

	go s.run(scope, stream, publishers, done)

	metrics.SetProcessRunning("tracking", true)
	s.logger.Info("tracking started", "interval", s.interval.String())
	return nil
}

// Stop cancels the subscription, waits for it to drain and stops every
// dependent. Dependents are stopped even when tracking was already stopped.
func (s *TrackingService) Stop() {
	s.stop(nil)
}

func (s *TrackingService) stop(only chan struct{}) {
	s.mu.Lock()
	if only != nil && s.done != only {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	if cancel != nil {
		cancel()
		<-done
		metrics.SetProcessRunning("tracking", false)
		s.logger.Info("tracking stopped")
	}
	dependents := append([]Stopper(nil), s.dependents...)
	s.mu.Unlock()

	for _, d := range dependents {
		d.Stop()
	}
}

// State reports whether the process is running.
func (s *TrackingService) State() domain.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return domain.Running
	}
	return domain.Stopped
}

// LastFix returns the most recent fix, or nil before the first one.
func (s *TrackingService) LastFix() *domain.LocationFix {
	return s.last.Load()
}

// Watch returns a channel carrying every fix published after the call. A
// slow reader only sees the newest fix. The channel is closed when ctx ends.
func (s *TrackingService) Watch(ctx context.Context) <-chan domain.LocationFix {
	ch := make(chan domain.LocationFix, 1)

	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		delete(s.watchers, id)
		close(ch)
		s.watchMu.Unlock()
	}()

	return ch
}

func (s *TrackingService) run(ctx context.Context, stream ports.PositionStream, publishers []namedPublisher, done chan struct{}) {
	defer close(done)
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-stream.Fixes():
			if !ok {
				if err := stream.Err(); err != nil {
					s.logger.Error("position stream failed", "error", err)
				} else {
					s.logger.Warn("position stream ended")
				}
				// The stream is not resubscribed; the process stops itself.
				go s.stop(done)
				return
			}
			s.publish(ctx, fix, publishers)
		}
	}
}

func (s *TrackingService) publish(ctx context.Context, fix domain.LocationFix, publishers []namedPublisher) {
	s.last.Store(&fix)
	s.broadcast(fix)

	for _, p := range publishers {
		if err := p.pub.PublishFix(ctx, fix); err != nil {
			metrics.FixPublishErrors.WithLabelValues(p.name).Inc()
			s.logger.Warn("publish fix failed", "publisher", p.name, "error", err)
		}
	}
}

func (s *TrackingService) broadcast(fix domain.LocationFix) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- fix
	}
}
