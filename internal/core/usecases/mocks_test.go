package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
)

// --- Mock PositionStream ---

type mockStream struct {
	fixes  chan domain.LocationFix
	closed chan struct{}
	once   sync.Once
	err    error
}

func newMockStream(buffered ...domain.LocationFix) *mockStream {
	s := &mockStream{
		fixes:  make(chan domain.LocationFix, len(buffered)+1),
		closed: make(chan struct{}),
	}
	for _, f := range buffered {
		s.fixes <- f
	}
	return s
}

func (m *mockStream) Fixes() <-chan domain.LocationFix { return m.fixes }
func (m *mockStream) Err() error                       { return m.err }
func (m *mockStream) Close()                           { m.once.Do(func() { close(m.closed) }) }

// fail ends the stream the way a provider failure does.
func (m *mockStream) fail(err error) {
	m.err = err
	close(m.fixes)
}

func (m *mockStream) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// --- Mock PositionSource ---

type mockSource struct {
	mu       sync.Mutex
	calls    int
	streamFn func(ctx context.Context, interval time.Duration) (ports.PositionStream, error)
}

func (m *mockSource) Stream(ctx context.Context, interval time.Duration) (ports.PositionStream, error) {
	m.mu.Lock()
	m.calls++
	fn := m.streamFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, interval)
	}
	return newMockStream(), nil
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// fixedSource hands out a fresh stream holding fix on every call.
func fixedSource(fix domain.LocationFix) *mockSource {
	return &mockSource{
		streamFn: func(context.Context, time.Duration) (ports.PositionStream, error) {
			return newMockStream(fix), nil
		},
	}
}

// --- Mock PlaceCatalog ---

type mockCatalog struct {
	mu         sync.Mutex
	calls      int
	fetchAllFn func(ctx context.Context, call int) ([]domain.Place, error)
}

func (m *mockCatalog) FetchAll(ctx context.Context) ([]domain.Place, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	fn := m.fetchAllFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, call)
	}
	return nil, nil
}

func (m *mockCatalog) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func staticCatalog(places ...domain.Place) *mockCatalog {
	return &mockCatalog{
		fetchAllFn: func(context.Context, int) ([]domain.Place, error) { return places, nil },
	}
}

// --- Mock NotificationSink ---

type sentNotification struct {
	title, body string
	dedupeKey   int
}

type mockSink struct {
	mu       sync.Mutex
	sent     []sentNotification
	notifyFn func(ctx context.Context, title, body string, dedupeKey int) error
}

func (m *mockSink) Notify(ctx context.Context, title, body string, dedupeKey int) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentNotification{title: title, body: body, dedupeKey: dedupeKey})
	fn := m.notifyFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, title, body, dedupeKey)
	}
	return nil
}

func (m *mockSink) notifications() []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentNotification(nil), m.sent...)
}

// --- Mock FixPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.LocationFix
	err       error
}

func (m *mockPublisher) PublishFix(_ context.Context, fix domain.LocationFix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, fix)
	return m.err
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

// --- Mock PermissionGate ---

type mockGate struct{ granted bool }

func (m mockGate) LocationGranted() bool { return m.granted }

// --- Helpers ---

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
