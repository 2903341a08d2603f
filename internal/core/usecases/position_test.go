package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
	"github.com/samirrijal/picplace/internal/core/usecases"
)

func TestFirstFix_ReturnsFirstAndCloses(t *testing.T) {
	first := domain.LocationFix{Lat: 1, Lon: 2, DeviceID: "d1"}
	stream := newMockStream(first, domain.LocationFix{Lat: 3, Lon: 4})
	src := &mockSource{
		streamFn: func(context.Context, time.Duration) (ports.PositionStream, error) {
			return stream, nil
		},
	}

	got, err := usecases.FirstFix(context.Background(), src, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != first {
		t.Errorf("expected %+v, got %+v", first, got)
	}
	if !stream.isClosed() {
		t.Error("stream must be closed after the first fix")
	}
}

func TestFirstFix_StreamError(t *testing.T) {
	src := &mockSource{
		streamFn: func(context.Context, time.Duration) (ports.PositionStream, error) {
			return nil, domain.ErrPermissionDenied
		},
	}

	_, err := usecases.FirstFix(context.Background(), src, time.Second)
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestFirstFix_ProviderFailureKeepsCause(t *testing.T) {
	stream := newMockStream()
	cause := errors.New("gps off")
	stream.fail(cause)
	src := &mockSource{
		streamFn: func(context.Context, time.Duration) (ports.PositionStream, error) {
			return stream, nil
		},
	}

	_, err := usecases.FirstFix(context.Background(), src, time.Second)
	if !errors.Is(err, cause) {
		t.Fatalf("expected provider cause, got %v", err)
	}
}

func TestFirstFix_ContextCancelled(t *testing.T) {
	stream := newMockStream()
	src := &mockSource{
		streamFn: func(context.Context, time.Duration) (ports.PositionStream, error) {
			return stream, nil
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := usecases.FirstFix(ctx, src, time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if !stream.isClosed() {
		t.Error("stream must be closed on cancellation")
	}
}
