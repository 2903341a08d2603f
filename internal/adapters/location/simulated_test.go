package location

import (
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
)

func TestSimulatedProvider_ReportsCurrentPosition(t *testing.T) {
	sim := NewSimulatedProvider("sim", domain.GeoPoint{Lat: 1, Lon: 1})

	fixes := make(chan domain.LocationFix, 16)
	cancel, err := sim.RequestUpdates(5*time.Millisecond, func(f domain.LocationFix) {
		select {
		case fixes <- f:
		default:
		}
	}, func(error) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	if f := receive(t, fixes); f.Lat != 1 {
		t.Fatalf("expected initial position, got %+v", f)
	}

	sim.MoveTo(domain.GeoPoint{Lat: 2, Lon: 2})
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-fixes:
			if f.Lat == 2 {
				return
			}
		case <-deadline:
			t.Fatal("moved position never reported")
		}
	}
}

func TestSimulatedProvider_DisableFailsRegistrations(t *testing.T) {
	sim := NewSimulatedProvider("sim", domain.GeoPoint{})

	failed := make(chan error, 1)
	cancel, err := sim.RequestUpdates(time.Hour, func(domain.LocationFix) {}, func(err error) { failed <- err })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	sim.SetEnabled(false)

	select {
	case err := <-failed:
		if !errors.Is(err, ErrProviderDisabled) {
			t.Errorf("expected ErrProviderDisabled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failure callback not invoked")
	}

	if sim.Enabled() {
		t.Error("expected disabled")
	}
	if _, err := sim.RequestUpdates(time.Second, func(domain.LocationFix) {}, func(error) {}); !errors.Is(err, ErrProviderDisabled) {
		t.Errorf("expected ErrProviderDisabled from disabled provider, got %v", err)
	}
}
