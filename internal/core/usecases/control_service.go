package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/ports"
)

// ControlService applies the user's tracking and proximity toggles.
type ControlService struct {
	tracking  *TrackingService
	proximity *ProximityService
	gate      ports.PermissionGate
	logger    *slog.Logger
}

// NewControlService creates a new ControlService. It registers proximity as a
// dependent of tracking.
func NewControlService(tracking *TrackingService, proximity *ProximityService, gate ports.PermissionGate, logger *slog.Logger) *ControlService {
	if logger == nil {
		logger = slog.Default()
	}
	tracking.AddDependent(proximity)
	return &ControlService{
		tracking:  tracking,
		proximity: proximity,
		gate:      gate,
		logger:    logger.With("component", "control"),
	}
}

// SetTracking starts or stops location tracking. Stopping it also stops the
// proximity check.
func (s *ControlService) SetTracking(ctx context.Context, enabled bool) error {
	if !enabled {
		s.tracking.Stop()
		return nil
	}
	if err := s.tracking.Start(ctx); err != nil {
		s.logger.Warn("tracking not started", "error", err)
		return err
	}
	return nil
}

// SetProximity starts or stops the proximity check. Starting requires
// tracking to be running.
func (s *ControlService) SetProximity(ctx context.Context, enabled bool) error {
	if !enabled {
		s.proximity.Stop()
		return nil
	}
	if s.tracking.State() != domain.Running {
		return domain.ErrTrackingInactive
	}
	if err := s.proximity.Start(ctx); err != nil {
		return err
	}
	// Tracking may have stopped after the check, past its cascade.
	if s.tracking.State() != domain.Running {
		s.proximity.Stop()
		return domain.ErrTrackingInactive
	}
	return nil
}

// EnableAll turns on tracking and then the proximity check, like the single
// switch of the mobile client.
func (s *ControlService) EnableAll(ctx context.Context) error {
	if err := s.SetTracking(ctx, true); err != nil {
		return fmt.Errorf("enable tracking: %w", err)
	}
	if err := s.SetProximity(ctx, true); err != nil {
		return fmt.Errorf("enable proximity: %w", err)
	}
	return nil
}

// DisableAll stops both processes.
func (s *ControlService) DisableAll() {
	s.tracking.Stop()
}

// Status snapshots both processes and the permission.
func (s *ControlService) Status() domain.ProcessStatus {
	return domain.ProcessStatus{
		Tracking:          s.tracking.State(),
		Proximity:         s.proximity.State(),
		PermissionGranted: s.gate.LocationGranted(),
		LastFix:           s.tracking.LastFix(),
	}
}

// CheckNow runs a single proximity cycle on the caller's context.
func (s *ControlService) CheckNow(ctx context.Context) (*domain.ProximityEvent, error) {
	return s.proximity.RunCycle(ctx)
}

// Tracking exposes the tracking process for watchers.
func (s *ControlService) Tracking() *TrackingService { return s.tracking }
