package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/picplace/internal/core/domain"
)

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

type permissionRequest struct {
	Granted *bool `json:"granted"`
}

type positionRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// StatusHandler returns the state of both background processes.
func StatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Control.Status())
	}
}

// SetTrackingHandler starts or stops location tracking.
func SetTrackingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
			return errBadRequest(c, `body must be {"enabled": bool}`)
		}
		if err := deps.Control.SetTracking(c.UserContext(), *req.Enabled); err != nil {
			LoggerFromCtx(c.UserContext()).Warn("set tracking failed", "enabled", *req.Enabled, "error", err)
			return writeServiceError(c, err)
		}
		return c.JSON(deps.Control.Status())
	}
}

// SetProximityHandler starts or stops the periodic proximity check.
func SetProximityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
			return errBadRequest(c, `body must be {"enabled": bool}`)
		}
		if err := deps.Control.SetProximity(c.UserContext(), *req.Enabled); err != nil {
			LoggerFromCtx(c.UserContext()).Warn("set proximity failed", "enabled", *req.Enabled, "error", err)
			return writeServiceError(c, err)
		}
		return c.JSON(deps.Control.Status())
	}
}

// SetPermissionHandler grants or revokes location access. Revoking does not
// stop a running subscription; it only makes the next Start fail.
func SetPermissionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Permissions == nil {
			return errNotFound(c, "permission toggle not available")
		}
		var req permissionRequest
		if err := c.BodyParser(&req); err != nil || req.Granted == nil {
			return errBadRequest(c, `body must be {"granted": bool}`)
		}
		deps.Permissions.SetLocationGranted(*req.Granted)
		return c.JSON(deps.Control.Status())
	}
}

// LocationHandler returns the last known fix.
func LocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if fix := deps.Control.Tracking().LastFix(); fix != nil {
			return c.JSON(fix)
		}
		if deps.Locations == nil {
			return errNotFound(c, "no location fix yet")
		}

		fix, err := deps.Locations.Last(c.UserContext())
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "no location fix yet")
		}
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fix)
	}
}

// CheckNowHandler runs a single proximity cycle outside the periodic loop.
func CheckNowHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		event, err := deps.Control.CheckNow(c.UserContext())
		if err != nil && !errors.Is(err, domain.ErrNotifyFailed) {
			return writeServiceError(c, err)
		}
		if event == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		if err != nil {
			// The match is still reported; only the alert was lost.
			LoggerFromCtx(c.UserContext()).Warn("nearby notification failed", "place_id", event.Place.ID, "error", err)
		}
		return c.JSON(event)
	}
}

// GetNotificationHandler returns the notification shown under a dedupe key.
func GetNotificationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Notifications == nil {
			return errNotFound(c, "notification surface not available")
		}
		key, err := c.ParamsInt("key")
		if err != nil {
			return errBadRequest(c, "key must be an integer")
		}
		n, err := deps.Notifications.Current(c.UserContext(), key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "notification not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(n)
	}
}

// DismissNotificationHandler removes the notification under a dedupe key.
func DismissNotificationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Notifications == nil {
			return errNotFound(c, "notification surface not available")
		}
		key, err := c.ParamsInt("key")
		if err != nil {
			return errBadRequest(c, "key must be an integer")
		}
		if err := deps.Notifications.Dismiss(c.UserContext(), key); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// MoveSimulatorHandler teleports the simulated device.
func MoveSimulatorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Simulator == nil {
			return errNotFound(c, "simulated provider not configured")
		}
		var req positionRequest
		if err := c.BodyParser(&req); err != nil || req.Lat == nil || req.Lon == nil {
			return errBadRequest(c, `body must be {"lat": number, "lon": number}`)
		}
		pt := domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}
		if !pt.Valid() {
			return errBadRequest(c, "lat must be in [-90,90] and lon in [-180,180]")
		}
		deps.Simulator.MoveTo(pt)
		return c.JSON(pt)
	}
}
