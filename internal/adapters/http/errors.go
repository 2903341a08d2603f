package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/picplace/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errForbidden returns a 403 error.
func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, 403, "forbidden", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// writeServiceError maps a core error onto its HTTP status.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return errForbidden(c, err.Error())
	case errors.Is(err, domain.ErrTrackingInactive):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		return newError(c, 503, "provider_unavailable", err.Error())
	case errors.Is(err, domain.ErrCatalogFetchFailed), errors.Is(err, domain.ErrNotifyFailed):
		return newError(c, 502, "upstream_error", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, 504, "timeout", err.Error())
	default:
		return errInternal(c, err.Error())
	}
}

var (
	errUnknownChannel    = errors.New("unknown channel")
	errNearbyUnavailable = errors.New("nearby channel requires NATS")
)
