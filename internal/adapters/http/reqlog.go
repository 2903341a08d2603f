package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type requestScope struct {
	id     string
	logger *slog.Logger
}

type requestScopeKey struct{}

// RequestIDLogMiddleware puts the request ID set by fiber's requestid
// middleware, and a logger carrying it, into the user context.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := c.Locals("requestid").(string)
		if id == "" {
			return c.Next()
		}

		scope := &requestScope{id: id, logger: slog.Default().With("request_id", id)}
		c.SetUserContext(context.WithValue(c.UserContext(), requestScopeKey{}, scope))
		return c.Next()
	}
}

// LoggerFromCtx returns the request-scoped logger, or the default logger
// outside a request.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if s, ok := ctx.Value(requestScopeKey{}).(*requestScope); ok {
		return s.logger
	}
	return slog.Default()
}

// RequestIDFromCtx returns the request ID, or "" outside a request.
func RequestIDFromCtx(ctx context.Context) string {
	if s, ok := ctx.Value(requestScopeKey{}).(*requestScope); ok {
		return s.id
	}
	return ""
}
