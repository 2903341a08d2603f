package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers the control surface, GraphQL, WebSocket and metrics
// routes on app.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(
		compress.New(compress.Config{Level: compress.LevelBestSpeed}),
		requestid.New(),
		RequestIDLogMiddleware(),
		AccessLogMiddleware(),
		rateLimiter(120, time.Minute),
		securityHeaders(),
	)

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Process control is cheap and never blocks on I/O.
	v1 := app.Group("/v1")
	v1.Get("/status", StatusHandler(deps))
	v1.Put("/permissions/location", SetPermissionHandler(deps))
	v1.Put("/simulation/position", MoveSimulatorHandler(deps))

	// Starting a process waits on the permission gate and the provider; the
	// rest talk to valkey or the catalog.
	v1.Put("/tracking", withTimeout(SetTrackingHandler(deps)))
	v1.Put("/proximity", withTimeout(SetProximityHandler(deps)))
	v1.Get("/location", withTimeout(LocationHandler(deps)))
	v1.Post("/proximity/check", withTimeout(CheckNowHandler(deps)))
	v1.Get("/notifications/:key", withTimeout(GetNotificationHandler(deps)))
	v1.Delete("/notifications/:key", withTimeout(DismissNotificationHandler(deps)))

	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}

// rateLimiter allows max requests per window from a single IP.
func rateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	})
}

func securityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderXFrameOptions, "DENY")
		c.Set(fiber.HeaderReferrerPolicy, "no-referrer")
		// Every response reflects live process state.
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Next()
	}
}
