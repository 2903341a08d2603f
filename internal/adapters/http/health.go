package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// probe is a single readiness dependency. A nil check means the dependency
// is not configured; required dependencies then fail readiness.
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) string
}

func (d *Dependencies) probes() []probe {
	ps := []probe{
		{name: "database", required: true},
		{name: "nats"},
		{name: "cache"},
	}
	if d.DB != nil {
		ps[0].check = func(ctx context.Context) string { return errStatus(d.DB.Ping(ctx)) }
	}
	if d.NATS != nil {
		ps[1].check = func(context.Context) string {
			if d.NATS.IsConnected() {
				return "ok"
			}
			return "disconnected"
		}
	}
	if d.Cache != nil {
		ps[2].check = func(ctx context.Context) string { return errStatus(d.Cache.Ping(ctx)) }
	}
	return ps
}

func errStatus(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// HealthHandler reports liveness along with the process states.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"status": "healthy",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		}
		if deps.Control != nil {
			st := deps.Control.Status()
			resp["tracking"] = st.Tracking
			resp["proximity"] = st.Proximity
		}
		return c.JSON(resp)
	}
}

// ReadyHandler returns 503 unless every configured dependency answers and the
// catalog database is reachable.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		ready := true
		for _, p := range deps.probes() {
			if p.check == nil {
				checks[p.name] = "not configured"
				ready = ready && !p.required
				continue
			}
			res := p.check(ctx)
			checks[p.name] = res
			ready = ready && res == "ok"
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
