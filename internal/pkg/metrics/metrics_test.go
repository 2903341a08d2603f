package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetProcessRunning(t *testing.T) {
	SetProcessRunning("tracking", true)
	if got := testutil.ToFloat64(ProcessRunning.WithLabelValues("tracking")); got != 1 {
		t.Fatalf("expected 1, got %f", got)
	}
	SetProcessRunning("tracking", false)
	if got := testutil.ToFloat64(ProcessRunning.WithLabelValues("tracking")); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
}

type stat struct{ acquired, idle, total int32 }

func (s stat) AcquiredConns() int32 { return s.acquired }
func (s stat) IdleConns() int32     { return s.idle }
func (s stat) TotalConns() int32    { return s.total }

func TestUpdateDBPoolMetrics(t *testing.T) {
	UpdateDBPoolMetrics(stat{acquired: 2, idle: 3, total: 5})

	if got := testutil.ToFloat64(DBPoolConnsAcquired); got != 2 {
		t.Errorf("acquired = %f, want 2", got)
	}
	if got := testutil.ToFloat64(DBPoolConnsIdle); got != 3 {
		t.Errorf("idle = %f, want 3", got)
	}
	if got := testutil.ToFloat64(DBPoolConnsOpen); got != 5 {
		t.Errorf("open = %f, want 5", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/v1/status", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/status", "200"))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/status", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/status", "200")); got != before+1 {
		t.Errorf("expected request counter %f, got %f", before+1, got)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "picplace_http_requests_total") {
		t.Error("expected picplace_http_requests_total in metrics output")
	}
}
