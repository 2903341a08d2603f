package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/picplace/internal/adapters/http"
	"github.com/samirrijal/picplace/internal/adapters/location"
	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/core/usecases"
)

// ---- Mocks ----

type mockCatalog struct {
	fetchAllFn func(ctx context.Context) ([]domain.Place, error)
}

func (m *mockCatalog) FetchAll(ctx context.Context) ([]domain.Place, error) {
	if m.fetchAllFn != nil {
		return m.fetchAllFn(ctx)
	}
	return nil, nil
}

type mockSink struct {
	mu    sync.Mutex
	count int
	err   error
}

func (m *mockSink) Notify(ctx context.Context, title, body string, dedupeKey int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return m.err
}

func (m *mockSink) notified() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

type mockNotifications struct {
	currentFn func(ctx context.Context, key int) (*domain.Notification, error)
	dismissed []int
}

func (m *mockNotifications) Current(ctx context.Context, key int) (*domain.Notification, error) {
	if m.currentFn != nil {
		return m.currentFn(ctx, key)
	}
	return nil, domain.ErrNotFound
}

func (m *mockNotifications) Dismiss(ctx context.Context, key int) error {
	m.dismissed = append(m.dismissed, key)
	return nil
}

type mockLocations struct {
	fix *domain.LocationFix
}

func (m *mockLocations) Last(ctx context.Context) (*domain.LocationFix, error) {
	if m.fix == nil {
		return nil, domain.ErrNotFound
	}
	return m.fix, nil
}

// ---- Helpers ----

var bilbao = domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}

type testEnv struct {
	deps *handler.Dependencies
	gate *location.Gate
	sim  *location.SimulatedProvider
	sink *mockSink
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeEnv(t *testing.T, catalog *mockCatalog, opts ...func(*handler.Dependencies)) *testEnv {
	t.Helper()
	if catalog == nil {
		catalog = &mockCatalog{}
	}
	gate := location.NewGate(true)
	sim := location.NewSimulatedProvider("sim-1", bilbao)
	src := location.NewSource(sim, gate, nil)
	sink := &mockSink{}

	tracking := usecases.NewTrackingService(src, 20*time.Millisecond, nil)
	proximity := usecases.NewProximityService(src, catalog, sink, usecases.ProximityConfig{
		Period:          20 * time.Millisecond,
		ThresholdMeters: 10,
		DedupeKey:       2,
	}, nil)
	ctl := usecases.NewControlService(tracking, proximity, gate, nil)
	t.Cleanup(ctl.DisableAll)

	d := &handler.Dependencies{
		Control:     ctl,
		Permissions: gate,
		Simulator:   sim,
	}
	for _, o := range opts {
		o(d)
	}
	return &testEnv{deps: d, gate: gate, sim: sim, sink: sink}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return b
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, readBody(t, resp.Body)
}

func decodeStatus(t *testing.T, body []byte) domain.ProcessStatus {
	t.Helper()
	var st domain.ProcessStatus
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("invalid status body %s: %v", body, err)
	}
	return st
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("invalid error body %s: %v", body, err)
	}
	return apiErr.Code
}

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

// ---- Tests ----

func TestStatus_InitiallyStopped(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	code, body := do(t, app, "GET", "/v1/status", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	st := decodeStatus(t, body)
	if st.Tracking != domain.Stopped || st.Proximity != domain.Stopped {
		t.Errorf("expected both stopped, got %+v", st)
	}
	if !st.PermissionGranted {
		t.Error("expected permission granted")
	}
}

func TestSetTracking_StartAndStop(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	code, body := do(t, app, "PUT", "/v1/tracking", `{"enabled":true}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	if st := decodeStatus(t, body); st.Tracking != domain.Running {
		t.Errorf("expected tracking running, got %s", st.Tracking)
	}

	code, body = do(t, app, "PUT", "/v1/tracking", `{"enabled":false}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if st := decodeStatus(t, body); st.Tracking != domain.Stopped {
		t.Errorf("expected tracking stopped, got %s", st.Tracking)
	}
}

func TestSetTracking_BadBody(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	for _, body := range []string{`{}`, `{"enabled":"yes"}`, `not json`} {
		code, resp := do(t, app, "PUT", "/v1/tracking", body)
		if code != 400 {
			t.Errorf("body %q: expected 400, got %d", body, code)
			continue
		}
		if c := errorCode(t, resp); c != "bad_request" {
			t.Errorf("body %q: expected bad_request, got %s", body, c)
		}
	}
}

func TestSetTracking_PermissionDenied(t *testing.T) {
	env := makeEnv(t, nil)
	env.gate.SetLocationGranted(false)
	app := setupApp(env.deps)

	code, body := do(t, app, "PUT", "/v1/tracking", `{"enabled":true}`)
	if code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
	if c := errorCode(t, body); c != "forbidden" {
		t.Errorf("expected forbidden, got %s", c)
	}
}

func TestSetTracking_ProviderDisabled(t *testing.T) {
	env := makeEnv(t, nil)
	env.sim.SetEnabled(false)
	app := setupApp(env.deps)

	code, _ := do(t, app, "PUT", "/v1/tracking", `{"enabled":true}`)
	if code != 503 {
		t.Fatalf("expected 503, got %d", code)
	}
}

func TestSetProximity_RequiresTracking(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	code, body := do(t, app, "PUT", "/v1/proximity", `{"enabled":true}`)
	if code != 409 {
		t.Fatalf("expected 409, got %d", code)
	}
	if c := errorCode(t, body); c != "conflict" {
		t.Errorf("expected conflict, got %s", c)
	}
}

func TestSetProximity_StoppedWithTracking(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	do(t, app, "PUT", "/v1/tracking", `{"enabled":true}`)
	code, body := do(t, app, "PUT", "/v1/proximity", `{"enabled":true}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	if st := decodeStatus(t, body); st.Proximity != domain.Running {
		t.Fatalf("expected proximity running, got %s", st.Proximity)
	}

	_, body = do(t, app, "PUT", "/v1/tracking", `{"enabled":false}`)
	st := decodeStatus(t, body)
	if st.Tracking != domain.Stopped || st.Proximity != domain.Stopped {
		t.Errorf("expected both stopped, got %+v", st)
	}
}

func TestSetPermission(t *testing.T) {
	env := makeEnv(t, nil)
	app := setupApp(env.deps)

	code, body := do(t, app, "PUT", "/v1/permissions/location", `{"granted":false}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if decodeStatus(t, body).PermissionGranted {
		t.Error("expected permission revoked")
	}
	if env.gate.LocationGranted() {
		t.Error("gate should be closed")
	}

	code, _ = do(t, app, "PUT", "/v1/permissions/location", `{}`)
	if code != 400 {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestLocation_NoneYet(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	code, body := do(t, app, "GET", "/v1/location", "")
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
	if c := errorCode(t, body); c != "not_found" {
		t.Errorf("expected not_found, got %s", c)
	}
}

func TestLocation_FallsBackToStore(t *testing.T) {
	stored := &domain.LocationFix{Lat: 1, Lon: 2, DeviceID: "d9"}
	env := makeEnv(t, nil, func(d *handler.Dependencies) {
		d.Locations = &mockLocations{fix: stored}
	})
	app := setupApp(env.deps)

	code, body := do(t, app, "GET", "/v1/location", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var fix domain.LocationFix
	json.Unmarshal(body, &fix)
	if fix.DeviceID != "d9" {
		t.Errorf("expected stored fix, got %+v", fix)
	}
}

func TestLocation_AfterTracking(t *testing.T) {
	env := makeEnv(t, nil)
	app := setupApp(env.deps)

	do(t, app, "PUT", "/v1/tracking", `{"enabled":true}`)
	eventually(t, "first fix", func() bool {
		return env.deps.Control.Tracking().LastFix() != nil
	})

	code, body := do(t, app, "GET", "/v1/location", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var fix domain.LocationFix
	json.Unmarshal(body, &fix)
	if fix.Lat != bilbao.Lat || fix.DeviceID != "sim-1" {
		t.Errorf("unexpected fix %+v", fix)
	}
}

func TestCheckNow_Match(t *testing.T) {
	catalog := &mockCatalog{
		fetchAllFn: func(ctx context.Context) ([]domain.Place, error) {
			return []domain.Place{
				{ID: "far", Name: "Far", Location: domain.GeoPoint{Lat: 0, Lon: 0}},
				{ID: "here", Name: "Guggenheim", Location: bilbao},
			}, nil
		},
	}
	env := makeEnv(t, catalog)
	app := setupApp(env.deps)

	code, body := do(t, app, "POST", "/v1/proximity/check", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	var event domain.ProximityEvent
	json.Unmarshal(body, &event)
	if event.Place.ID != "here" {
		t.Errorf("expected match on place here, got %+v", event.Place)
	}
	if n := env.sink.notified(); n != 1 {
		t.Errorf("expected one notification, got %d", n)
	}
}

func TestCheckNow_NoMatch(t *testing.T) {
	catalog := &mockCatalog{
		fetchAllFn: func(ctx context.Context) ([]domain.Place, error) {
			return []domain.Place{{ID: "far", Location: domain.GeoPoint{Lat: 0, Lon: 0}}}, nil
		},
	}
	app := setupApp(makeEnv(t, catalog).deps)

	code, _ := do(t, app, "POST", "/v1/proximity/check", "")
	if code != 204 {
		t.Fatalf("expected 204, got %d", code)
	}
}

func TestCheckNow_CatalogFailure(t *testing.T) {
	catalog := &mockCatalog{
		fetchAllFn: func(ctx context.Context) ([]domain.Place, error) {
			return nil, domain.ErrNetwork
		},
	}
	app := setupApp(makeEnv(t, catalog).deps)

	code, body := do(t, app, "POST", "/v1/proximity/check", "")
	if code != 502 {
		t.Fatalf("expected 502, got %d", code)
	}
	if c := errorCode(t, body); c != "upstream_error" {
		t.Errorf("expected upstream_error, got %s", c)
	}
}

func TestCheckNow_NotifyFailureStillReportsEvent(t *testing.T) {
	catalog := &mockCatalog{
		fetchAllFn: func(ctx context.Context) ([]domain.Place, error) {
			return []domain.Place{{ID: "here", Location: bilbao}}, nil
		},
	}
	env := makeEnv(t, catalog)
	env.sink.err = errors.New("surface down")
	defer func() {
		if env.sink.notified() != 1 {
			t.Error("expected one notify attempt")
		}
	}()
	app := setupApp(env.deps)

	code, _ := do(t, app, "POST", "/v1/proximity/check", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestNotifications(t *testing.T) {
	notes := &mockNotifications{
		currentFn: func(ctx context.Context, key int) (*domain.Notification, error) {
			if key != 2 {
				return nil, domain.ErrNotFound
			}
			return &domain.Notification{Title: usecases.NearbyTitle, Body: "x", DedupeKey: 2}, nil
		},
	}
	env := makeEnv(t, nil, func(d *handler.Dependencies) { d.Notifications = notes })
	app := setupApp(env.deps)

	code, body := do(t, app, "GET", "/v1/notifications/2", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var n domain.Notification
	json.Unmarshal(body, &n)
	if n.Title != usecases.NearbyTitle {
		t.Errorf("unexpected notification %+v", n)
	}

	if code, _ := do(t, app, "GET", "/v1/notifications/7", ""); code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
	if code, _ := do(t, app, "GET", "/v1/notifications/abc", ""); code != 400 {
		t.Errorf("expected 400, got %d", code)
	}

	if code, _ := do(t, app, "DELETE", "/v1/notifications/2", ""); code != 204 {
		t.Errorf("expected 204, got %d", code)
	}
	if len(notes.dismissed) != 1 || notes.dismissed[0] != 2 {
		t.Errorf("expected key 2 dismissed, got %v", notes.dismissed)
	}
}

func TestMoveSimulator(t *testing.T) {
	env := makeEnv(t, nil)
	app := setupApp(env.deps)

	code, _ := do(t, app, "PUT", "/v1/simulation/position", `{"lat":40.4168,"lon":-3.7038}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if p := env.sim.Position(); p.Lat != 40.4168 || p.Lon != -3.7038 {
		t.Errorf("simulator not moved: %+v", p)
	}

	if code, _ := do(t, app, "PUT", "/v1/simulation/position", `{"lat":91,"lon":0}`); code != 400 {
		t.Errorf("expected 400 for out-of-range lat, got %d", code)
	}
}

func TestMoveSimulator_NotConfigured(t *testing.T) {
	env := makeEnv(t, nil, func(d *handler.Dependencies) { d.Simulator = nil })
	app := setupApp(env.deps)

	code, _ := do(t, app, "PUT", "/v1/simulation/position", `{"lat":1,"lon":1}`)
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestGraphQL_Status(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	query := `{"query":"{ status { tracking proximity permissionGranted } }"}`
	code, body := do(t, app, "POST", "/graphql", query)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}

	var result struct {
		Data struct {
			Status struct {
				Tracking          string `json:"tracking"`
				Proximity         string `json:"proximity"`
				PermissionGranted bool   `json:"permissionGranted"`
			} `json:"status"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid body %s: %v", body, err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Data.Status.Tracking != "stopped" || !result.Data.Status.PermissionGranted {
		t.Errorf("unexpected status %+v", result.Data.Status)
	}
}

func TestGraphQL_SetTrackingMutation(t *testing.T) {
	env := makeEnv(t, nil)
	app := setupApp(env.deps)

	query := `{"query":"mutation { setTracking(enabled: true) { tracking } }"}`
	code, body := do(t, app, "POST", "/graphql", query)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(string(body), `"tracking":"running"`) {
		t.Errorf("expected running tracking, got %s", body)
	}
	if env.deps.Control.Status().Tracking != domain.Running {
		t.Error("tracking should be running")
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	code, body := do(t, app, "GET", "/v1/health", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(string(body), "healthy") {
		t.Errorf("unexpected body %s", body)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	code, body := do(t, app, "GET", "/v1/ready", "")
	if code != 503 {
		t.Fatalf("expected 503, got %d", code)
	}
	if !strings.Contains(string(body), `"database":"not configured"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	req := httptest.NewRequest("GET", "/v1/status", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeEnv(t, nil).deps)

	code, _ := do(t, app, "GET", "/ws", "")
	if code != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", code)
	}
}
