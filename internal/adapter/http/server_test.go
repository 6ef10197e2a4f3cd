package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/weather-alert-dashboard/internal/adapter/http"
	"github.com/couchcryptid/weather-alert-dashboard/internal/auth"
	"github.com/couchcryptid/weather-alert-dashboard/internal/cache"
	"github.com/couchcryptid/weather-alert-dashboard/internal/domain"
	"github.com/couchcryptid/weather-alert-dashboard/internal/observability"
)

type stubWeather struct {
	cond domain.Conditions
	err  error
}

func (s *stubWeather) CurrentConditions(_ context.Context, _ string) (domain.Conditions, error) {
	return s.cond, s.err
}

type recordingAlerts struct {
	published []domain.Alert
	err       error
}

func (r *recordingAlerts) Publish(_ context.Context, a domain.Alert) error {
	if r.err != nil {
		return r.err
	}
	r.published = append(r.published, a)
	return nil
}

type readyOK struct{}

func (readyOK) CheckReadiness(_ context.Context) error { return nil }

type testEnv struct {
	srv      *httpadapter.Server
	alerts   *recordingAlerts
	cache    *cache.Manager
	sessions *httpadapter.SessionStore
	clock    *clockwork.FakeClock
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, weather *stubWeather) *testEnv {
	t.Helper()

	creds, err := auth.NewCredentials("admin-secret", "guest-secret")
	require.NoError(t, err)

	logger := discardLogger()
	clk := clockwork.NewFakeClock()
	sessions := httpadapter.NewSessionStore(func() *auth.Session {
		return auth.NewSession(creds, auth.Options{MaxAttempts: 3, Clock: clk, Logger: logger})
	}, clk)

	mgr, err := cache.NewManager(t.TempDir(), cache.Options{Logger: logger})
	require.NoError(t, err)

	alerts := &recordingAlerts{}

	deps := httpadapter.Deps{
		Sessions:        sessions,
		Cache:           mgr,
		Alerts:          alerts,
		Ready:           readyOK{},
		DefaultLocation: "Cordoba,AR",
		Clock:           clk,
		Metrics:         observability.NewMetricsForTesting(),
		Logger:          logger,
	}
	if weather != nil {
		deps.Weather = weather
	}

	return &testEnv{
		srv:      httpadapter.NewServer(":0", deps),
		alerts:   alerts,
		cache:    mgr,
		sessions: sessions,
		clock:    clk,
	}
}

// do issues a request, carrying the session cookie between calls.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": username, "password": password,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, "login should succeed: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "dashboard_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_SetsCookieAndRole(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "admin", "password": "admin-secret",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success     bool     `json:"success"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "admin", body.Role)
	assert.Contains(t, body.Permissions, "ml_advanced")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "dashboard_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "admin", "password": "wrong",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid username or password")
}

func TestLogin_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t, nil)

	// First failed attempt issues the cookie that tracks subsequent ones.
	rec := env.do(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "admin", "password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	cookie := cookies[0]

	for i := 0; i < 2; i++ {
		rec = env.do(t, http.MethodPost, "/api/v1/login", map[string]string{
			"username": "admin", "password": "wrong",
		}, cookie)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// Threshold reached: correct credentials are rejected with 423.
	rec = env.do(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "admin", "password": "admin-secret",
	}, cookie)
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many failed attempts")
}

func TestSession_Lifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/session", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)

	cookie := env.login(t, "guest", "guest-secret")

	rec = env.do(t, http.MethodGet, "/api/v1/session", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
	assert.Contains(t, rec.Body.String(), `"guest"`)

	rec = env.do(t, http.MethodPost, "/api/v1/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/session", nil, cookie)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
}

func TestLogout_Idempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodPost, "/api/v1/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionStore_DropsAbandonedPreAuthSessions(t *testing.T) {
	env := newTestEnv(t, nil)

	// Cookie-less failed logins each mint a session.
	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/login", map[string]string{
			"username": "admin", "password": "wrong",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	require.Equal(t, 5, env.sessions.Len())

	adminCookie := env.login(t, "admin", "admin-secret")
	env.clock.Advance(11 * time.Minute)

	// The next cookie-less login sweeps the abandoned sessions; only it and
	// the authenticated one remain.
	rec := env.do(t, http.MethodPost, "/api/v1/login", map[string]string{
		"username": "guest", "password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 2, env.sessions.Len())

	rec = env.do(t, http.MethodGet, "/api/v1/session", nil, adminCookie)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
}

func TestWeather_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, &stubWeather{cond: domain.Conditions{Temperature: 25}})

	rec := env.do(t, http.MethodGet, "/api/v1/weather", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWeather_ReturnsConditionsAndCachesThem(t *testing.T) {
	env := newTestEnv(t, &stubWeather{cond: domain.Conditions{
		Temperature: 25, Humidity: 60, Source: "OpenWeatherMap",
	}})
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/weather?location=Rosario,AR", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"location":"Rosario,AR"`)
	assert.Contains(t, rec.Body.String(), `"temperature":25`)

	// The fetch is mirrored into the data cache under a location-derived key.
	var cached domain.Conditions
	assert.True(t, env.cache.Load(cache.NamespaceData, "weather_rosario_ar", &cached))
	assert.Equal(t, 25.0, cached.Temperature)
}

func TestWeather_DefaultLocation(t *testing.T) {
	env := newTestEnv(t, &stubWeather{cond: domain.Conditions{Temperature: 20}})
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/weather", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"location":"Cordoba,AR"`)
}

func TestWeather_ProviderDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/weather", nil, cookie)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWeather_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, &stubWeather{err: errors.New("boom")})
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/weather", nil, cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRisk_LowRiskNoAlert(t *testing.T) {
	env := newTestEnv(t, &stubWeather{cond: domain.Conditions{
		Temperature: 22, Humidity: 50, Pressure: 1013, WindSpeed: 5, CloudCover: 20,
	}})
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/weather/risk", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"level":"low"`)
	assert.Empty(t, env.alerts.published)
}

func TestRisk_HighRiskPublishesAlert(t *testing.T) {
	env := newTestEnv(t, &stubWeather{cond: domain.Conditions{
		Temperature: 35, Humidity: 90, Pressure: 990, WindSpeed: 5, CloudCover: 20,
	}})
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/weather/risk?location=Cordoba,AR", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"level":"high"`)

	require.Len(t, env.alerts.published, 1)
	assert.Equal(t, "Cordoba,AR", env.alerts.published[0].Location)
	assert.Equal(t, domain.RiskHigh, env.alerts.published[0].Level)
}

func TestRisk_PublishFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t, &stubWeather{cond: domain.Conditions{
		Temperature: 35, Humidity: 90, Pressure: 990,
	}})
	env.alerts.err = fmt.Errorf("kafka down")
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/weather/risk", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRisk_SeedsModelCache(t *testing.T) {
	env := newTestEnv(t, &stubWeather{cond: domain.Conditions{Temperature: 22, Pressure: 1013}})
	cookie := env.login(t, "guest", "guest-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/weather/risk", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var model domain.RiskModel
	require.True(t, env.cache.Load(cache.NamespaceModel, "storm_risk_model", &model))
	assert.Equal(t, domain.DefaultRiskModel(), model)
}

func TestCacheAdmin_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/cache/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	guestCookie := env.login(t, "guest", "guest-secret")
	rec = env.do(t, http.MethodGet, "/api/v1/cache/stats", nil, guestCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/cache/cleanup", nil, guestCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/cache/clear", nil, guestCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCacheAdmin_StatsAndClear(t *testing.T) {
	env := newTestEnv(t, nil)
	require.True(t, env.cache.Save(cache.NamespaceData, "demo", map[string]int{"x": 1}, nil))

	adminCookie := env.login(t, "admin", "admin-secret")

	rec := env.do(t, http.MethodGet, "/api/v1/cache/stats", nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalDataFiles)

	rec = env.do(t, http.MethodPost, "/api/v1/cache/clear", nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/cache/stats", nil, adminCookie)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.TotalDataFiles)
	assert.Zero(t, stats.TotalModels)
}

func TestCacheAdmin_Cleanup(t *testing.T) {
	env := newTestEnv(t, nil)
	adminCookie := env.login(t, "admin", "admin-secret")

	rec := env.do(t, http.MethodPost, "/api/v1/cache/cleanup", nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.CleanupStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.ModelsRemoved)
	assert.Zero(t, stats.DataRemoved)
}
