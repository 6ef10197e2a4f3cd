package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-alert-dashboard/internal/adapter/openweather"
	"github.com/couchcryptid/weather-alert-dashboard/internal/auth"
	"github.com/couchcryptid/weather-alert-dashboard/internal/cache"
	"github.com/couchcryptid/weather-alert-dashboard/internal/domain"
	"github.com/couchcryptid/weather-alert-dashboard/internal/observability"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AlertPublisher produces storm alerts for downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, alert domain.Alert) error
}

// Deps bundles the collaborators the server needs. Weather and Alerts may be
// nil when the corresponding feature is disabled.
type Deps struct {
	Sessions *SessionStore
	Cache    *cache.Manager
	Weather  openweather.Provider
	Alerts   AlertPublisher
	Ready    ReadinessChecker

	DefaultLocation string

	Clock   clockwork.Clock
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Server exposes the authenticated dashboard API plus health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: deps.Logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/logout", s.handleLogout)
	mux.HandleFunc("GET /api/v1/session", s.handleSession)

	mux.HandleFunc("GET /api/v1/weather", s.requireAuth(s.handleWeather))
	mux.HandleFunc("GET /api/v1/weather/risk", s.requireAuth(s.handleRisk))

	mux.HandleFunc("GET /api/v1/cache/stats", s.requirePermission(auth.CapAdmin, s.handleCacheStats))
	mux.HandleFunc("POST /api/v1/cache/cleanup", s.requirePermission(auth.CapAdmin, s.handleCacheCleanup))
	mux.HandleFunc("POST /api/v1/cache/clear", s.requirePermission(auth.CapAdmin, s.handleCacheClear))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// session resolves the request's session from its cookie, if any.
func (s *Server) session(r *http.Request) (string, *auth.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", nil, false
	}
	sess, ok := s.deps.Sessions.Get(c.Value)
	return c.Value, sess, ok
}

type authedHandler func(w http.ResponseWriter, r *http.Request, sess *auth.Session)

func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess, ok := s.session(r)
		if !ok || !sess.IsAuthenticated() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) requirePermission(capability string, next authedHandler) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
		if !sess.HasPermission(capability) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
			return
		}
		next(w, r, sess)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
