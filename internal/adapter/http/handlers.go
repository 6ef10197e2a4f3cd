package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/couchcryptid/weather-alert-dashboard/internal/auth"
	"github.com/couchcryptid/weather-alert-dashboard/internal/cache"
	"github.com/couchcryptid/weather-alert-dashboard/internal/domain"
)

// riskModelName is the stable cache slot the risk model is stored under.
const riskModelName = "storm_risk_model"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool     `json:"authenticated"`
	Role          string   `json:"role,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	// Reuse the caller's session so failed attempts accumulate toward the
	// lockout; first-time callers get a fresh session and cookie.
	token, sess, ok := s.session(r)
	if !ok {
		token, sess = s.deps.Sessions.Create()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	wasAuthenticated := sess.IsAuthenticated()
	res := sess.Login(req.Username, req.Password)
	if !res.Success {
		outcome := "invalid"
		status := http.StatusUnauthorized
		if res.Locked {
			outcome = "lockout"
			status = http.StatusLocked
		}
		s.countLogin(outcome)
		writeJSON(w, status, map[string]any{"success": false, "error": res.Err})
		return
	}

	s.countLogin("success")
	if !wasAuthenticated && s.deps.Metrics != nil {
		s.deps.Metrics.ActiveSessions.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"role":        res.Role,
		"permissions": sess.Permissions(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, sess, ok := s.session(r)
	if ok {
		if sess.IsAuthenticated() && s.deps.Metrics != nil {
			s.deps.Metrics.ActiveSessions.Dec()
		}
		sess.Logout()
		s.deps.Sessions.Delete(token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.session(r)
	if !ok || !sess.IsAuthenticated() {
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		Role:          sess.Role(),
		Permissions:   sess.Permissions(),
	})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	cond, location, ok := s.fetchConditions(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location":   location,
		"conditions": cond,
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	cond, location, ok := s.fetchConditions(w, r)
	if !ok {
		return
	}

	model := s.riskModel()
	assessment := model.Assess(cond)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RiskAssessments.WithLabelValues(string(assessment.Level)).Inc()
	}

	if s.deps.Alerts != nil && (assessment.Level == domain.RiskHigh || assessment.Level == domain.RiskCritical) {
		alert := domain.NewAlert(location, assessment, cond, s.deps.Clock.Now())
		if err := s.deps.Alerts.Publish(r.Context(), alert); err != nil {
			// Alerting is best-effort; the assessment still goes back to the caller.
			s.logger.Error("alert publish failed", "alert_id", alert.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"location":   location,
		"conditions": cond,
		"assessment": assessment,
		"model":      model.Name,
	})
}

// fetchConditions resolves the location query, fetches (or memoizes) current
// conditions, and mirrors them into the data cache. On failure it writes the
// error response and returns ok=false.
func (s *Server) fetchConditions(w http.ResponseWriter, r *http.Request) (domain.Conditions, string, bool) {
	if s.deps.Weather == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "weather provider is not configured"})
		return domain.Conditions{}, "", false
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		location = s.deps.DefaultLocation
	}

	cond, err := s.deps.Weather.CurrentConditions(r.Context(), location)
	if err != nil {
		s.logger.Error("weather fetch failed", "location", location, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "weather data unavailable"})
		return domain.Conditions{}, "", false
	}

	// Best-effort mirror into the data cache; the key embeds the location so
	// different queries never alias.
	s.deps.Cache.Save(cache.NamespaceData, "weather_"+slugify(location), cond, map[string]any{
		"location": location,
		"source":   cond.Source,
	})

	return cond, location, true
}

// riskModel loads the active model from the model cache, seeding the default
// rule set on a miss so the slot is visible on disk.
func (s *Server) riskModel() domain.RiskModel {
	var model domain.RiskModel
	if s.deps.Cache.Load(cache.NamespaceModel, riskModelName, &model) {
		return model
	}
	model = domain.DefaultRiskModel()
	s.deps.Cache.Save(cache.NamespaceModel, riskModelName, model, map[string]any{
		"model": model.Name,
	})
	return model
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request, _ *auth.Session) {
	writeJSON(w, http.StatusOK, s.deps.Cache.Stats())
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, _ *http.Request, _ *auth.Session) {
	writeJSON(w, http.StatusOK, s.deps.Cache.CleanupExpired())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request, _ *auth.Session) {
	ok := s.deps.Cache.ClearAll()
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]any{"success": ok})
}

func (s *Server) countLogin(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func decodeJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}

// slugify lowercases the location and collapses everything outside [a-z0-9]
// into underscores, producing a stable file-stem-safe cache key.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
