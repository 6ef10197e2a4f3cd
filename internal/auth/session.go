package auth

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Default brute-force mitigation settings, applied when Options leaves them zero.
const (
	DefaultMaxAttempts   = 10
	DefaultLockoutWindow = 180 * time.Second
)

// LoginResult is the structured outcome of a login attempt. Failures carry a
// generic message that never reveals which of username/secret was wrong.
type LoginResult struct {
	Success bool   `json:"success"`
	Role    string `json:"role,omitempty"`
	Err     string `json:"error,omitempty"`

	// Locked distinguishes lockout rejections from credential failures for
	// callers that map results onto status codes; it is not serialized.
	Locked bool `json:"-"`
}

const (
	errInvalidCredentials = "invalid username or password"
	errLockedOut          = "too many failed attempts, try again later"
)

// Options configures a Session's lockout policy.
type Options struct {
	MaxAttempts   int
	LockoutWindow time.Duration
	Clock         clockwork.Clock
	Logger        *slog.Logger
}

// Session tracks the authentication state for one user session. Requests
// sharing a cookie run concurrently, so all state is guarded by a mutex.
type Session struct {
	creds *Credentials

	maxAttempts   int
	lockoutWindow time.Duration
	clock         clockwork.Clock
	logger        *slog.Logger

	mu             sync.Mutex
	authenticated  bool
	role           string
	failedAttempts int
	lastFailure    time.Time
}

// NewSession creates an unauthenticated session backed by the given credential store.
func NewSession(creds *Credentials, opts Options) *Session {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.LockoutWindow <= 0 {
		opts.LockoutWindow = DefaultLockoutWindow
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		creds:         creds,
		maxAttempts:   opts.MaxAttempts,
		lockoutWindow: opts.LockoutWindow,
		clock:         opts.Clock,
		logger:        opts.Logger,
	}
}

// Login checks credentials and transitions the session to authenticated on
// success. While locked out it rejects immediately without touching the
// failure counter or re-checking credentials.
func (s *Session) Login(username, secret string) LoginResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isLocked() {
		s.logger.Warn("login rejected, session locked out", "username", username)
		return LoginResult{Success: false, Err: errLockedOut, Locked: true}
	}

	if username == "" || secret == "" {
		s.recordFailure(username)
		return LoginResult{Success: false, Err: errInvalidCredentials}
	}

	if !s.creds.Check(username, secret) {
		s.recordFailure(username)
		return LoginResult{Success: false, Err: errInvalidCredentials}
	}

	s.authenticated = true
	s.role = username
	s.failedAttempts = 0
	s.lastFailure = time.Time{}
	s.logger.Info("login succeeded", "role", username)
	return LoginResult{Success: true, Role: username}
}

// Logout clears authentication state and failure counters. Idempotent.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authenticated {
		s.logger.Info("logout", "role", s.role)
	}
	s.authenticated = false
	s.role = ""
	s.failedAttempts = 0
	s.lastFailure = time.Time{}
}

// IsAuthenticated reports whether this session has logged in.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Role returns the authenticated role, or "" when unauthenticated.
func (s *Session) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return ""
	}
	return s.role
}

// HasPermission reports whether the session's role grants the capability.
// Unauthenticated sessions have no capabilities.
func (s *Session) HasPermission(capability string) bool {
	for _, p := range s.Permissions() {
		if p == capability {
			return true
		}
	}
	return false
}

// Permissions returns the capability set of the current role.
func (s *Session) Permissions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return nil
	}
	return PermissionsFor(s.role)
}

// isLocked evaluates the lockout state machine. The LOCKED→OPEN transition is
// purely time-based: once the cooldown window elapses since the last failure,
// the counter resets and logins are allowed again. Callers hold s.mu.
func (s *Session) isLocked() bool {
	if s.failedAttempts < s.maxAttempts {
		return false
	}
	if s.lastFailure.IsZero() {
		return false
	}
	if s.clock.Since(s.lastFailure) < s.lockoutWindow {
		return true
	}
	s.failedAttempts = 0
	s.lastFailure = time.Time{}
	return false
}

// recordFailure bumps the counter. Callers hold s.mu.
func (s *Session) recordFailure(username string) {
	s.failedAttempts++
	s.lastFailure = s.clock.Now()
	s.logger.Warn("login failed", "username", username, "attempt", s.failedAttempts)
}
