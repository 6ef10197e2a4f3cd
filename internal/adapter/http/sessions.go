package http

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-alert-dashboard/internal/auth"
)

// sessionCookie names the HTTP cookie carrying the session token.
const sessionCookie = "dashboard_session"

// pendingSessionTTL bounds how long a never-authenticated session survives
// without its cookie coming back. It must exceed the lockout window so
// failed-attempt tracking is not evicted out from under a throttled client.
const pendingSessionTTL = 10 * time.Minute

type sessionEntry struct {
	sess     *auth.Session
	lastSeen time.Time
}

// SessionStore maps opaque tokens to per-user sessions. The mutex guards the
// map; each Session guards its own state.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	factory  func() *auth.Session
	clock    clockwork.Clock
}

// NewSessionStore creates a store that builds new sessions with factory.
// A nil clock selects real time.
func NewSessionStore(factory func() *auth.Session, clock clockwork.Clock) *SessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{
		sessions: make(map[string]sessionEntry),
		factory:  factory,
		clock:    clock,
	}
}

// Get returns the session for token, if one exists, and refreshes its
// last-seen time.
func (s *SessionStore) Get(token string) (*auth.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.clock.Now()
	s.sessions[token] = e
	return e.sess, true
}

// Create mints a fresh token and session, evicting abandoned pre-auth
// sessions on the way so cookie-less clients cannot grow the map unboundedly.
func (s *SessionStore) Create() (string, *auth.Session) {
	token := newToken()
	sess := s.factory()

	s.mu.Lock()
	s.evictStale()
	s.sessions[token] = sessionEntry{sess: sess, lastSeen: s.clock.Now()}
	s.mu.Unlock()
	return token, sess
}

// Delete removes the session for token. Unknown tokens are a no-op.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// evictStale drops sessions that never authenticated and whose cookie has
// not come back within pendingSessionTTL. Authenticated sessions are kept
// until logout. Callers hold s.mu.
func (s *SessionStore) evictStale() {
	for token, e := range s.sessions {
		if e.sess.IsAuthenticated() {
			continue
		}
		if s.clock.Since(e.lastSeen) > pendingSessionTTL {
			delete(s.sessions, token)
		}
	}
}

func newToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
