// Package auth keeps platform tokens server-side behind opaque session ids.
package auth

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"xpdash/internal/cache"
	"xpdash/internal/metrics"
)

// CookieName is the session cookie set on successful login.
const CookieName = "xpdash_session"

var (
	ErrNoSession      = errors.New("no session")
	ErrSessionExpired = errors.New("session expired")
	ErrTokenExpired   = errors.New("token already expired")
)

// Session binds a platform token to a login. The token never leaves the
// server.
type Session struct {
	ID        string
	Login     string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is a bounded in-memory session table. Entries live for the
// configured TTL, or until the token's own exp claim if that comes first.
type Store struct {
	sessions *cache.LRUCache[Session]
	ttl      time.Duration
	secure   bool
	active   atomic.Int64
	now      func() time.Time
}

func NewStore(ttl time.Duration, maxSessions int, secureCookie bool) *Store {
	s := &Store{ttl: ttl, secure: secureCookie, now: time.Now}
	s.sessions = cache.NewLRUCache[Session](maxSessions, ttl, func(string, Session) {
		metrics.SetSessions(int(s.active.Add(-1)))
	})
	return s
}

// Create stores token and returns the new session.
func (s *Store) Create(login, token string) (Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	if exp, ok := TokenExpiry(token); ok {
		if !exp.After(now) {
			return Session{}, ErrTokenExpired
		}
		if exp.Before(expires) {
			expires = exp
		}
	}
	sess := Session{
		ID:        uuid.NewString(),
		Login:     login,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: expires,
	}
	metrics.SetSessions(int(s.active.Add(1)))
	s.sessions.Set(sess.ID, sess)
	return sess, nil
}

// Get returns the live session for id.
func (s *Store) Get(id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNoSession
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return Session{}, ErrNoSession
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.sessions.Delete(id)
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Discard forgets the session. Unknown ids are ignored.
func (s *Store) Discard(id string) {
	if id != "" {
		s.sessions.Delete(id)
	}
}

// Len reports the number of stored sessions, expired ones included until
// they are reaped.
func (s *Store) Len() int {
	return s.sessions.Size()
}

// FromRequest resolves the session named by the request cookie.
func (s *Store) FromRequest(r *http.Request) (Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, ErrNoSession
	}
	return s.Get(c.Value)
}

// SetCookie writes the session cookie.
func (s *Store) SetCookie(w http.ResponseWriter, sess Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on the client.
func (s *Store) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenExpiry reads the exp claim without verifying the signature. The
// platform verifies tokens on every query; this only bounds session life.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
