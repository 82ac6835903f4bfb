package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/attendai/internal/database"
)

const (
	sessionCookieName = "attendai_session"
	sessionDuration   = 24 * time.Hour
	tokenIssuer       = "attendai"
)

// Session is an authenticated user, carried in a signed token.
type Session struct {
	ID        string
	Token     string
	UserID    int64
	Username  string
	Role      database.Role
	StudentID *int64
	ExpiresAt time.Time
}

// IsTeacher reports whether the session belongs to a teacher.
func (s *Session) IsTeacher() bool {
	return s.Role == database.RoleTeacher
}

type sessionClaims struct {
	UserID    int64         `json:"uid"`
	Username  string        `json:"username"`
	Role      database.Role `json:"role"`
	StudentID *int64        `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates session tokens.
// Tokens are stateless; logout revokes the token id until it expires.
type SessionManager struct {
	secret  []byte
	revoked map[string]time.Time
	mu      sync.RWMutex
}

// NewSessionManager creates a new session manager
func NewSessionManager(secret string) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "attendai-dev-secret-change-in-production"
	}
	return &SessionManager{
		secret:  []byte(secret),
		revoked: make(map[string]time.Time),
	}
}

// CreateSession issues a signed token for the user
func (sm *SessionManager) CreateSession(u *database.User) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		StudentID: u.StudentID,
		ExpiresAt: now.Add(sessionDuration).Truncate(time.Second),
	}

	claims := sessionClaims{
		UserID:    session.UserID,
		Username:  session.Username,
		Role:      session.Role,
		StudentID: session.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   u.Username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	session.Token = token
	return session, nil
}

// ParseToken validates a token and returns its session, or nil
func (sm *SessionManager) ParseToken(token string) *Session {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil
	}

	if sm.isRevoked(claims.ID) {
		return nil
	}

	return &Session{
		ID:        claims.ID,
		Token:     token,
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		StudentID: claims.StudentID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

// DeleteSession revokes a session until its token expires
func (sm *SessionManager) DeleteSession(session *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, exp := range sm.revoked {
		if now.After(exp) {
			delete(sm.revoked, id)
		}
	}
	sm.revoked[session.ID] = session.ExpiresAt
}

func (sm *SessionManager) isRevoked(id string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.revoked[id]
	return ok
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from the cookie or a Bearer token
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if session := sm.ParseToken(cookie.Value); session != nil {
			return session
		}
	}

	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return sm.ParseToken(token)
	}

	return nil
}

// SessionData is the public view of a session
type SessionData struct {
	SessionID string        `json:"session_id"`
	Username  string        `json:"username"`
	Role      database.Role `json:"role"`
	StudentID *int64        `json:"student_id,omitempty"`
	ExpiresAt string        `json:"expires_at"`
}

// ToJSON returns the session data for JSON response
func (s *Session) ToJSON() SessionData {
	return SessionData{
		SessionID: s.ID,
		Username:  s.Username,
		Role:      s.Role,
		StudentID: s.StudentID,
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// MarshalJSON implements json.Marshaler (excludes the token)
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}

var errNoSession = errors.New("unauthorized")
