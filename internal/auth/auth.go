// Package auth implements the single-admin session for the web UI. The
// admin credential pair comes from the environment; a successful login
// issues a signed session cookie.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const SessionCookieName = "salarybook_session"

var ErrInvalidCredentials = errors.New("invalid credentials")

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager verifies the admin credentials and mints and validates session
// tokens.
type Manager struct {
	username     string
	passwordHash string
	secret       []byte
	ttl          time.Duration
	secureCookie bool
}

type Config struct {
	Username     string
	PasswordHash string // bcrypt hash
	Secret       string // HS256 signing key
	TTL          time.Duration
	SecureCookie bool
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Username == "" || cfg.PasswordHash == "" {
		return nil, errors.New("admin username and password hash are required")
	}
	if len(cfg.Secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		username:     cfg.Username,
		passwordHash: cfg.PasswordHash,
		secret:       []byte(cfg.Secret),
		ttl:          ttl,
		secureCookie: cfg.SecureCookie,
	}, nil
}

// Login checks the credentials and returns a signed session token.
// Username comparison is exact; the password is checked against the bcrypt
// hash so timing reveals nothing about the stored credential.
func (m *Manager) Login(username, password string) (string, error) {
	if username != m.username {
		// Burn a bcrypt comparison anyway so unknown usernames cost the
		// same as wrong passwords.
		bcrypt.CompareHashAndPassword([]byte(m.passwordHash), []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses a session token and returns the authenticated username.
func (m *Manager) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid session token")
	}
	return claims.Username, nil
}

// SessionCookie builds the cookie carrying the session token.
func (m *Manager) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds the cookie that ends the session.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// RequireSession wraps a handler and redirects unauthenticated browsers to
// the login page.
func (m *Manager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if _, err := m.Validate(cookie.Value); err != nil {
			http.SetCookie(w, m.ClearCookie())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
