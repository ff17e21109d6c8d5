package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Cookie names for the signed session artifact.
const (
	AccessCookieName  = "access"
	RefreshCookieName = "refresh"
)

type tokenUse string

const (
	useAccess  tokenUse = "access"
	useRefresh tokenUse = "refresh"
)

// ErrInvalidSession is returned when a session cookie is missing, expired,
// tampered with, or of the wrong kind.
var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	Use tokenUse `json:"use"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies the signed session cookies: a long-lived
// refresh token and a short-lived access token, both HS256 JWTs bound to the
// account's Spotify ID.
type Sessions struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewSessions creates a session issuer with the given signing secret and
// cookie lifetimes.
func NewSessions(secret []byte, accessTTL, refreshTTL time.Duration) *Sessions {
	return &Sessions{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *Sessions) SetNow(now func() time.Time) {
	s.now = now
}

// Issue sets a fresh refresh cookie and access cookie for the account.
func (s *Sessions) Issue(w http.ResponseWriter, spotifyID string) error {
	refresh, err := s.sign(spotifyID, useRefresh, s.refreshTTL)
	if err != nil {
		return err
	}
	access, err := s.sign(spotifyID, useAccess, s.accessTTL)
	if err != nil {
		return err
	}

	setSessionCookie(w, RefreshCookieName, refresh, s.refreshTTL)
	setSessionCookie(w, AccessCookieName, access, s.accessTTL)
	return nil
}

// Clear expires both session cookies.
func (s *Sessions) Clear(w http.ResponseWriter) {
	clearSessionCookie(w, RefreshCookieName)
	clearSessionCookie(w, AccessCookieName)
}

// Refresh verifies the refresh cookie on the request and, if valid, issues a
// new cookie pair. Returns the account's Spotify ID.
func (s *Sessions) Refresh(w http.ResponseWriter, r *http.Request) (string, error) {
	spotifyID, err := s.verifyCookie(r, RefreshCookieName, useRefresh)
	if err != nil {
		return "", err
	}
	if err := s.Issue(w, spotifyID); err != nil {
		return "", err
	}
	return spotifyID, nil
}

// Authenticate verifies the access cookie on the request and returns the
// account's Spotify ID.
func (s *Sessions) Authenticate(r *http.Request) (string, error) {
	return s.verifyCookie(r, AccessCookieName, useAccess)
}

func (s *Sessions) sign(spotifyID string, use tokenUse, ttl time.Duration) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Use: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   spotifyID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

func (s *Sessions) verifyCookie(r *http.Request, name string, use tokenUse) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", ErrInvalidSession
	}

	var claims sessionClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	if claims.Use != use || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

// Session cookies are HTTP-only and transport-secure, and allow cross-site
// sends so the browser frontend can live on its own origin.
func setSessionCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   -1,
	})
}
