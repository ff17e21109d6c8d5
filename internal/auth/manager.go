// Package auth owns the Spotify credential lifecycle and the signed session
// artifact the backend hands to browsers.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/ReeveMar/Backend/internal/spotify"
	"github.com/ReeveMar/Backend/internal/store"
)

// TokenRefresher abstracts the upstream token-refresh call for testing.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*spotify.TokenResponse, error)
}

// TokenManager guarantees a usable Spotify access token before any upstream
// data call, refreshing and persisting the credential when the stored one is
// inside the expiry safety margin.
type TokenManager struct {
	client   TokenRefresher
	accounts store.Accounts
	margin   time.Duration
	now      func() time.Time
}

// NewTokenManager creates a TokenManager with the given safety margin.
func NewTokenManager(client TokenRefresher, accounts store.Accounts, margin time.Duration) *TokenManager {
	return &TokenManager{
		client:   client,
		accounts: accounts,
		margin:   margin,
		now:      time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (m *TokenManager) SetNow(now func() time.Time) {
	m.now = now
}

// Valid returns an access token guaranteed to outlive the safety margin.
//
// A credential whose expiry is more than the margin away is returned as-is
// with no side effects. Otherwise exactly one refresh call is made; on
// success the account's credential is overwritten and persisted, on failure
// the account is left untouched and the error wraps spotify.ErrUpstreamAuth
// so the caller can demand a re-login. No retries.
func (m *TokenManager) Valid(ctx context.Context, account *store.Account) (string, error) {
	if account.TokenExpiry.After(m.now().Add(m.margin)) {
		return account.AccessToken, nil
	}

	tokens, err := m.client.Refresh(ctx, account.RefreshToken)
	if err != nil {
		return "", err
	}

	account.AccessToken = tokens.AccessToken
	account.TokenExpiry = m.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)

	if err := m.accounts.Save(ctx, account); err != nil {
		return "", fmt.Errorf("persisting refreshed credential: %w", err)
	}

	return account.AccessToken, nil
}
