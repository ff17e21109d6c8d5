package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/ReeveMar/Backend/internal/spotify"
	"github.com/ReeveMar/Backend/internal/store"
)

// Spotify OAuth endpoints and the scopes the backend requests.
var (
	spotifyEndpoint = oauth2.Endpoint{
		AuthURL:  "https://accounts.spotify.com/authorize",
		TokenURL: "https://accounts.spotify.com/api/token",
	}

	spotifyScopes = []string{
		"user-read-private",
		"user-read-email",
		"playlist-read-private",
		"playlist-read-collaborative",
		"playlist-modify-public",
		"playlist-modify-private",
		"user-top-read",
	}
)

// LoginClient is the slice of the Spotify client the login flow needs.
type LoginClient interface {
	ExchangeCode(ctx context.Context, code string) (*spotify.TokenResponse, error)
	Profile(ctx context.Context, accessToken string) (*spotify.Profile, error)
}

// Authenticator runs the first-login OAuth exchange: authorization URL out,
// authorization code in, account created or re-credentialed.
type Authenticator struct {
	oauth    *oauth2.Config
	client   LoginClient
	accounts store.Accounts
	now      func() time.Time
}

// NewAuthenticator wires the OAuth config for the given Spotify app.
func NewAuthenticator(clientID, clientSecret, redirectURI string, client LoginClient, accounts store.Accounts) *Authenticator {
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     spotifyEndpoint,
			Scopes:       spotifyScopes,
		},
		client:   client,
		accounts: accounts,
		now:      time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (a *Authenticator) SetNow(now func() time.Time) {
	a.now = now
}

// LoginURL returns the Spotify authorization URL carrying the given state.
func (a *Authenticator) LoginURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Login exchanges an authorization code for a credential pair, fetches the
// profile, and creates or re-credentials the account. An existing account
// keeps all of its cached statistics; only the credential fields change.
// The account is persisted exactly once, after all fields are known.
func (a *Authenticator) Login(ctx context.Context, code string) (*store.Account, error) {
	tokens, err := a.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := a.client.Profile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	account, err := a.accounts.Load(ctx, profile.ID)
	if errors.Is(err, store.ErrNotFound) {
		account = &store.Account{SpotifyID: profile.ID}
	} else if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	account.AccessToken = tokens.AccessToken
	account.RefreshToken = tokens.RefreshToken
	account.TokenExpiry = a.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)

	if err := a.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("persisting account: %w", err)
	}

	return account, nil
}

// GenerateState creates a random state string for the OAuth login flow.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
