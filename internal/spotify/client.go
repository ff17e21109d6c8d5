// Package spotify is a thin client for the parts of the Spotify Web API the
// backend consumes: the token endpoints on the accounts service and the
// profile/top-artists/top-tracks endpoints on the data API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultAccountsURL = "https://accounts.spotify.com"
	defaultAPIURL      = "https://api.spotify.com/v1"

	// pageLimit is the upstream page size for top-artists and top-tracks.
	pageLimit = "50"
)

// Window selects the upstream aggregation window for top-artists/top-tracks.
type Window string

const (
	WindowShort  Window = "short_term"
	WindowMedium Window = "medium_term"
	WindowLong   Window = "long_term"
)

// Sentinel errors. Neither is retried internally; the caller decides.
var (
	// ErrUpstreamAuth is returned when a token exchange, token refresh or
	// profile fetch fails. The caller must surface this as
	// "re-authentication required".
	ErrUpstreamAuth = errors.New("spotify authentication failed")

	// ErrUpstreamFetch is returned when a data fetch (top artists/tracks)
	// fails after a valid token was obtained.
	ErrUpstreamFetch = errors.New("spotify fetch failed")
)

// Client talks to the Spotify Web API. All calls are one-shot with a bounded
// timeout; there are no internal retries.
type Client struct {
	rest         *resty.Client
	clientID     string
	clientSecret string
	redirectURI  string

	accountsURL string
	apiURL      string
}

// NewClient creates a Spotify client with the given app credentials.
func NewClient(clientID, clientSecret, redirectURI string, timeout time.Duration) *Client {
	return &Client{
		rest:         resty.New().SetTimeout(timeout),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		accountsURL:  defaultAccountsURL,
		apiURL:       defaultAPIURL,
	}
}

// SetBaseURLs overrides the accounts and API base URLs, for tests.
func (c *Client) SetBaseURLs(accountsURL, apiURL string) {
	c.accountsURL = accountsURL
	c.apiURL = apiURL
}

// ExchangeCode trades an authorization code for the initial token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	var tokens TokenResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "authorization_code",
			"code":          code,
			"redirect_uri":  c.redirectURI,
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
		}).
		SetResult(&tokens).
		Post(c.accountsURL + "/api/token")
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %v: %w", err, ErrUpstreamAuth)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("exchanging authorization code: status %d: %w", resp.StatusCode(), ErrUpstreamAuth)
	}
	return &tokens, nil
}

// Refresh trades a refresh token for a new access token. The response
// normally carries no new refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var tokens TokenResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
		}).
		SetResult(&tokens).
		Post(c.accountsURL + "/api/token")
	if err != nil {
		return nil, fmt.Errorf("refreshing access token: %v: %w", err, ErrUpstreamAuth)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("refreshing access token: status %d: %w", resp.StatusCode(), ErrUpstreamAuth)
	}
	return &tokens, nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&profile).
		Get(c.apiURL + "/me")
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %v: %w", err, ErrUpstreamAuth)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching profile: status %d: %w", resp.StatusCode(), ErrUpstreamAuth)
	}
	return &profile, nil
}

// TopArtists fetches the user's top artists for the given window, one page
// of 50.
func (c *Client) TopArtists(ctx context.Context, accessToken string, window Window) ([]Artist, error) {
	var page artistsPage
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParams(map[string]string{
			"limit":      pageLimit,
			"time_range": string(window),
		}).
		SetResult(&page).
		Get(c.apiURL + "/me/top/artists")
	if err != nil {
		return nil, fmt.Errorf("fetching top artists: %v: %w", err, ErrUpstreamFetch)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching top artists: status %d: %w", resp.StatusCode(), ErrUpstreamFetch)
	}
	return page.Items, nil
}

// TopTracks fetches the user's top tracks for the given window, one page
// of 50.
func (c *Client) TopTracks(ctx context.Context, accessToken string, window Window) ([]Track, error) {
	var page tracksPage
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParams(map[string]string{
			"limit":      pageLimit,
			"time_range": string(window),
		}).
		SetResult(&page).
		Get(c.apiURL + "/me/top/tracks")
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %v: %w", err, ErrUpstreamFetch)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching top tracks: status %d: %w", resp.StatusCode(), ErrUpstreamFetch)
	}
	return page.Items, nil
}
