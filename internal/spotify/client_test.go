package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(accounts, api *httptest.Server) *Client {
	c := NewClient("client-id", "client-secret", "http://127.0.0.1:8080/callback", 5*time.Second)
	c.SetBaseURLs(accounts.URL, api.URL)
	return c
}

func TestExchangeCode(t *testing.T) {
	var gotForm map[string]string

	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			t.Errorf("path = %q, want /api/token", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		gotForm = map[string]string{
			"grant_type":   r.PostFormValue("grant_type"),
			"code":         r.PostFormValue("code"),
			"redirect_uri": r.PostFormValue("redirect_uri"),
			"client_id":    r.PostFormValue("client_id"),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresIn:    3600,
		})
	}))
	defer accounts.Close()

	api := httptest.NewServer(http.NotFoundHandler())
	defer api.Close()

	c := newTestClient(accounts, api)

	tokens, err := c.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if tokens.AccessToken != "access" || tokens.RefreshToken != "refresh" || tokens.ExpiresIn != 3600 {
		t.Errorf("tokens = %+v, want access/refresh/3600", tokens)
	}
	if gotForm["grant_type"] != "authorization_code" {
		t.Errorf("grant_type = %q, want authorization_code", gotForm["grant_type"])
	}
	if gotForm["code"] != "auth-code" {
		t.Errorf("code = %q, want auth-code", gotForm["code"])
	}
	if gotForm["redirect_uri"] != "http://127.0.0.1:8080/callback" {
		t.Errorf("redirect_uri = %q", gotForm["redirect_uri"])
	}
}

func TestExchangeCodeFailure(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer accounts.Close()

	api := httptest.NewServer(http.NotFoundHandler())
	defer api.Close()

	c := newTestClient(accounts, api)

	_, err := c.ExchangeCode(context.Background(), "bad-code")
	if !errors.Is(err, ErrUpstreamAuth) {
		t.Errorf("ExchangeCode() error = %v, want ErrUpstreamAuth", err)
	}
}

func TestRefresh(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.PostFormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		if got := r.PostFormValue("refresh_token"); got != "old-refresh" {
			t.Errorf("refresh_token = %q, want old-refresh", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{AccessToken: "fresh", ExpiresIn: 3600})
	}))
	defer accounts.Close()

	api := httptest.NewServer(http.NotFoundHandler())
	defer api.Close()

	c := newTestClient(accounts, api)

	tokens, err := c.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tokens.AccessToken != "fresh" {
		t.Errorf("AccessToken = %q, want fresh", tokens.AccessToken)
	}
}

func TestRefreshFailure(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer accounts.Close()

	api := httptest.NewServer(http.NotFoundHandler())
	defer api.Close()

	c := newTestClient(accounts, api)

	_, err := c.Refresh(context.Background(), "revoked")
	if !errors.Is(err, ErrUpstreamAuth) {
		t.Errorf("Refresh() error = %v, want ErrUpstreamAuth", err)
	}
}

func TestProfile(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("path = %q, want /me", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("Authorization = %q, want Bearer token-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Profile{ID: "user-1", DisplayName: "User One"})
	}))
	defer api.Close()

	accounts := httptest.NewServer(http.NotFoundHandler())
	defer accounts.Close()

	c := newTestClient(accounts, api)

	profile, err := c.Profile(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if profile.ID != "user-1" {
		t.Errorf("ID = %q, want user-1", profile.ID)
	}
}

func TestTopArtists(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/top/artists" {
			t.Errorf("path = %q, want /me/top/artists", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "50" {
			t.Errorf("limit = %q, want 50", q.Get("limit"))
		}
		if q.Get("time_range") != "medium_term" {
			t.Errorf("time_range = %q, want medium_term", q.Get("time_range"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []Artist{
				{Name: "Radiohead", Genres: []string{"alternative rock"}, Images: []Image{{URL: "http://img/rh"}}},
			},
		})
	}))
	defer api.Close()

	accounts := httptest.NewServer(http.NotFoundHandler())
	defer accounts.Close()

	c := newTestClient(accounts, api)

	artists, err := c.TopArtists(context.Background(), "token-1", WindowMedium)
	if err != nil {
		t.Fatalf("TopArtists() error = %v", err)
	}
	if len(artists) != 1 || artists[0].Name != "Radiohead" {
		t.Errorf("artists = %+v, want Radiohead", artists)
	}
}

func TestTopTracksWindowsAndFailure(t *testing.T) {
	var gotRange string
	status := http.StatusOK

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.URL.Query().Get("time_range")
		if status != http.StatusOK {
			http.Error(w, "upstream broke", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}))
	defer api.Close()

	accounts := httptest.NewServer(http.NotFoundHandler())
	defer accounts.Close()

	c := newTestClient(accounts, api)
	ctx := context.Background()

	for window, want := range map[Window]string{
		WindowShort:  "short_term",
		WindowMedium: "medium_term",
		WindowLong:   "long_term",
	} {
		if _, err := c.TopTracks(ctx, "token-1", window); err != nil {
			t.Fatalf("TopTracks(%s) error = %v", want, err)
		}
		if gotRange != want {
			t.Errorf("time_range = %q, want %q", gotRange, want)
		}
	}

	status = http.StatusInternalServerError
	if _, err := c.TopTracks(ctx, "token-1", WindowShort); !errors.Is(err, ErrUpstreamFetch) {
		t.Errorf("TopTracks() error = %v, want ErrUpstreamFetch", err)
	}
}
