package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ReeveMar/Backend/internal/auth"
	"github.com/ReeveMar/Backend/internal/config"
	"github.com/ReeveMar/Backend/internal/spotify"
	"github.com/ReeveMar/Backend/internal/stats"
	"github.com/ReeveMar/Backend/internal/store"
)

const stateCookieName = "oauth_state"

// Handlers contains the HTTP handlers for the backend API.
type Handlers struct {
	cfg           *config.Config
	sessions      *auth.Sessions
	authenticator *auth.Authenticator
	aggregator    *stats.Aggregator
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config, sessions *auth.Sessions, authenticator *auth.Authenticator, aggregator *stats.Aggregator) *Handlers {
	return &Handlers{
		cfg:           cfg,
		sessions:      sessions,
		authenticator: authenticator,
		aggregator:    aggregator,
	}
}

// userResponse is the outward shape of the account record. Credential fields
// never leave the server; favourite_tracks travels in its wire pair form.
type userResponse struct {
	SpotifyID        string           `json:"spotify_id"`
	FavouriteGenres  []string         `json:"favourite_genres"`
	FavouriteArtists []store.Artist   `json:"favourite_artists"`
	FavouriteTracks  store.TrackSlots `json:"favourite_tracks"`
	StatsRetrievedAt *time.Time       `json:"stats_retrieved_at"`
}

func newUserResponse(account *store.Account) userResponse {
	resp := userResponse{
		SpotifyID:        account.SpotifyID,
		FavouriteGenres:  account.FavouriteGenres,
		FavouriteArtists: account.FavouriteArtists,
		FavouriteTracks:  account.FavouriteTracks,
		StatsRetrievedAt: account.StatsRetrievedAt,
	}
	if resp.FavouriteGenres == nil {
		resp.FavouriteGenres = []string{}
	}
	if resp.FavouriteArtists == nil {
		resp.FavouriteArtists = []store.Artist{}
	}
	if resp.FavouriteTracks == nil {
		resp.FavouriteTracks = store.TrackSlots{}
	}
	return resp
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// State rides a short-lived cookie and is checked on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, h.authenticator.LoginURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	account, err := h.authenticator.Login(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, "Failed to authenticate with Spotify", http.StatusBadGateway)
		return
	}

	if err := h.sessions.Issue(w, account.SpotifyID); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusTemporaryRedirect)
}

// Refresh rotates the session cookie pair (POST /auth/refresh).
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Refresh(w, r); err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Logout clears the session cookies (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the account record (GET /api/me).
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	account := auth.AccountFrom(r.Context())
	writeJSON(w, http.StatusOK, newUserResponse(account))
}

// UpdateMe accepts a partial account update (PATCH /api/me). The tiered
// track cache is the only writable field at this boundary; genres, artists
// and the credential are read-only to external callers.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	account := auth.AccountFrom(r.Context())

	var body struct {
		FavouriteTracks *store.TrackSlots `json:"favourite_tracks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if body.FavouriteTracks != nil {
		// The write goes through the aggregator's per-account critical
		// section so it cannot revert a concurrent aggregation's save.
		updated, err := h.aggregator.ReplaceTracks(r.Context(), account.SpotifyID, *body.FavouriteTracks)
		if err != nil {
			http.Error(w, "failed to save account", http.StatusInternalServerError)
			return
		}
		account = updated
	}

	writeJSON(w, http.StatusOK, newUserResponse(account))
}

// Stats returns the favourite genre/artist/track triple (GET /api/stats).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	account := auth.AccountFrom(r.Context())

	result, err := h.aggregator.FavouriteStats(r.Context(), account.SpotifyID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	// An account whose artists carry no genre tags yields nil slices;
	// the API always emits arrays.
	if result.Genres == nil {
		result.Genres = []string{}
	}
	if result.Artists == nil {
		result.Artists = []store.Artist{}
	}
	if result.Tracks == nil {
		result.Tracks = []store.TrackEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"favourite_genres":  result.Genres,
		"favourite_artists": result.Artists,
		"favourite_tracks":  result.Tracks,
	})
}

// Tracks returns the favourite tracks for one time range
// (GET /api/tracks?range=short|medium|long).
func (h *Handlers) Tracks(w http.ResponseWriter, r *http.Request) {
	account := auth.AccountFrom(r.Context())

	tier, err := stats.ParseTier(r.URL.Query().Get("range"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tracks, err := h.aggregator.FavouriteTracks(r.Context(), account.SpotifyID, tier)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"range":            tier.String(),
		"favourite_tracks": tracks,
	})
}

// writeUpstreamError maps the aggregation error kinds onto status codes:
// a failed token exchange/refresh means the login is gone (401), a failed
// data fetch is the upstream's fault (502).
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, spotify.ErrUpstreamAuth):
		http.Error(w, "re-authentication required", http.StatusUnauthorized)
	case errors.Is(err, spotify.ErrUpstreamFetch):
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; nothing left to do but note it.
		log.Printf("writing response: %v", err)
	}
}
