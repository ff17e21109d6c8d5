// Package config holds the immutable runtime configuration for the backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Defaults for everything that is tunable but rarely tuned.
const (
	DefaultAddr        = "127.0.0.1:8080"
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultTokenMargin is the safety margin applied to the Spotify access
	// token expiry so a token never expires mid-flight.
	DefaultTokenMargin = 5 * time.Minute

	// Cache TTLs per top-tracks time range. Longer ranges aggregate more
	// history upstream and move slower, so they stay fresh longer.
	DefaultShortTTL  = 7 * 24 * time.Hour
	DefaultMediumTTL = 30 * 24 * time.Hour
	DefaultLongTTL   = 112 * 24 * time.Hour

	// DefaultStatsTTL governs the single genre/artist freshness flag.
	DefaultStatsTTL = 7 * 24 * time.Hour

	// Session cookie lifetimes.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultAccessTokenTTL  = 15 * time.Minute
)

// Sentinel errors for missing required environment variables.
var (
	ErrMissingSpotifyCredentials = errors.New("missing SPOTIFY_CLIENT_ID or SPOTIFY_CLIENT_SECRET environment variable")
	ErrMissingJWTSecret          = errors.New("missing JWT_SECRET environment variable")
)

// Config holds all runtime configuration. It is built once at startup and
// injected into the components; nothing reads the environment after Load.
type Config struct {
	Addr        string
	DatabaseURL string // empty selects the in-memory store
	FrontendURL string // post-login redirect target

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string

	JWTSecret []byte

	HTTPTimeout time.Duration
	TokenMargin time.Duration

	ShortTTL  time.Duration
	MediumTTL time.Duration
	LongTTL   time.Duration
	StatsTTL  time.Duration

	RefreshTokenTTL time.Duration
	AccessTokenTTL  time.Duration
}

// Load reads configuration from environment variables, applying defaults for
// everything optional. Returns a sentinel error if a required variable is
// unset.
func Load() (*Config, error) {
	clientID := os.Getenv("SPOTIFY_CLIENT_ID")
	clientSecret := os.Getenv("SPOTIFY_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingSpotifyCredentials
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, ErrMissingJWTSecret
	}

	cfg := &Config{
		Addr:        envOr("ADDR", DefaultAddr),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		FrontendURL: envOr("FRONTEND_URL", "http://localhost:5173/"),

		SpotifyClientID:     clientID,
		SpotifyClientSecret: clientSecret,
		SpotifyRedirectURI:  envOr("SPOTIFY_REDIRECT_URI", "http://127.0.0.1:8080/callback"),

		JWTSecret: []byte(secret),

		HTTPTimeout: DefaultHTTPTimeout,
		TokenMargin: DefaultTokenMargin,

		ShortTTL:  DefaultShortTTL,
		MediumTTL: DefaultMediumTTL,
		LongTTL:   DefaultLongTTL,
		StatsTTL:  DefaultStatsTTL,

		RefreshTokenTTL: DefaultRefreshTokenTTL,
		AccessTokenTTL:  DefaultAccessTokenTTL,
	}

	for _, d := range []struct {
		name string
		dst  *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"TOKEN_MARGIN", &cfg.TokenMargin},
		{"CACHE_TTL_SHORT", &cfg.ShortTTL},
		{"CACHE_TTL_MEDIUM", &cfg.MediumTTL},
		{"CACHE_TTL_LONG", &cfg.LongTTL},
		{"CACHE_TTL_STATS", &cfg.StatsTTL},
	} {
		if err := envDuration(d.name, d.dst); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// envOr returns the value of the environment variable, or fallback if unset.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// envDuration overrides dst with the parsed environment variable if set.
func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = d
	return nil
}
