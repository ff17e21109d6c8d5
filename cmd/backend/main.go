// Command backend runs the Spotify listening-stats API server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ReeveMar/Backend/internal/auth"
	"github.com/ReeveMar/Backend/internal/config"
	"github.com/ReeveMar/Backend/internal/spotify"
	"github.com/ReeveMar/Backend/internal/stats"
	"github.com/ReeveMar/Backend/internal/store"
	"github.com/ReeveMar/Backend/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	accounts, cleanup, err := newAccounts(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	client := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI, cfg.HTTPTimeout)

	sessions := auth.NewSessions(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authenticator := auth.NewAuthenticator(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI, client, accounts)
	tokens := auth.NewTokenManager(client, accounts, cfg.TokenMargin)

	cache := stats.NewCache(cfg.ShortTTL, cfg.MediumTTL, cfg.LongTTL, cfg.StatsTTL)
	aggregator := stats.NewAggregator(client, tokens, accounts, cache)

	server := web.NewServer(cfg, accounts, sessions, authenticator, aggregator)
	return server.Run()
}

// newAccounts selects the record store: Postgres when DATABASE_URL is set,
// otherwise an in-memory store that forgets everything on restart.
func newAccounts(cfg *config.Config) (store.Accounts, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, using in-memory account store")
		return store.NewMemory(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
