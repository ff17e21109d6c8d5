package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx-backed Accounts implementation. The compound statistics
// fields persist as JSONB; favourite_tracks uses the wire form of the tiered
// cache so a database row and an API payload share one encoding.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the accounts table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS accounts (
			spotify_id         TEXT PRIMARY KEY,
			access_token       TEXT NOT NULL,
			refresh_token      TEXT NOT NULL,
			token_expiry       TIMESTAMPTZ NOT NULL,
			favourite_genres   JSONB NOT NULL DEFAULT '[]',
			favourite_artists  JSONB NOT NULL DEFAULT '[]',
			favourite_tracks   JSONB NOT NULL DEFAULT '[]',
			stats_retrieved_at TIMESTAMPTZ,
			created_at         TIMESTAMPTZ NOT NULL,
			updated_at         TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}
	return nil
}

// Load retrieves an account by Spotify ID.
func (p *Postgres) Load(ctx context.Context, spotifyID string) (*Account, error) {
	query := `
		SELECT spotify_id, access_token, refresh_token, token_expiry,
		       favourite_genres, favourite_artists, favourite_tracks,
		       stats_retrieved_at, created_at, updated_at
		FROM accounts
		WHERE spotify_id = $1
	`
	var (
		account     Account
		genresJSON  []byte
		artistsJSON []byte
		tracksJSON  []byte
	)
	err := p.pool.QueryRow(ctx, query, spotifyID).Scan(
		&account.SpotifyID,
		&account.AccessToken,
		&account.RefreshToken,
		&account.TokenExpiry,
		&genresJSON,
		&artistsJSON,
		&tracksJSON,
		&account.StatsRetrievedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	if err := json.Unmarshal(genresJSON, &account.FavouriteGenres); err != nil {
		return nil, fmt.Errorf("decoding favourite genres: %w", err)
	}
	if err := json.Unmarshal(artistsJSON, &account.FavouriteArtists); err != nil {
		return nil, fmt.Errorf("decoding favourite artists: %w", err)
	}
	// The slot codec tolerates malformed slots, so a bad tier never blocks
	// the rest of the account.
	if err := json.Unmarshal(tracksJSON, &account.FavouriteTracks); err != nil {
		return nil, fmt.Errorf("decoding favourite tracks: %w", err)
	}

	return &account, nil
}

// Save upserts the full account record.
func (p *Postgres) Save(ctx context.Context, account *Account) error {
	genresJSON, err := json.Marshal(orEmptyStrings(account.FavouriteGenres))
	if err != nil {
		return fmt.Errorf("encoding favourite genres: %w", err)
	}
	artistsJSON, err := json.Marshal(orEmptyArtists(account.FavouriteArtists))
	if err != nil {
		return fmt.Errorf("encoding favourite artists: %w", err)
	}
	tracksJSON, err := json.Marshal(orEmptySlots(account.FavouriteTracks))
	if err != nil {
		return fmt.Errorf("encoding favourite tracks: %w", err)
	}

	query := `
		INSERT INTO accounts (
			spotify_id, access_token, refresh_token, token_expiry,
			favourite_genres, favourite_artists, favourite_tracks,
			stats_retrieved_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			access_token       = EXCLUDED.access_token,
			refresh_token      = EXCLUDED.refresh_token,
			token_expiry       = EXCLUDED.token_expiry,
			favourite_genres   = EXCLUDED.favourite_genres,
			favourite_artists  = EXCLUDED.favourite_artists,
			favourite_tracks   = EXCLUDED.favourite_tracks,
			stats_retrieved_at = EXCLUDED.stats_retrieved_at,
			updated_at         = NOW()
		RETURNING created_at, updated_at
	`
	err = p.pool.QueryRow(ctx, query,
		account.SpotifyID,
		account.AccessToken,
		account.RefreshToken,
		account.TokenExpiry,
		genresJSON,
		artistsJSON,
		tracksJSON,
		account.StatsRetrievedAt,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting account: %w", err)
	}
	return nil
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyArtists(s []Artist) []Artist {
	if s == nil {
		return []Artist{}
	}
	return s
}

func orEmptySlots(s TrackSlots) TrackSlots {
	if s == nil {
		return TrackSlots{}
	}
	return s
}

var _ Accounts = (*Postgres)(nil)
