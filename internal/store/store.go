package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no account exists for the given Spotify ID.
var ErrNotFound = errors.New("account not found")

// Accounts is the record store for user accounts, keyed by Spotify ID.
//
// Load returns a copy the caller may mutate freely; nothing is shared until
// Save writes the record back. Save upserts the full record.
type Accounts interface {
	Load(ctx context.Context, spotifyID string) (*Account, error)
	Save(ctx context.Context, account *Account) error
}
