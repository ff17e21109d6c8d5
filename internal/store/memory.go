package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Accounts implementation for development and tests.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*Account),
	}
}

// Load retrieves an account by Spotify ID.
func (m *Memory) Load(_ context.Context, spotifyID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[spotifyID]
	if !ok {
		return nil, ErrNotFound
	}
	return account.Clone(), nil
}

// Save upserts an account. The stored copy is detached from the caller's.
func (m *Memory) Save(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	stored := account.Clone()
	if existing, ok := m.accounts[account.SpotifyID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	m.accounts[account.SpotifyID] = stored
	return nil
}

var _ Accounts = (*Memory)(nil)
