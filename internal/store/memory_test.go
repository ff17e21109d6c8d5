package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLoadNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.Load(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestMemorySaveAndLoad(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	retrieved := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	account := &Account{
		SpotifyID:        "user-1",
		AccessToken:      "access",
		RefreshToken:     "refresh",
		TokenExpiry:      retrieved.Add(time.Hour),
		FavouriteGenres:  []string{"rock", "pop"},
		FavouriteArtists: []Artist{{Name: "Radiohead", ImageURL: "http://img/rh"}},
		FavouriteTracks: TrackSlots{
			{Tracks: []TrackEntry{{Name: "n", Artist: "a", ImageURL: "i"}}, FetchedAt: retrieved},
		},
		StatsRetrievedAt: &retrieved,
	}

	if err := m.Save(ctx, account); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := m.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" {
		t.Errorf("credential = %q/%q, want access/refresh", loaded.AccessToken, loaded.RefreshToken)
	}
	if len(loaded.FavouriteTracks) != 1 || loaded.FavouriteTracks[0] == nil {
		t.Fatalf("FavouriteTracks = %+v, want one slot", loaded.FavouriteTracks)
	}

	// The loaded copy is detached: mutating it must not leak into the store.
	loaded.FavouriteGenres[0] = "mutated"
	loaded.FavouriteTracks[0].Tracks[0].Name = "mutated"

	again, err := m.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if again.FavouriteGenres[0] != "rock" {
		t.Error("genre mutation leaked into the store")
	}
	if again.FavouriteTracks[0].Tracks[0].Name != "n" {
		t.Error("track mutation leaked into the store")
	}
}

func TestMemorySaveKeepsCreatedAt(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	account := &Account{SpotifyID: "user-1"}
	if err := m.Save(ctx, account); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	first, _ := m.Load(ctx, "user-1")

	account.AccessToken = "rotated"
	if err := m.Save(ctx, account); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second, _ := m.Load(ctx, "user-1")
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if second.AccessToken != "rotated" {
		t.Errorf("AccessToken = %q, want rotated", second.AccessToken)
	}
}
