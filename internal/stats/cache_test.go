package stats

import (
	"testing"
	"time"

	"github.com/ReeveMar/Backend/internal/store"
)

func newTestCache(now time.Time) *Cache {
	c := NewCache(7*24*time.Hour, 30*24*time.Hour, 112*24*time.Hour, 7*24*time.Hour)
	c.SetNow(func() time.Time { return now })
	return c
}

func TestCachePutThenGetIsFresh(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracks := []store.TrackEntry{{Name: "n", Artist: "a", ImageURL: "i"}}

	for _, tier := range []Tier{TierShort, TierMedium, TierLong} {
		t.Run(tier.String(), func(t *testing.T) {
			c := newTestCache(now)
			account := &store.Account{SpotifyID: "u"}

			c.Put(account, tier, tracks, now)

			got, fresh := c.Get(account, tier)
			if !fresh {
				t.Fatal("Get() fresh = false immediately after Put")
			}
			if len(got) != 1 || got[0] != tracks[0] {
				t.Errorf("Get() = %+v, want %+v", got, tracks)
			}
		})
	}
}

func TestCacheGetStaleAtTTL(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracks := []store.TrackEntry{{Name: "n"}}

	tests := []struct {
		tier Tier
		ttl  time.Duration
	}{
		{TierShort, 7 * 24 * time.Hour},
		{TierMedium, 30 * 24 * time.Hour},
		{TierLong, 112 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			c := newTestCache(now)
			account := &store.Account{SpotifyID: "u"}

			// One instant inside the TTL is fresh, at the TTL is not.
			c.Put(account, tt.tier, tracks, now.Add(-tt.ttl).Add(time.Second))
			if _, fresh := c.Get(account, tt.tier); !fresh {
				t.Error("slot just inside the TTL reported stale")
			}

			c.Put(account, tt.tier, tracks, now.Add(-tt.ttl))
			got, fresh := c.Get(account, tt.tier)
			if fresh {
				t.Error("slot at the TTL reported fresh")
			}
			if len(got) != 1 {
				t.Error("stale Get() should still return the stored content")
			}
		})
	}
}

func TestCacheGetAbsentTier(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(now)
	account := &store.Account{SpotifyID: "u"}

	if _, fresh := c.Get(account, TierShort); fresh {
		t.Error("empty cache reported fresh")
	}

	// A slot whose persisted timestamp never parsed is present but never
	// fresh.
	account.FavouriteTracks = store.TrackSlots{
		{Tracks: []store.TrackEntry{{Name: "n"}}, RawFetchedAt: "not-a-timestamp"},
	}
	if _, fresh := c.Get(account, TierShort); fresh {
		t.Error("slot with unparsed timestamp reported fresh")
	}
}

func TestCachePutOutOfOrderMaterializesSentinels(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(now)
	account := &store.Account{SpotifyID: "u"}

	c.Put(account, TierLong, []store.TrackEntry{{Name: "long"}}, now)

	if len(account.FavouriteTracks) != 3 {
		t.Fatalf("cache length = %d, want 3", len(account.FavouriteTracks))
	}
	if account.FavouriteTracks[0] != nil || account.FavouriteTracks[1] != nil {
		t.Error("lower tiers should be absent sentinels")
	}
	if account.FavouriteTracks[2] == nil || account.FavouriteTracks[2].Tracks[0].Name != "long" {
		t.Errorf("tier 2 = %+v, want the long slot", account.FavouriteTracks[2])
	}

	// Filling a sentinel later keeps index-as-tier semantics.
	c.Put(account, TierShort, []store.TrackEntry{{Name: "short"}}, now)
	if len(account.FavouriteTracks) != 3 {
		t.Fatalf("cache length = %d after backfill, want 3", len(account.FavouriteTracks))
	}
	if account.FavouriteTracks[0] == nil || account.FavouriteTracks[0].Tracks[0].Name != "short" {
		t.Errorf("tier 0 = %+v, want the short slot", account.FavouriteTracks[0])
	}
}

func TestCachePutReplacesSlot(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(now)
	account := &store.Account{SpotifyID: "u"}

	c.Put(account, TierShort, []store.TrackEntry{{Name: "old"}}, now.Add(-time.Hour))
	c.Put(account, TierShort, []store.TrackEntry{{Name: "new"}}, now)

	if len(account.FavouriteTracks) != 1 {
		t.Fatalf("cache length = %d, want 1", len(account.FavouriteTracks))
	}
	slot := account.FavouriteTracks[0]
	if slot.Tracks[0].Name != "new" || !slot.FetchedAt.Equal(now) {
		t.Errorf("slot = %+v, want replaced wholesale", slot)
	}
}

func TestCacheStatsStale(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(now)

	tests := []struct {
		name      string
		retrieved *time.Time
		want      bool
	}{
		{"never retrieved", nil, true},
		{"retrieved yesterday", timePtr(now.Add(-24 * time.Hour)), false},
		{"retrieved exactly 7 days ago", timePtr(now.Add(-7 * 24 * time.Hour)), true},
		{"retrieved 8 days ago", timePtr(now.Add(-8 * 24 * time.Hour)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &store.Account{SpotifyID: "u", StatsRetrievedAt: tt.retrieved}
			if got := c.StatsStale(account); got != tt.want {
				t.Errorf("StatsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"short", TierShort, false},
		{"medium", TierMedium, false},
		{"long", TierLong, false},
		{"", TierShort, false},
		{"yearly", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTier(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseTier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
