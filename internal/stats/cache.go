// Package stats computes and caches a user's favourite genres, artists and
// tracks from the Spotify top-artists/top-tracks rankings.
package stats

import (
	"fmt"
	"time"

	"github.com/ReeveMar/Backend/internal/spotify"
	"github.com/ReeveMar/Backend/internal/store"
)

// Tier is a top-tracks time window. It doubles as the index into the
// account's tiered track cache.
type Tier int

const (
	TierShort Tier = iota
	TierMedium
	TierLong

	numTiers = 3
)

// String returns the tier name used in the API ("short", "medium", "long").
func (t Tier) String() string {
	switch t {
	case TierShort:
		return "short"
	case TierMedium:
		return "medium"
	case TierLong:
		return "long"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Window maps the tier to the upstream aggregation window.
func (t Tier) Window() spotify.Window {
	switch t {
	case TierMedium:
		return spotify.WindowMedium
	case TierLong:
		return spotify.WindowLong
	default:
		return spotify.WindowShort
	}
}

// ParseTier parses a tier name from the API.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "short", "":
		return TierShort, nil
	case "medium":
		return TierMedium, nil
	case "long":
		return TierLong, nil
	}
	return 0, fmt.Errorf("unknown time range %q", s)
}

// Cache decides freshness of the per-tier track slots and of the single
// genre/artist staleness flag, and merges fetched results back into the
// account. Each tier carries its own TTL; a slot is fresh purely as a
// function of now minus its fetch time.
type Cache struct {
	ttls     [numTiers]time.Duration
	statsTTL time.Duration
	now      func() time.Time
}

// NewCache creates a cache with one TTL per tier and the genre/artist TTL.
func NewCache(short, medium, long, statsTTL time.Duration) *Cache {
	return &Cache{
		ttls:     [numTiers]time.Duration{short, medium, long},
		statsTTL: statsTTL,
		now:      time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (c *Cache) SetNow(now func() time.Time) {
	c.now = now
}

// Get returns the cached tracks for the tier and whether they are fresh.
// A missing slot, a slot whose timestamp never parsed, or a slot older than
// the tier's TTL all report fresh=false; the caller must fetch and Put.
func (c *Cache) Get(account *store.Account, tier Tier) ([]store.TrackEntry, bool) {
	if int(tier) >= len(account.FavouriteTracks) {
		return nil, false
	}
	slot := account.FavouriteTracks[tier]
	if slot == nil || slot.FetchedAt.IsZero() {
		return nil, false
	}
	if c.now().Sub(slot.FetchedAt) >= c.ttls[tier] {
		return slot.Tracks, false
	}
	return slot.Tracks, true
}

// Put replaces the slot at tier, extending the cache with absent-tier
// sentinels when the tier lands past the current length so the slice index
// keeps its tier meaning even when tiers are populated out of order.
func (c *Cache) Put(account *store.Account, tier Tier, tracks []store.TrackEntry, fetchedAt time.Time) {
	slot := &store.TrackSlot{Tracks: tracks, FetchedAt: fetchedAt}

	if int(tier) < len(account.FavouriteTracks) {
		account.FavouriteTracks[tier] = slot
		return
	}
	for len(account.FavouriteTracks) < int(tier) {
		account.FavouriteTracks = append(account.FavouriteTracks, nil)
	}
	account.FavouriteTracks = append(account.FavouriteTracks, slot)
}

// StatsStale reports whether the genre/artist pair needs an upstream
// refresh. One flag governs both; there is no per-tier TTL here.
func (c *Cache) StatsStale(account *store.Account) bool {
	if account.StatsRetrievedAt == nil {
		return true
	}
	return c.now().Sub(*account.StatsRetrievedAt) >= c.statsTTL
}
