// Package store provides persistence for Spotify-linked user accounts.
package store

import "time"

// Artist is a favourite-artist entry derived from the user's top artists.
type Artist struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// TrackEntry is a single track projected from the upstream top-tracks
// response: track name, primary artist, album cover.
type TrackEntry struct {
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	ImageURL string `json:"image_url"`
}

// TrackSlot is one tier of the tiered track cache. A nil *TrackSlot marks an
// absent tier; the slice index is the tier.
//
// FetchedAt is the instant the upstream data was retrieved. If a persisted
// timestamp failed to parse on load, FetchedAt is zero and RawFetchedAt holds
// the original text so the record round-trips without loss; such a slot is
// never considered fresh.
type TrackSlot struct {
	Tracks       []TrackEntry
	FetchedAt    time.Time
	RawFetchedAt string
}

// TrackSlots is the tiered track cache, at most one slot per tier, indexed by
// tier (0=short, 1=medium, 2=long). It carries the wire codec for the
// [[triples], timestamp] pair encoding.
type TrackSlots []*TrackSlot

// Account is the persisted record for one Spotify user.
//
// Field ownership: the credential fields are mutated only by the token
// manager (and at login); FavouriteGenres, FavouriteArtists and
// StatsRetrievedAt only by the stats aggregator; FavouriteTracks only by the
// tiered cache.
type Account struct {
	SpotifyID string // upstream identity, immutable after creation

	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time

	FavouriteGenres  []string
	FavouriteArtists []Artist
	FavouriteTracks  TrackSlots
	StatsRetrievedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the account. Stores hand out clones so callers
// never share mutable state with the store's own copy.
func (a *Account) Clone() *Account {
	c := *a

	if a.FavouriteGenres != nil {
		c.FavouriteGenres = append([]string(nil), a.FavouriteGenres...)
	}
	if a.FavouriteArtists != nil {
		c.FavouriteArtists = append([]Artist(nil), a.FavouriteArtists...)
	}
	if a.FavouriteTracks != nil {
		c.FavouriteTracks = make(TrackSlots, len(a.FavouriteTracks))
		for i, slot := range a.FavouriteTracks {
			if slot == nil {
				continue
			}
			s := *slot
			s.Tracks = append([]TrackEntry(nil), slot.Tracks...)
			c.FavouriteTracks[i] = &s
		}
	}
	if a.StatsRetrievedAt != nil {
		t := *a.StatsRetrievedAt
		c.StatsRetrievedAt = &t
	}

	return &c
}
