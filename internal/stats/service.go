package stats

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ReeveMar/Backend/internal/spotify"
	"github.com/ReeveMar/Backend/internal/store"
)

// maxFavourites caps the genre and artist lists on the account.
const maxFavourites = 10

// Upstream is the slice of the Spotify client the aggregator consumes.
type Upstream interface {
	TopArtists(ctx context.Context, accessToken string, window spotify.Window) ([]spotify.Artist, error)
	TopTracks(ctx context.Context, accessToken string, window spotify.Window) ([]spotify.Track, error)
}

// TokenSource yields a valid access token for the account, refreshing the
// stored credential if needed.
type TokenSource interface {
	Valid(ctx context.Context, account *store.Account) (string, error)
}

// Stats is the combined favourite-statistics triple.
type Stats struct {
	Genres  []string
	Artists []store.Artist
	Tracks  []store.TrackEntry
}

// Aggregator orchestrates the cache, the credential lifecycle and the
// upstream fetches. All work on one account is serialized by a per-account
// mutex, and the record is loaded from the store inside that critical
// section: freshness check, upstream fetch, merge and persist all start
// from the latest persisted state, so concurrent requests cannot clobber
// each other's updates with stale snapshots.
type Aggregator struct {
	upstream Upstream
	tokens   TokenSource
	accounts store.Accounts
	cache    *Cache
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewAggregator creates an Aggregator.
func NewAggregator(upstream Upstream, tokens TokenSource, accounts store.Accounts, cache *Cache) *Aggregator {
	return &Aggregator{
		upstream: upstream,
		tokens:   tokens,
		accounts: accounts,
		cache:    cache,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetNow overrides the clock, for tests.
func (a *Aggregator) SetNow(now func() time.Time) {
	a.now = now
}

// lock acquires the account's mutex and returns the unlock func.
func (a *Aggregator) lock(spotifyID string) func() {
	a.locksMu.Lock()
	mu, ok := a.locks[spotifyID]
	if !ok {
		mu = &sync.Mutex{}
		a.locks[spotifyID] = mu
	}
	a.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// FavouriteTracks returns the account's top tracks for the tier, from cache
// when fresh, otherwise fetched from Spotify and merged into the cache.
func (a *Aggregator) FavouriteTracks(ctx context.Context, spotifyID string, tier Tier) ([]store.TrackEntry, error) {
	unlock := a.lock(spotifyID)
	defer unlock()

	account, err := a.accounts.Load(ctx, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	return a.favouriteTracks(ctx, account, tier)
}

// favouriteTracks is FavouriteTracks without the lock; callers hold it.
func (a *Aggregator) favouriteTracks(ctx context.Context, account *store.Account, tier Tier) ([]store.TrackEntry, error) {
	if tracks, fresh := a.cache.Get(account, tier); fresh {
		return tracks, nil
	}

	token, err := a.tokens.Valid(ctx, account)
	if err != nil {
		return nil, err
	}

	fetched, err := a.upstream.TopTracks(ctx, token, tier.Window())
	if err != nil {
		return nil, err
	}

	tracks := projectTracks(fetched)
	a.cache.Put(account, tier, tracks, a.now())

	if err := a.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("persisting track cache: %w", err)
	}

	return tracks, nil
}

// FavouriteStats returns the genre/artist/track triple.
//
// Short-term tracks are always resolved first, even when the genre/artist
// pair is still fresh. That is a product rule, not an optimization: a stats
// response always carries current short-term tracks.
func (a *Aggregator) FavouriteStats(ctx context.Context, spotifyID string) (*Stats, error) {
	unlock := a.lock(spotifyID)
	defer unlock()

	account, err := a.accounts.Load(ctx, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	tracks, err := a.favouriteTracks(ctx, account, TierShort)
	if err != nil {
		return nil, err
	}

	if !a.cache.StatsStale(account) {
		return &Stats{
			Genres:  account.FavouriteGenres,
			Artists: account.FavouriteArtists,
			Tracks:  tracks,
		}, nil
	}

	token, err := a.tokens.Valid(ctx, account)
	if err != nil {
		return nil, err
	}

	artists, err := a.upstream.TopArtists(ctx, token, spotify.WindowMedium)
	if err != nil {
		return nil, err
	}

	account.FavouriteGenres = rankGenres(artists)
	account.FavouriteArtists = projectArtists(artists)
	retrieved := a.now()
	account.StatsRetrievedAt = &retrieved

	if err := a.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("persisting stats: %w", err)
	}

	return &Stats{
		Genres:  account.FavouriteGenres,
		Artists: account.FavouriteArtists,
		Tracks:  tracks,
	}, nil
}

// ReplaceTracks overwrites the account's tiered track cache with a client
// supplied value and returns the updated record. It runs in the same
// per-account critical section as the aggregation paths, so the write
// lands on the latest persisted state instead of a request snapshot.
func (a *Aggregator) ReplaceTracks(ctx context.Context, spotifyID string, slots store.TrackSlots) (*store.Account, error) {
	unlock := a.lock(spotifyID)
	defer unlock()

	account, err := a.accounts.Load(ctx, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	account.FavouriteTracks = slots
	if err := a.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("persisting track cache: %w", err)
	}
	return account, nil
}

// rankGenres counts each genre tag across all fetched artists and returns
// the ten most frequent. The sort is stable on descending count, so ties
// keep their first-encountered order from the upstream response.
func rankGenres(artists []spotify.Artist) []string {
	counts := make(map[string]int)
	var order []string
	for _, artist := range artists {
		for _, genre := range artist.Genres {
			if counts[genre] == 0 {
				order = append(order, genre)
			}
			counts[genre]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxFavourites {
		order = order[:maxFavourites]
	}
	return order
}

// projectArtists takes the first ten artists as returned by upstream, with
// no re-sorting, projected to name and primary image.
func projectArtists(artists []spotify.Artist) []store.Artist {
	n := len(artists)
	if n > maxFavourites {
		n = maxFavourites
	}

	out := make([]store.Artist, n)
	for i, artist := range artists[:n] {
		out[i] = store.Artist{Name: artist.Name}
		if len(artist.Images) > 0 {
			out[i].ImageURL = artist.Images[0].URL
		}
	}
	return out
}

// projectTracks maps upstream tracks to (name, primary artist, album cover).
func projectTracks(tracks []spotify.Track) []store.TrackEntry {
	out := make([]store.TrackEntry, len(tracks))
	for i, track := range tracks {
		out[i] = store.TrackEntry{Name: track.Name}
		if len(track.Artists) > 0 {
			out[i].Artist = track.Artists[0].Name
		}
		if len(track.Album.Images) > 0 {
			out[i].ImageURL = track.Album.Images[0].URL
		}
	}
	return out
}
