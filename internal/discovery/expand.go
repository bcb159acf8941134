package discovery

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/services"
)

// Expansion fan-out defaults, matching the gateway's cheap-call budget:
// per seed artist, 5 of its own top tracks plus 3 top tracks from each
// of 5 related artists.
const (
	defaultWorkers   = 4
	seedTopTracks    = 5
	relatedPerSeed   = 5
	relatedTopTracks = 3
)

// Expander grows the candidate pool from seed artists via bounded
// parallel catalog calls.
//
// One unit of work covers a single seed artist: its top tracks, then its
// related artists' top tracks. At most workers units are in flight at
// once, gated by a fixed-capacity semaphore. The only shared mutable
// state is the pool and the skipped-known counter, both synchronized.
type Expander struct {
	catalog services.Catalog
	logger  *log.Logger
	workers int
}

// NewExpander creates an Expander. Non-positive workers falls back to
// the default gate of 4.
func NewExpander(catalog services.Catalog, logger *log.Logger, workers int) *Expander {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Expander{catalog: catalog, logger: logger, workers: workers}
}

// Expand runs one unit of work per seed artist and blocks until every
// unit has finished, success or failure. It returns the number of
// candidate tracks discarded because the listener already knew them.
//
// A failed fetch abandons the remainder of that seed's unit only; it is
// logged and never retried, and sibling units keep running. Cancelling
// ctx propagates into every outstanding catalog call.
func (e *Expander) Expand(ctx context.Context, accessToken string, seeds []models.Artist, known *KnownSet, pool *Pool) int {
	var skipped atomic.Int64
	var wg sync.WaitGroup

	gate := make(chan struct{}, e.workers)

	for _, seed := range seeds {
		wg.Add(1)
		go func(seed models.Artist) {
			defer wg.Done()

			select {
			case gate <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-gate }()

			e.expandSeed(ctx, accessToken, seed, known, pool, &skipped)
		}(seed)
	}

	wg.Wait()
	return int(skipped.Load())
}

// expandSeed performs the catalog calls for one seed artist. Any error
// abandons the rest of the unit.
func (e *Expander) expandSeed(ctx context.Context, accessToken string, seed models.Artist, known *KnownSet, pool *Pool, skipped *atomic.Int64) {
	tracks, err := e.catalog.GetArtistTopTracks(ctx, accessToken, seed.ID, seedTopTracks)
	if err != nil {
		e.logger.Debug("seed top tracks failed", "artist", seed.Name, "error", err)
		return
	}

	for _, track := range tracks {
		if known.Has(track.ID) {
			skipped.Add(1)
			continue
		}
		addCandidate(pool, known, track, ReasonArtistTop)
	}

	related, err := e.catalog.GetRelatedArtists(ctx, accessToken, seed.ID, relatedPerSeed)
	if err != nil {
		e.logger.Debug("related artists failed", "artist", seed.Name, "error", err)
		return
	}

	for _, rel := range related {
		relTracks, err := e.catalog.GetArtistTopTracks(ctx, accessToken, rel.ID, relatedTopTracks)
		if err != nil {
			e.logger.Debug("related top tracks failed", "artist", rel.Name, "error", err)
			return
		}

		for _, track := range relTracks {
			if known.Has(track.ID) {
				skipped.Add(1)
				continue
			}
			addCandidate(pool, known, track, ReasonRelatedArtist)
		}
	}
}

// addCandidate inserts a track with the given reasons plus a membership
// tag computed against the immutable known set. Membership is computed
// at every insertion independently of other workers, so the tag is a
// function of the known set alone and never race-dependent.
func addCandidate(pool *Pool, known *KnownSet, track models.Track, reasons ...string) {
	membership := ReasonNewToYou
	if known.Has(track.ID) {
		membership = ReasonAlreadyPlayed
	}
	pool.Add(track, append(reasons, membership)...)
}
