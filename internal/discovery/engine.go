package discovery

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/services"
	"github.com/desertthunder/earshot/internal/shared"
)

const (
	// seedArtistLimit caps the seed list drawn from the listener's
	// medium-term top artists.
	seedArtistLimit = 15
	// backfillScanLimit caps how many known identifiers the fallback
	// stage examines.
	backfillScanLimit = 100
	// genreSummaryCount is how many genres the trace reports.
	genreSummaryCount = 5

	mediumTerm = "medium_term"
)

// Options tunes an [Engine]. Zero values fall back to defaults.
type Options struct {
	Workers      int   // concurrent expansion units, default 4
	SeedArtists  int   // seed artist cap, default 15
	PerArtistCap int   // diversification cap, default 2
	Seed         int64 // jitter seed; 0 means time-seeded
}

// Engine orchestrates one discovery run: known-set construction,
// parallel artist expansion, fallback backfill, diversification, and
// ranking, with a human-readable trace of every stage.
//
// The engine keeps no state between invocations. Once seed data is in
// hand it has no fatal error path: gateway failures shrink the result,
// worst case to an empty list with a trace explaining why.
type Engine struct {
	catalog services.Catalog
	logger  *log.Logger
	opts    Options
}

// NewEngine creates an Engine over the given catalog gateway.
func NewEngine(catalog services.Catalog, logger *log.Logger, opts Options) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.SeedArtists <= 0 {
		opts.SeedArtists = seedArtistLimit
	}
	if opts.PerArtistCap <= 0 {
		opts.PerArtistCap = 2
	}
	return &Engine{catalog: catalog, logger: logger, opts: opts}
}

// GetDiscovery returns up to desired never-heard tracks plus the trace
// text. desired is clamped to [1, 100]; 0 is a valid input. topTracks
// is the caller-supplied seed list and may be empty, in which case the
// result is whatever expansion and fallback can produce.
func (e *Engine) GetDiscovery(ctx context.Context, progress chan<- ProgressUpdate, accessToken string, topTracks []models.Track, desired int) ([]models.Track, string, error) {
	results, trace, err := e.GetDiscoveryVerbose(ctx, progress, accessToken, topTracks, desired)
	if err != nil {
		return nil, trace, err
	}

	tracks := make([]models.Track, 0, len(results))
	for _, result := range results {
		tracks = append(tracks, result.Track)
	}
	return tracks, trace, nil
}

// GetDiscoveryVerbose is GetDiscovery with scores and provenance
// reasons attached to every result.
func (e *Engine) GetDiscoveryVerbose(ctx context.Context, progress chan<- ProgressUpdate, accessToken string, topTracks []models.Track, desired int) ([]models.DiscoveryResult, string, error) {
	results, trace, _, err := e.run(ctx, progress, accessToken, topTracks, desired)
	return results, trace, err
}

// GetDiscoveryRun executes a discovery run and packages the outcome as
// a persistable [models.DiscoveryRun] with pool and skip counters.
func (e *Engine) GetDiscoveryRun(ctx context.Context, progress chan<- ProgressUpdate, accessToken string, topTracks []models.Track, desired int) (*models.DiscoveryRun, error) {
	results, trace, stats, err := e.run(ctx, progress, accessToken, topTracks, desired)
	if err != nil {
		return nil, err
	}
	return models.NewDiscoveryRun(ClampDesired(desired), stats.pool, stats.diversified, stats.skipped, trace, results), nil
}

// runStats carries the stage counters out of a run for persistence.
type runStats struct {
	pool        int
	diversified int
	skipped     int
}

func (e *Engine) run(ctx context.Context, progress chan<- ProgressUpdate, accessToken string, topTracks []models.Track, desired int) ([]models.DiscoveryResult, string, runStats, error) {
	desired = ClampDesired(desired)
	trace := NewTrace()

	e.sendProgress(progress, knownSetUpdate())
	known := BuildKnownSet(ctx, e.catalog, e.logger, accessToken, topTracks)
	trace.Addf("known tracks: %d (top=%d recent=%d saved=%d)",
		known.Len(), known.TopCount, known.RecentCount, known.SavedCount)

	e.sendProgress(progress, seedArtistsUpdate())
	seeds := e.seedArtists(ctx, accessToken)
	trace.Addf("seed artists: %d", len(seeds))

	if genres := topGenres(seeds, genreSummaryCount); len(genres) > 0 {
		trace.Addf("top genres: %s", strings.Join(genres, ", "))
	}

	pool := NewPool()

	e.sendProgress(progress, expandUpdate(len(seeds)))
	expander := NewExpander(e.catalog, e.logger, e.opts.Workers)
	skipped := expander.Expand(ctx, accessToken, seeds, known, pool)

	if pool.Len() < desired/2 {
		e.sendProgress(progress, backfillUpdate())
		added := backfillFromKnown(pool, known, topTracks)
		if added > 0 {
			trace.Addf("backfilled %d known tracks (pool was sparse)", added)
		}
	}

	candidates := pool.Snapshot()

	e.sendProgress(progress, diversifyUpdate(len(candidates)))
	diversified := Diversify(candidates, e.opts.PerArtistCap)

	e.sendProgress(progress, rankUpdate(len(diversified)))
	results := Rank(e.rng(), diversified, desired)

	trace.Summary(len(candidates), len(diversified), len(results), skipped)
	e.sendProgress(progress, doneUpdate(len(results)))

	e.logger.Info("discovery complete",
		"pool", len(candidates), "diversified", len(diversified),
		"results", len(results), "skipped_known", skipped)

	stats := runStats{pool: len(candidates), diversified: len(diversified), skipped: skipped}
	return results, trace.String(), stats, nil
}

// seedArtists fetches and deduplicates the listener's medium-term top
// artists, capped at the configured seed limit. A gateway failure here
// degrades to zero seeds rather than failing the run.
func (e *Engine) seedArtists(ctx context.Context, accessToken string) []models.Artist {
	artists, err := e.catalog.GetTopArtists(ctx, accessToken, mediumTerm, e.opts.SeedArtists)
	if err != nil {
		e.logger.Warn("top artists unavailable", "error", err)
		return nil
	}

	seen := make(map[string]struct{}, len(artists))
	seeds := make([]models.Artist, 0, len(artists))
	for _, artist := range artists {
		key := strings.ToLower(artist.ID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		seeds = append(seeds, artist)
		if len(seeds) == e.opts.SeedArtists {
			break
		}
	}
	return seeds
}

// backfillFromKnown relaxes novelty when the listener's graph is too
// sparse to fill half the request: known identifiers whose metadata is
// available from the caller-supplied seed list are pooled as
// fallback-known seed tracks. Known identifiers without seed metadata
// are skipped, never fetched.
func backfillFromKnown(pool *Pool, known *KnownSet, topTracks []models.Track) int {
	seedMeta := make(map[string]models.Track, len(topTracks))
	for _, track := range topTracks {
		if track.ID != "" {
			seedMeta[strings.ToLower(track.ID)] = track
		}
	}

	added := 0
	scanned := 0
	known.Each(func(id string) bool {
		scanned++
		if scanned > backfillScanLimit {
			return false
		}
		if pool.Has(id) {
			return true
		}
		track, ok := seedMeta[id]
		if !ok {
			return true
		}
		addCandidate(pool, known, track, ReasonFallbackKnown, ReasonSeedTrack)
		added++
		return true
	})
	return added
}

// rng builds the jitter source for one invocation. A fixed configured
// seed makes ranking reproducible; otherwise each run varies.
func (e *Engine) rng() *rand.Rand {
	seed := e.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// sendProgress sends a progress update without blocking. A nil channel
// or a full buffer drops the update.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
