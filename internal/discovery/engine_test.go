package discovery

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/shared"
	mocks "github.com/desertthunder/earshot/internal/testing"
)

// richCatalog returns a gateway double producing plentiful expansion
// data: every artist has 5 top tracks and 5 related artists.
func richCatalog() *mocks.MockCatalog {
	return &mocks.MockCatalog{
		TopArtistsFn: func(ctx context.Context, token, timeRange string, limit int) ([]models.Artist, error) {
			artists := make([]models.Artist, 0, 5)
			for i := 0; i < 5; i++ {
				artists = append(artists, models.Artist{
					ID:     fmt.Sprintf("artist-%d", i),
					Name:   fmt.Sprintf("Artist %d", i),
					Genres: []string{"shoegaze", "dream pop"},
				})
			}
			return artists, nil
		},
		ArtistTopTracksFn: func(ctx context.Context, token, artistID string, take int) ([]models.Track, error) {
			tracks := make([]models.Track, 0, take)
			for i := 0; i < take; i++ {
				tracks = append(tracks, models.Track{
					ID:         fmt.Sprintf("%s-track-%d", artistID, i),
					Name:       fmt.Sprintf("Track %d", i),
					Artists:    []string{"Act " + artistID + fmt.Sprint(i)},
					Popularity: 40 + i,
				})
			}
			return tracks, nil
		},
		RelatedArtistsFn: func(ctx context.Context, token, artistID string, take int) ([]models.Artist, error) {
			artists := make([]models.Artist, 0, take)
			for i := 0; i < take; i++ {
				artists = append(artists, models.Artist{
					ID:   fmt.Sprintf("%s-rel-%d", artistID, i),
					Name: fmt.Sprintf("Related %d", i),
				})
			}
			return artists, nil
		},
	}
}

func seedTracks(n int) []models.Track {
	tracks := make([]models.Track, 0, n)
	for i := 0; i < n; i++ {
		tracks = append(tracks, models.Track{
			ID:         fmt.Sprintf("seed-track-%d", i),
			Name:       fmt.Sprintf("Seed %d", i),
			Artists:    []string{fmt.Sprintf("Seed Artist %d", i)},
			Popularity: 70,
		})
	}
	return tracks
}

func newTestEngine(catalog *mocks.MockCatalog) *Engine {
	return NewEngine(catalog, shared.NewLogger(io.Discard), Options{Seed: 99})
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("Rich Expansion Produces Full Result", func(t *testing.T) {
		engine := newTestEngine(richCatalog())

		results, trace, err := engine.GetDiscoveryVerbose(ctx, nil, "token", seedTracks(5), 40)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(results) == 0 {
			t.Fatal("expected results from rich expansion")
		}
		if len(results) > 40 {
			t.Errorf("result length %d exceeds desired", len(results))
		}
		for _, result := range results {
			if result.Score <= 0 || result.Score >= 1.07 {
				t.Errorf("score %f outside expected bounds", result.Score)
			}
		}
		if !strings.Contains(trace, "seed artists: 5") {
			t.Errorf("trace missing seed artist count:\n%s", trace)
		}
		if !strings.Contains(trace, "top genres: dream pop, shoegaze") {
			t.Errorf("trace missing genre summary:\n%s", trace)
		}
		if !strings.Contains(trace, "SkippedKnown=0") {
			t.Errorf("trace missing summary line:\n%s", trace)
		}
	})

	t.Run("No Duplicate Identifiers In Result", func(t *testing.T) {
		engine := newTestEngine(richCatalog())

		results, _, _ := engine.GetDiscoveryVerbose(ctx, nil, "token", seedTracks(5), 100)

		seen := make(map[string]struct{})
		for _, result := range results {
			key := strings.ToLower(result.Track.ID)
			if _, dup := seen[key]; dup {
				t.Fatalf("duplicate track %s in result", result.Track.ID)
			}
			seen[key] = struct{}{}
		}
	})

	t.Run("Per Artist Cap Holds In Result", func(t *testing.T) {
		engine := newTestEngine(richCatalog())

		results, _, _ := engine.GetDiscoveryVerbose(ctx, nil, "token", nil, 100)

		counts := make(map[string]int)
		for _, result := range results {
			counts[strings.ToLower(result.Track.PrimaryArtist())]++
		}
		for artist, count := range counts {
			if count > 2 {
				t.Errorf("artist %s appears %d times, cap is 2", artist, count)
			}
		}
	})

	t.Run("Empty World Yields Empty Result With Trace", func(t *testing.T) {
		engine := newTestEngine(&mocks.MockCatalog{})

		results, trace, err := engine.GetDiscovery(ctx, nil, "token", nil, 40)
		if err != nil {
			t.Fatalf("expected graceful degradation, got %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected empty result, got %d tracks", len(results))
		}
		if !strings.Contains(trace, "Pool=0") {
			t.Errorf("trace must state Pool=0:\n%s", trace)
		}
	})

	t.Run("Known Tracks Never Appear As Fresh Discoveries", func(t *testing.T) {
		catalog := richCatalog()
		catalog.RecentlyPlayedFn = func(ctx context.Context, token string, limit int) (map[string]struct{}, error) {
			// The listener has heard artist-0's entire output.
			ids := make(map[string]struct{})
			for i := 0; i < 5; i++ {
				ids[fmt.Sprintf("artist-0-track-%d", i)] = struct{}{}
			}
			return ids, nil
		}

		engine := newTestEngine(catalog)
		results, trace, _ := engine.GetDiscoveryVerbose(ctx, nil, "token", seedTracks(3), 100)

		for _, result := range results {
			reasons := strings.Join(result.Reasons, ",")
			if strings.HasPrefix(strings.ToLower(result.Track.ID), "artist-0-track-") {
				if !strings.Contains(reasons, ReasonFallbackKnown) && !strings.Contains(reasons, ReasonSeedTrack) {
					t.Errorf("known track %s surfaced without fallback/seed tag: %v", result.Track.ID, result.Reasons)
				}
			}
		}
		if !strings.Contains(trace, "SkippedKnown=") {
			t.Errorf("trace missing skipped counter:\n%s", trace)
		}
	})

	t.Run("Sparse Pool Backfills From Seed Metadata", func(t *testing.T) {
		// No expansion data at all; only the caller-supplied seeds have
		// metadata, so fallback is the sole source.
		engine := newTestEngine(&mocks.MockCatalog{})

		results, trace, err := engine.GetDiscoveryVerbose(ctx, nil, "token", seedTracks(6), 40)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) == 0 {
			t.Fatal("expected backfilled results")
		}
		for _, result := range results {
			found := false
			for _, reason := range result.Reasons {
				if reason == ReasonFallbackKnown {
					found = true
				}
			}
			if !found {
				t.Errorf("backfilled track %s missing fallback tag: %v", result.Track.ID, result.Reasons)
			}
		}
		if !strings.Contains(trace, "backfilled") {
			t.Errorf("trace missing backfill line:\n%s", trace)
		}
	})

	t.Run("No Backfill When Pool Is Large Enough", func(t *testing.T) {
		engine := newTestEngine(richCatalog())

		_, trace, _ := engine.GetDiscoveryVerbose(ctx, nil, "token", seedTracks(5), 10)

		if strings.Contains(trace, "backfilled") {
			t.Errorf("unexpected backfill with a full pool:\n%s", trace)
		}
	})

	t.Run("Fixed Seed Is Idempotent", func(t *testing.T) {
		first, _, _ := newTestEngine(richCatalog()).GetDiscoveryVerbose(ctx, nil, "token", seedTracks(5), 40)
		second, _, _ := newTestEngine(richCatalog()).GetDiscoveryVerbose(ctx, nil, "token", seedTracks(5), 40)

		if len(first) != len(second) {
			t.Fatalf("result lengths differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].Track.ID != second[i].Track.ID || first[i].Score != second[i].Score {
				t.Fatalf("rankings diverge at %d with a fixed seed", i)
			}
		}
	})

	t.Run("Desired Is Clamped", func(t *testing.T) {
		engine := newTestEngine(richCatalog())

		results, _, _ := engine.GetDiscovery(ctx, nil, "token", seedTracks(5), 100000)
		if len(results) > 100 {
			t.Errorf("desired clamp violated: got %d results", len(results))
		}
	})

	t.Run("Progress Updates Are Emitted", func(t *testing.T) {
		engine := newTestEngine(richCatalog())
		progress := make(chan ProgressUpdate, 32)

		_, _, err := engine.GetDiscovery(ctx, progress, "token", seedTracks(3), 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		phases := make(map[Phase]bool)
		for update := range progress {
			phases[update.Phase] = true
		}
		for _, phase := range []Phase{PhaseBuildKnownSet, FetchSeedArtists, ExpandArtists, DiversifyPool, RankResults, Done} {
			if !phases[phase] {
				t.Errorf("missing progress phase %s", phase)
			}
		}
	})
}
