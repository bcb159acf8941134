package discovery

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/desertthunder/earshot/internal/models"
)

const (
	minDesired = 1
	maxDesired = 100

	// newToYouBonus rewards candidates the listener has never heard.
	newToYouBonus = 5
	// jitterRange is the width of the uniform random perturbation added
	// to every score to break ties and vary repeated runs.
	jitterRange = 2.0
)

// ClampDesired bounds the requested result count to [1, 100].
func ClampDesired(desired int) int {
	if desired < minDesired {
		return minDesired
	}
	if desired > maxDesired {
		return maxDesired
	}
	return desired
}

// Rank scores the diversified candidates and returns the top desired
// results in descending score order.
//
// score = (popularity + bonus + jitter) / 100, where bonus is 5 for
// candidates tagged new-to-you and jitter is drawn uniformly from
// [0, 2) per candidate per invocation. Candidates are deduplicated by
// identifier once more before scoring: diversification groups by
// primary artist, so a track pooled under two artist spellings could in
// principle survive twice.
//
// Each result carries a sorted snapshot of its reason set taken at
// ranking time; later pool mutations cannot leak into results.
func Rank(rng *rand.Rand, candidates []PooledTrack, desired int) []models.DiscoveryResult {
	desired = ClampDesired(desired)

	seen := make(map[string]struct{}, len(candidates))
	results := make([]models.DiscoveryResult, 0, len(candidates))

	for _, candidate := range candidates {
		key := strings.ToLower(candidate.Track.ID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		bonus := 0.0
		if candidate.HasReason(ReasonNewToYou) {
			bonus = newToYouBonus
		}
		jitter := rng.Float64() * jitterRange
		score := (float64(candidate.Track.Popularity) + bonus + jitter) / 100

		results = append(results, models.DiscoveryResult{
			Track:   candidate.Track,
			Score:   score,
			Reasons: candidate.ReasonList(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > desired {
		results = results[:desired]
	}
	return results
}
