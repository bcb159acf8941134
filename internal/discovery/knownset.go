package discovery

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/services"
)

const (
	recentlyPlayedLimit = 50
	savedTracksMax      = 300
)

// KnownSet is the set of track identifiers the listener has already
// encountered. Comparison is case-insensitive. The set is immutable once
// built, so expansion workers share it without synchronization.
type KnownSet struct {
	ids map[string]struct{}

	// Component counts, kept for the trace.
	TopCount    int
	RecentCount int
	SavedCount  int
}

// Has reports whether the identifier is known.
func (k *KnownSet) Has(id string) bool {
	_, ok := k.ids[strings.ToLower(id)]
	return ok
}

// Len returns the number of known identifiers.
func (k *KnownSet) Len() int {
	return len(k.ids)
}

// Each calls fn for every known identifier (lowercased) until fn returns
// false. Iteration order is unspecified.
func (k *KnownSet) Each(fn func(id string) bool) {
	for id := range k.ids {
		if !fn(id) {
			return
		}
	}
}

// BuildKnownSet unions the caller-supplied top tracks with the
// listener's recently-played and saved track identifiers.
//
// The two gateway-backed sources are optional: a permission failure or
// any other error there degrades that source to empty and the build
// continues. Partial data shrinks discovery scope, it never fails it.
func BuildKnownSet(ctx context.Context, catalog services.Catalog, logger *log.Logger, accessToken string, topTracks []models.Track) *KnownSet {
	known := &KnownSet{ids: make(map[string]struct{})}

	for _, track := range topTracks {
		if track.ID == "" {
			continue
		}
		key := strings.ToLower(track.ID)
		if _, seen := known.ids[key]; !seen {
			known.ids[key] = struct{}{}
			known.TopCount++
		}
	}

	recent, err := catalog.GetRecentlyPlayedTrackIDs(ctx, accessToken, recentlyPlayedLimit)
	if err != nil {
		logger.Debug("recently played unavailable", "error", err)
	}
	for id := range recent {
		key := strings.ToLower(id)
		if _, seen := known.ids[key]; !seen {
			known.ids[key] = struct{}{}
			known.RecentCount++
		}
	}

	saved, err := catalog.GetSavedTrackIDs(ctx, accessToken, savedTracksMax)
	if err != nil {
		logger.Debug("saved tracks unavailable", "error", err)
	}
	for id := range saved {
		key := strings.ToLower(id)
		if _, seen := known.ids[key]; !seen {
			known.ids[key] = struct{}{}
			known.SavedCount++
		}
	}

	return known
}
