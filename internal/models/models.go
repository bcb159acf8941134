// package models defines the data model for the earshot discovery service
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/earshot/internal/shared"
)

// Track represents a playable track from the catalog.
//
// The ID is opaque and source-assigned; comparisons elsewhere in the
// codebase are case-insensitive. The first entry in Artists is the
// primary artist used for grouping.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	ArtworkURL string   `json:"artwork_url,omitempty"`
	URI        string   `json:"uri,omitempty"`
	PreviewURL string   `json:"preview_url,omitempty"`
	Popularity int      `json:"popularity"`
}

// PrimaryArtist returns the first artist name, or an empty string when
// the track carries no artist information.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ArtistLine joins all artist names for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Artist represents a catalog artist.
type Artist struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Genres   []string `json:"genres,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// DiscoveryResult is a ranked track with its score and an immutable
// snapshot of the provenance reasons recorded at ranking time.
type DiscoveryResult struct {
	Track   Track    `json:"track"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// DiscoveryRun is a persisted record of one discovery invocation,
// stored when the user opts in with --save.
type DiscoveryRun struct {
	RunID           string            `json:"run_id"`
	Created         time.Time         `json:"created_at"`
	Desired         int               `json:"desired"`
	PoolSize        int               `json:"pool_size"`
	DiversifiedSize int               `json:"diversified_size"`
	SkippedKnown    int               `json:"skipped_known"`
	Trace           string            `json:"trace"`
	Results         []DiscoveryResult `json:"results"`

	// TrackCount mirrors len(Results) for listings that omit the
	// track rows themselves.
	TrackCount int `json:"track_count"`
}

// NewDiscoveryRun creates a DiscoveryRun with a fresh v4 UUID and the
// current timestamp.
func NewDiscoveryRun(desired, poolSize, diversifiedSize, skipped int, trace string, results []DiscoveryResult) *DiscoveryRun {
	return &DiscoveryRun{
		RunID:           shared.GenerateID(),
		Created:         time.Now().UTC(),
		Desired:         desired,
		PoolSize:        poolSize,
		DiversifiedSize: diversifiedSize,
		SkippedKnown:    skipped,
		Trace:           trace,
		Results:         results,
		TrackCount:      len(results),
	}
}

// Validate checks that the run is storable.
func (r *DiscoveryRun) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("discovery run missing id")
	}
	if r.Desired < 1 || r.Desired > 100 {
		return fmt.Errorf("discovery run desired %d out of range [1, 100]", r.Desired)
	}
	return nil
}
