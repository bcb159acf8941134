package discovery

import (
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/earshot/internal/models"
)

// Provenance reason tags recorded on pooled tracks.
const (
	ReasonSeedTrack     = "seed-track"
	ReasonArtistTop     = "artist-top"
	ReasonRelatedArtist = "related-artist"
	ReasonAlreadyPlayed = "already-played"
	ReasonNewToYou      = "new-to-you"
	ReasonFallbackKnown = "fallback-known"
)

// PooledTrack is a candidate track plus the set of reasons it entered
// the pool. Reasons accumulate across inserts; they are never replaced.
type PooledTrack struct {
	Track   models.Track
	Reasons map[string]struct{}
}

// ReasonList returns a sorted, deduplicated snapshot of the reason set.
func (p PooledTrack) ReasonList() []string {
	reasons := make([]string, 0, len(p.Reasons))
	for reason := range p.Reasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}

// HasReason reports whether the given tag is in the reason set.
func (p PooledTrack) HasReason(reason string) bool {
	_, ok := p.Reasons[reason]
	return ok
}

// Pool is a concurrent, deduplicating collection of candidate tracks
// keyed by case-insensitive track identifier.
//
// Add is insert-or-merge: concurrent inserts of the same identifier
// union their reason sets under the pool lock, so the pool never holds
// two records for one track. The critical section is O(1); no network
// call ever happens while the lock is held.
type Pool struct {
	mu     sync.Mutex
	tracks map[string]*PooledTrack
}

// NewPool creates an empty candidate pool.
func NewPool() *Pool {
	return &Pool{tracks: make(map[string]*PooledTrack)}
}

// Add inserts the track with the given reasons, or merges the reasons
// into the existing entry when the identifier is already pooled. Tracks
// without an identifier and inserts without reasons are ignored, which
// preserves the at-least-one-reason invariant.
func (p *Pool) Add(track models.Track, reasons ...string) {
	if track.ID == "" || len(reasons) == 0 {
		return
	}
	key := strings.ToLower(track.ID)

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.tracks[key]
	if !ok {
		entry = &PooledTrack{Track: track, Reasons: make(map[string]struct{}, len(reasons))}
		p.tracks[key] = entry
	}
	for _, reason := range reasons {
		entry.Reasons[reason] = struct{}{}
	}
}

// Has reports whether the identifier is already pooled.
func (p *Pool) Has(id string) bool {
	key := strings.ToLower(id)

	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tracks[key]
	return ok
}

// Len returns the number of distinct tracks pooled.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracks)
}

// Snapshot returns a copy of every pooled track with copied reason sets,
// ordered by track identifier for deterministic downstream processing.
func (p *Pool) Snapshot() []PooledTrack {
	p.mu.Lock()
	keys := make([]string, 0, len(p.tracks))
	for key := range p.tracks {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]PooledTrack, 0, len(keys))
	for _, key := range keys {
		entry := p.tracks[key]
		reasons := make(map[string]struct{}, len(entry.Reasons))
		for reason := range entry.Reasons {
			reasons[reason] = struct{}{}
		}
		out = append(out, PooledTrack{Track: entry.Track, Reasons: reasons})
	}
	p.mu.Unlock()

	return out
}
