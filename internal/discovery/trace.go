package discovery

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/earshot/internal/models"
)

// Trace collects one human-readable line per discovery stage for
// diagnostic display alongside the ranked result.
//
// The trace is informational text only: nothing downstream parses it and
// it has no effect on ranking. Stages append sequentially, so no
// synchronization is needed.
type Trace struct {
	start time.Time
	lines []string
}

// NewTrace starts a trace; elapsed time in the summary line is measured
// from this call.
func NewTrace() *Trace {
	return &Trace{start: time.Now()}
}

// Addf appends a formatted line to the trace.
func (t *Trace) Addf(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// Summary appends the closing counters line.
func (t *Trace) Summary(poolSize, diversified, results, skippedKnown int) {
	t.Addf("Pool=%d Diversified=%d Results=%d SkippedKnown=%d Elapsed=%s",
		poolSize, diversified, results, skippedKnown, time.Since(t.start).Round(time.Millisecond))
}

// String returns the trace as newline-joined text.
func (t *Trace) String() string {
	return strings.Join(t.lines, "\n")
}

// topGenres returns the up-to-n most frequent genre tags across the
// given artists, case-folded, ties broken alphabetically.
func topGenres(artists []models.Artist, n int) []string {
	counts := make(map[string]int)
	for _, artist := range artists {
		for _, genre := range artist.Genres {
			genre = strings.ToLower(strings.TrimSpace(genre))
			if genre == "" {
				continue
			}
			counts[genre]++
		}
	}

	genres := make([]string, 0, len(counts))
	for genre := range counts {
		genres = append(genres, genre)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})

	if len(genres) > n {
		genres = genres[:n]
	}
	return genres
}
