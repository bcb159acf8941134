package discovery

import (
	"sort"
	"strings"
)

// unknownArtistBucket groups tracks that carry no artist information.
const unknownArtistBucket = "unknown"

// Diversify caps any single artist's share of the candidate list.
//
// Candidates are grouped by primary artist (first artist name,
// case-folded; artistless tracks share one "unknown" bucket). Within
// each group candidates are ordered by descending popularity, ties
// broken by name, and at most perArtist survive. Groups are emitted in
// artist-name order so the output is deterministic.
func Diversify(candidates []PooledTrack, perArtist int) []PooledTrack {
	if perArtist <= 0 {
		perArtist = 2
	}

	groups := make(map[string][]PooledTrack)
	for _, candidate := range candidates {
		artist := strings.ToLower(candidate.Track.PrimaryArtist())
		if artist == "" {
			artist = unknownArtistBucket
		}
		groups[artist] = append(groups[artist], candidate)
	}

	artists := make([]string, 0, len(groups))
	for artist := range groups {
		artists = append(artists, artist)
	}
	sort.Strings(artists)

	out := make([]PooledTrack, 0, len(candidates))
	for _, artist := range artists {
		group := groups[artist]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Track.Popularity != group[j].Track.Popularity {
				return group[i].Track.Popularity > group[j].Track.Popularity
			}
			return group[i].Track.Name < group[j].Track.Name
		})

		if len(group) > perArtist {
			group = group[:perArtist]
		}
		out = append(out, group...)
	}

	return out
}
