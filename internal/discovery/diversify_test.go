package discovery

import (
	"fmt"
	"testing"

	"github.com/desertthunder/earshot/internal/models"
)

func pooledFixture(id, name, artist string, popularity int) PooledTrack {
	track := models.Track{ID: id, Name: name, Popularity: popularity}
	if artist != "" {
		track.Artists = []string{artist}
	}
	return PooledTrack{Track: track, Reasons: map[string]struct{}{ReasonArtistTop: {}}}
}

func TestDiversify(t *testing.T) {
	t.Run("Caps Tracks Per Artist", func(t *testing.T) {
		var candidates []PooledTrack
		for i := 0; i < 6; i++ {
			candidates = append(candidates, pooledFixture(fmt.Sprintf("a%d", i), fmt.Sprintf("Song %d", i), "Prolific", 50+i))
		}
		candidates = append(candidates, pooledFixture("b0", "Other", "Sparse", 30))

		out := Diversify(candidates, 2)

		counts := make(map[string]int)
		for _, pooled := range out {
			counts[pooled.Track.PrimaryArtist()]++
		}
		if counts["Prolific"] != 2 {
			t.Errorf("expected 2 tracks for Prolific, got %d", counts["Prolific"])
		}
		if counts["Sparse"] != 1 {
			t.Errorf("expected 1 track for Sparse, got %d", counts["Sparse"])
		}
	})

	t.Run("Keeps Most Popular Then Name Order", func(t *testing.T) {
		candidates := []PooledTrack{
			pooledFixture("t1", "Zeta", "Band", 80),
			pooledFixture("t2", "Alpha", "Band", 80),
			pooledFixture("t3", "Mid", "Band", 90),
		}

		out := Diversify(candidates, 2)

		if len(out) != 2 {
			t.Fatalf("expected 2 survivors, got %d", len(out))
		}
		if out[0].Track.Name != "Mid" {
			t.Errorf("expected highest popularity first, got %s", out[0].Track.Name)
		}
		if out[1].Track.Name != "Alpha" {
			t.Errorf("expected name tie-break, got %s", out[1].Track.Name)
		}
	})

	t.Run("Artistless Tracks Share Unknown Bucket", func(t *testing.T) {
		candidates := []PooledTrack{
			pooledFixture("t1", "Mystery A", "", 10),
			pooledFixture("t2", "Mystery B", "", 20),
			pooledFixture("t3", "Mystery C", "", 30),
		}

		out := Diversify(candidates, 2)

		if len(out) != 2 {
			t.Errorf("expected unknown bucket capped at 2, got %d", len(out))
		}
	})

	t.Run("Grouping Is Case Insensitive", func(t *testing.T) {
		candidates := []PooledTrack{
			pooledFixture("t1", "One", "The Band", 50),
			pooledFixture("t2", "Two", "the band", 60),
			pooledFixture("t3", "Three", "THE BAND", 70),
		}

		out := Diversify(candidates, 2)

		if len(out) != 2 {
			t.Errorf("expected artist spellings to share a group, got %d survivors", len(out))
		}
	})

	t.Run("Deterministic Output Order", func(t *testing.T) {
		candidates := []PooledTrack{
			pooledFixture("t1", "One", "Zeta Band", 50),
			pooledFixture("t2", "Two", "Alpha Band", 60),
		}

		first := Diversify(candidates, 2)
		second := Diversify(candidates, 2)

		for i := range first {
			if first[i].Track.ID != second[i].Track.ID {
				t.Fatal("expected identical ordering across calls")
			}
		}
		if first[0].Track.PrimaryArtist() != "Alpha Band" {
			t.Errorf("expected artist-name group order, got %s first", first[0].Track.PrimaryArtist())
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		if out := Diversify(nil, 2); len(out) != 0 {
			t.Errorf("expected empty output, got %d", len(out))
		}
	})
}
