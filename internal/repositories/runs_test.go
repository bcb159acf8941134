package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/shared"
)

func testDB(t *testing.T) *RunRepository {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// In-memory sqlite is per-connection; keep the pool at one.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewRunRepository(db)
}

func sampleRun(results ...models.DiscoveryResult) *models.DiscoveryRun {
	return models.NewDiscoveryRun(40, 120, 60, 7, "known tracks: 12\nPool=120", results)
}

func sampleResult(id, name, artist string, score float64, reasons ...string) models.DiscoveryResult {
	return models.DiscoveryResult{
		Track: models.Track{
			ID:         id,
			Name:       name,
			Artists:    []string{artist},
			URI:        "spotify:track:" + id,
			Popularity: 55,
		},
		Score:   score,
		Reasons: reasons,
	}
}

func TestRunRepository(t *testing.T) {
	t.Run("Create And Get Round Trip", func(t *testing.T) {
		repo := testDB(t)

		run := sampleRun(
			sampleResult("t1", "First", "Alpha", 0.71, "artist-top", "new-to-you"),
			sampleResult("t2", "Second", "Beta", 0.64, "related-artist", "new-to-you"),
		)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.RunID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if got.Desired != 40 || got.PoolSize != 120 || got.DiversifiedSize != 60 || got.SkippedKnown != 7 {
			t.Errorf("run stats not round-tripped: %+v", got)
		}
		if got.Trace != run.Trace {
			t.Errorf("trace mismatch: %q", got.Trace)
		}
		if len(got.Results) != 2 || got.TrackCount != 2 {
			t.Fatalf("expected 2 tracks, got %d (count %d)", len(got.Results), got.TrackCount)
		}
		if got.Results[0].Track.ID != "t1" || got.Results[1].Track.ID != "t2" {
			t.Errorf("track order not preserved: %s, %s", got.Results[0].Track.ID, got.Results[1].Track.ID)
		}
		if got.Results[0].Score != 0.71 {
			t.Errorf("score mismatch: %f", got.Results[0].Score)
		}
		if len(got.Results[0].Reasons) != 2 || got.Results[0].Reasons[0] != "artist-top" {
			t.Errorf("reasons not round-tripped: %v", got.Results[0].Reasons)
		}
		if got.Results[0].Track.Artists[0] != "Alpha" {
			t.Errorf("artists not round-tripped: %v", got.Results[0].Track.Artists)
		}
	})

	t.Run("Get Missing Run", func(t *testing.T) {
		repo := testDB(t)

		_, err := repo.Get("no-such-run")
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Create Rejects Invalid Run", func(t *testing.T) {
		repo := testDB(t)

		run := sampleRun()
		run.Desired = 0
		if err := repo.Create(run); err == nil {
			t.Error("expected validation error for out-of-range desired")
		}
	})

	t.Run("List Returns Headers Newest First", func(t *testing.T) {
		repo := testDB(t)

		first := sampleRun(sampleResult("a", "A", "Alpha", 0.5, "seed-track"))
		second := sampleRun(
			sampleResult("b", "B", "Beta", 0.6, "artist-top"),
			sampleResult("c", "C", "Gamma", 0.4, "artist-top"),
		)
		second.Created = second.Created.Add(time.Second)

		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create first run: %v", err)
		}
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create second run: %v", err)
		}

		runs, err := repo.List(0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].RunID != second.RunID {
			t.Errorf("expected newest run first, got %s", runs[0].RunID)
		}
		if runs[0].TrackCount != 2 || runs[1].TrackCount != 1 {
			t.Errorf("track counts wrong: %d, %d", runs[0].TrackCount, runs[1].TrackCount)
		}
		if len(runs[0].Results) != 0 {
			t.Errorf("listing should omit track rows, got %d", len(runs[0].Results))
		}
	})

	t.Run("List Honors Limit", func(t *testing.T) {
		repo := testDB(t)

		for i := 0; i < 3; i++ {
			if err := repo.Create(sampleRun()); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		runs, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected limit of 2, got %d", len(runs))
		}
	})

	t.Run("Delete Cascades To Tracks", func(t *testing.T) {
		repo := testDB(t)

		run := sampleRun(sampleResult("t1", "First", "Alpha", 0.7, "seed-track"))
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.RunID); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		if _, err := repo.Get(run.RunID); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound after delete, got %v", err)
		}

		var remaining int
		err := repo.db.QueryRow("SELECT COUNT(*) FROM discovery_run_tracks WHERE run_id = ?", run.RunID).Scan(&remaining)
		if err != nil {
			t.Fatalf("failed to count tracks: %v", err)
		}
		if remaining != 0 {
			t.Errorf("expected cascade delete, %d track rows remain", remaining)
		}
	})

	t.Run("Delete Missing Run", func(t *testing.T) {
		repo := testDB(t)

		if err := repo.Delete("no-such-run"); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}
