package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/earshot/internal/shared"
	"github.com/urfave/cli/v3"
)

// RunsList lists saved discovery runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	repo, db, err := r.openRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repo.List(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if useJSON {
		return r.writeJSON(runs, pretty)
	}

	if len(runs) == 0 {
		r.writePlain("No saved runs. Use 'earshot discover --save' to create one.\n")
		return nil
	}

	r.writePlain("Found %d saved runs:\n\n", len(runs))
	for i, run := range runs {
		r.writePlain("%d. %s\n", i+1, run.RunID)
		r.writePlain("   Created: %s\n", run.Created.Format(time.RFC3339))
		r.writePlain("   Tracks: %d of %d requested\n", run.TrackCount, run.Desired)
		r.writePlain("   Pool: %d candidates, %d known skipped\n\n", run.PoolSize, run.SkippedKnown)
	}

	return nil
}

// RunsShow prints one saved run with its ranked tracks.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	showTrace := cmd.Bool("trace")

	if id == "" {
		return fmt.Errorf("%w: run id argument is required", shared.ErrMissingArgument)
	}

	repo, db, err := r.openRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := repo.Get(id)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(run, pretty)
	}

	r.writePlainHeader(fmt.Sprintf("Run %s", run.RunID))
	r.writePlain("Created: %s\n", run.Created.Format(time.RFC3339))
	r.writePlain("Tracks: %d of %d requested\n", len(run.Results), run.Desired)
	r.writePlain("Pool: %d candidates, %d after diversification, %d known skipped\n\n",
		run.PoolSize, run.DiversifiedSize, run.SkippedKnown)

	for i, result := range run.Results {
		r.writePlain("%d. %s - %s [%.3f]\n", i+1, result.Track.ArtistLine(), result.Track.Name, result.Score)
		if len(result.Reasons) > 0 {
			r.writePlain("   Reasons: %s\n", strings.Join(result.Reasons, ", "))
		}
	}

	if showTrace && run.Trace != "" {
		r.writePlainln("Trace:")
		r.writePlain("%s\n", run.Trace)
	}

	return nil
}

// RunsDelete removes a saved run and its tracks.
func (r *Runner) RunsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id argument is required", shared.ErrMissingArgument)
	}

	repo, db, err := r.openRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(id); err != nil {
		return err
	}

	r.logger.Info("run deleted", "run_id", id)
	r.writePlain("✓ Run deleted: %s\n", id)
	return nil
}
