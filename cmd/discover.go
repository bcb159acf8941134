package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/earshot/internal/discovery"
	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	defaultDesired = 40
	seedTrackLimit = 50
	mediumTerm     = "medium_term"
)

// Discover runs one discovery pass and prints the ranked tracks.
//
// With --save the full run is persisted to the local database so it can
// be listed, shown, and exported later.
func (r *Runner) Discover(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")
	verbose := cmd.Bool("verbose")

	desired := cmd.Int("limit")
	if desired <= 0 {
		desired = r.config.Discovery.Desired
	}
	if desired <= 0 {
		desired = defaultDesired
	}

	token, err := r.ensureToken(ctx)
	if err != nil {
		return err
	}

	seeds, err := r.fetchSeeds(ctx, cmd, token)
	if err != nil {
		return err
	}
	// fetchSeeds may have replaced the token pair via reauthorization.
	if current := r.config.Credentials.Spotify.AccessToken; current != "" {
		token = current
	}
	if len(seeds) == 0 {
		r.logger.Warn("no seed tracks available, discovery will rely on expansion alone")
	}

	progress := make(chan discovery.ProgressUpdate, 16)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for update := range progress {
			if useJSON {
				r.logger.Info(update.Message, "phase", update.Phase.String())
			} else {
				r.writePlain("→ %s\n", update.Message)
			}
		}
	}()

	run, err := r.engine.GetDiscoveryRun(ctx, progress, token, seeds, desired)
	close(progress)
	<-pumpDone
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if save {
		repo, db, err := r.openRepo()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repo.Create(run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		r.logger.Info("run saved", "run_id", run.RunID, "tracks", len(run.Results))
	}

	if useJSON {
		return r.writeJSON(run, pretty)
	}

	r.writePlainHeader(fmt.Sprintf("Discovered %d tracks", len(run.Results)))
	r.printResults(run.Results, verbose)

	if verbose {
		r.writePlainln("Trace:")
		r.writePlain("%s\n", run.Trace)
	}

	if save {
		r.writePlainln("✓ Run saved: %s", run.RunID)
	}

	return nil
}

// fetchSeeds loads the listener's top tracks, retrying once after
// reauthorization when the stored token has expired. A non-auth gateway
// failure degrades to zero seeds.
func (r *Runner) fetchSeeds(ctx context.Context, cmd *cli.Command, token string) ([]models.Track, error) {
	seeds, err := r.spotify.GetTopTracks(ctx, token, mediumTerm, seedTrackLimit)
	if err == nil {
		return seeds, nil
	}

	retried, authErr := r.handleAuthError(ctx, err, cmd)
	if !retried {
		r.logger.Warn("top tracks unavailable", "error", err)
		return nil, nil
	}
	if authErr != nil {
		return nil, authErr
	}

	token = r.config.Credentials.Spotify.AccessToken
	seeds, err = r.spotify.GetTopTracks(ctx, token, mediumTerm, seedTrackLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return seeds, nil
}

// printResults writes a numbered track listing to the output writer.
func (r *Runner) printResults(results []models.DiscoveryResult, verbose bool) {
	for i, result := range results {
		r.writePlain("%d. %s - %s\n", i+1, result.Track.ArtistLine(), result.Track.Name)
		r.writePlain("   Popularity: %d  Score: %.3f\n", result.Track.Popularity, result.Score)
		if verbose && len(result.Reasons) > 0 {
			r.writePlain("   Reasons: %s\n", strings.Join(result.Reasons, ", "))
		}
	}
	r.writePlain("\n")
}
