package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/earshot/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes saved runs to disk in the requested format, exporting
// concurrently and summarizing the batch in a manifest.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	outputDir := cmd.String("output")
	workers := cmd.Int("workers")
	ids := cmd.StringSlice("id")

	repo, db, err := r.openRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewExportEngine(repo, r.logger)

	progress := make(chan tasks.ProgressUpdate, 16)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for update := range progress {
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	result, err := engine.BulkExport(ctx, progress, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  outputDir,
		NumWorkers: workers,
	})
	close(progress)
	<-pumpDone
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	r.writePlainHeader("Export complete")
	r.writePlain("Runs: %d total, %d exported, %d failed\n", result.TotalRuns, result.SuccessfulExports, result.FailedExports)
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	for _, exported := range result.Results {
		if !exported.Success {
			r.writePlain("✗ %s: %s\n", exported.RunID, exported.Error)
		}
	}

	return nil
}
