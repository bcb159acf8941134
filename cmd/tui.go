package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/earshot/internal/shared"
	"github.com/desertthunder/earshot/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for track discovery.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	token, err := r.ensureToken(ctx)
	if err != nil {
		return err
	}

	desired := cmd.Int("limit")
	if desired <= 0 {
		desired = r.config.Discovery.Desired
	}
	if desired <= 0 {
		desired = defaultDesired
	}

	seeds, err := r.spotify.GetTopTracks(ctx, token, mediumTerm, seedTrackLimit)
	if err != nil {
		r.logger.Warn("top tracks unavailable", "error", err)
		seeds = nil
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/earshot-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, log.DebugLevel)
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.engine, token, seeds, desired)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
