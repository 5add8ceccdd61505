package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crate/internal/audio"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/selection"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive queue and library. Paths given as arguments are uploaded right
// away; --watch keeps adding files from a folder while the TUI runs.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))
	r.SetLogger(fileLogger)

	var files []models.FileHandle
	if paths := cmd.Args().Slice(); len(paths) > 0 {
		if files, err = audio.Collect(paths, r.config.Upload.Extension); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan tasks.ProgressUpdate, 256)
	orch := r.orchestrator(updates)
	defer func() {
		cancel()
		orch.Wait()
	}()

	if dir := cmd.String("watch"); dir != "" {
		watcher, err := audio.NewWatcher(dir, r.config.Upload.Extension, audio.DefaultSettle, r.logger)
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Run(ctx, func(f models.FileHandle) {
				orch.Enqueue(ctx, []models.FileHandle{f})
			}); err != nil {
				r.logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	view := ui.LibraryView
	if len(files) > 0 || cmd.String("watch") != "" {
		view = ui.QueueView
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Orchestrator: orch,
		Session:      r.session(),
		Selection:    selection.New(),
		Exporter:     r.analyzer,
		Updates:      updates,
		View:         view,
	})
	orch.Enqueue(ctx, files)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
