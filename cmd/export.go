package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/selection"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/urfave/cli/v3"
)

// Export builds a selection from ids, --all and --filter and exports it, either through the
// server's CSV export or locally with the effective values.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	picked := selection.New(cmd.Args().Slice()...)
	filter := cmd.String("filter")
	local := cmd.String("local")

	var tracks []models.Track
	if cmd.Bool("all") || filter != "" || local != "" {
		session := r.session()
		if err := session.Load(ctx); err != nil {
			return err
		}
		tracks = session.Tracks()

		if cmd.Bool("all") || filter != "" {
			session.SetFilter(filter)
			visible := session.Visible()
			if !picked.AllSelected(visible) {
				picked.ToggleAll(visible)
			}
		}
	}

	var exporter selection.Exporter = r.analyzer
	if local != "" {
		exporter = &localExporter{tracks: tracks, path: local}
	}

	path, err := picked.Export(ctx, exporter)
	if errors.Is(err, shared.ErrNothingSelected) {
		return fmt.Errorf("%w: pass track ids, --all or --filter", err)
	}
	if err != nil {
		return err
	}

	r.logger.Info("exported tracks", "count", picked.Len(), "path", path)
	return r.writePlain("✓ Exported %d tracks to %s\n", picked.Len(), path)
}

// localExporter writes the selected tracks' effective values to a CSV file.
type localExporter struct {
	tracks []models.Track
	path   string
}

func (e *localExporter) ExportBatch(ctx context.Context, ids []string) (string, error) {
	byID := make(map[string]models.Track, len(e.tracks))
	for _, t := range e.tracks {
		byID[t.ID] = t
	}

	selected := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return "", fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
		}
		selected = append(selected, t)
	}

	if err := formatter.WriteCSVExport(selected, e.path); err != nil {
		return "", err
	}
	return e.path, nil
}
