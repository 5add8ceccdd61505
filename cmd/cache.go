package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheSync fetches every track from the server and stores it locally.
func (r *Runner) CacheSync(ctx context.Context, cmd *cli.Command) error {
	repo, _, err := r.repos()
	if err != nil {
		return err
	}

	r.logger.Info("syncing tracks from server")
	tracks, err := r.analyzer.GetTracks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch tracks: %w", err)
	}

	for i := range tracks {
		if err := repo.Upsert(ctx, &tracks[i]); err != nil {
			return fmt.Errorf("failed to cache %s: %w", tracks[i].ID, err)
		}
	}

	r.logger.Infof("cached %d tracks", len(tracks))
	return r.writePlain("✓ Cached %d tracks\n", len(tracks))
}

// CacheForget removes one track from the local cache. The server copy is untouched.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrMissingArgument)
	}

	repo, _, err := r.repos()
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from the cache\n", id)
}

// History prints finished uploads, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	_, uploads, err := r.repos()
	if err != nil {
		return err
	}

	list, err := uploads.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}
	if len(list) == 0 {
		return r.writePlain("No uploads recorded yet\n")
	}
	return r.writePlain("%s\n", formatter.HistoryTable(list))
}
