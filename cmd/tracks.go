package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/desertthunder/crate/internal/editor"
	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/urfave/cli/v3"
)

// TracksList prints every track with its effective values, from the server or the local cache.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	filter := cmd.String("filter")

	var tracks []models.Track
	if cmd.Bool("offline") {
		repo, _, err := r.repos()
		if err != nil {
			return err
		}
		tracks, err = repo.List(ctx, repositories.TrackFilter{
			Filename: filter,
			Status:   models.TrackStatus(cmd.String("status")),
			Limit:    int(cmd.Int("limit")),
		})
		if err != nil {
			return err
		}
	} else {
		session := r.session()
		if err := session.Load(ctx); err != nil {
			return err
		}
		session.SetFilter(filter)
		tracks = session.Visible()
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	if len(tracks) == 0 {
		return r.writePlain("No tracks found\n")
	}
	return r.writePlain("%s\n", formatter.TracksTable(tracks))
}

// TracksShow prints one track and its analysis features.
func (r *Runner) TracksShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrMissingArgument)
	}

	var track *models.Track
	if cmd.Bool("offline") {
		repo, _, err := r.repos()
		if err != nil {
			return err
		}
		if track, err = repo.Get(ctx, id); err != nil {
			return err
		}
	} else {
		rctx, cancel := r.requestContext(ctx)
		var err error
		track, err = r.analyzer.GetTrack(rctx, id)
		cancel()
		if err != nil {
			return r.timeoutError(ctx, rctx, err)
		}
		if store := r.store(); store != nil {
			if err := store.CacheTrack(ctx, track); err != nil {
				r.logger.Warn("failed to cache track", "id", id, "error", err)
			}
		}
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(track, true)
	case cmd.Bool("markdown"):
		return r.writePlain("%s", formatter.TrackToMarkdown(*track))
	default:
		return r.writePlain("%s", formatter.TrackToText(*track))
	}
}

// TracksEdit applies the override flags to a track and saves the result.
//
// Removal positions refer to the list as it was before this command, so they are applied from
// the highest position down.
func (r *Runner) TracksEdit(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrMissingArgument)
	}

	patches, err := editPatches(cmd)
	if err != nil {
		return err
	}
	if len(patches) == 0 {
		return fmt.Errorf("%w: nothing to change, pass at least one of --bpm, --key, --notes, --add-*, --remove-*", shared.ErrMissingArgument)
	}

	session := r.session()
	if err := session.Load(ctx); err != nil {
		return err
	}
	if err := session.Select(id); err != nil {
		return err
	}

	for _, p := range patches {
		applied, err := session.PatchOverride(p)
		if err != nil {
			return err
		}
		if !applied {
			r.logger.Warn("change had no effect", "change", p.String())
		}
	}

	if !session.Dirty() {
		return r.writePlain("No changes to save\n")
	}

	saved, err := session.Save(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("saved edits", "track", saved.ID)
	return r.writePlain("%s", formatter.TrackToText(saved))
}

// TracksCopy copies a track's one-line summary to the clipboard and prints it.
func (r *Runner) TracksCopy(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrMissingArgument)
	}

	session := r.session()
	if err := session.Load(ctx); err != nil {
		return err
	}
	if err := session.Select(id); err != nil {
		return err
	}

	text, done, err := session.CopySummary(editor.SystemClipboard{})
	if err != nil {
		return err
	}
	if err := <-done; err != nil {
		r.logger.Warn("failed to copy to clipboard", "error", err)
	} else {
		r.logger.Info("copied summary to clipboard", "track", id)
	}
	return r.writePlain("%s\n", text)
}

// editPatches turns the edit command's flags into patches, in a fixed field order.
func editPatches(cmd *cli.Command) ([]editor.Patch, error) {
	var patches []editor.Patch

	if cmd.IsSet("bpm") {
		bpm, err := strconv.ParseFloat(cmd.String("bpm"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: --bpm must be a number, got %q", shared.ErrInvalidArgument, cmd.String("bpm"))
		}
		patches = append(patches, editor.SetBPM(bpm))
	}
	if cmd.IsSet("key") {
		patches = append(patches, editor.SetKey(cmd.String("key")))
	}
	if cmd.IsSet("notes") {
		patches = append(patches, editor.SetNotes(cmd.String("notes")))
	}

	for _, list := range []struct {
		field       editor.Field
		add, remove string
	}{
		{editor.FieldGenres, "add-genre", "remove-genre"},
		{editor.FieldMoods, "add-mood", "remove-mood"},
	} {
		positions, err := parsePositions(cmd.StringSlice(list.remove), list.remove)
		if err != nil {
			return nil, err
		}
		for _, pos := range positions {
			patches = append(patches, editor.RemoveTag(list.field, pos-1))
		}
		for _, tag := range cmd.StringSlice(list.add) {
			patches = append(patches, editor.AddTag(list.field, tag))
		}
	}
	return patches, nil
}

// parsePositions parses 1-based positions and returns them highest first without duplicates.
func parsePositions(values []string, flag string) ([]int, error) {
	positions := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: --%s takes positions starting at 1, got %q", shared.ErrInvalidArgument, flag, v)
		}
		positions = append(positions, n)
	}
	slices.Sort(positions)
	positions = slices.Compact(positions)
	slices.Reverse(positions)
	return positions, nil
}
