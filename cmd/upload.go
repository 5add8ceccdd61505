package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/desertthunder/crate/internal/audio"
	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Upload collects audio files from the arguments, uploads them concurrently and waits until every
// item has finished analysis or failed.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one file or folder is required", shared.ErrMissingArgument)
	}

	files, err := audio.Collect(paths, r.config.Upload.Extension)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no %s files found", shared.ErrUnsupportedFile, r.config.Upload.Extension)
	}

	if cmd.Bool("probe") {
		r.printProbes(files)
	}

	updates := make(chan tasks.ProgressUpdate, 64)
	orch := r.orchestrator(updates)
	done := r.printUpdates(updates)

	ids := orch.Enqueue(ctx, files)
	r.logger.Info("uploading", "accepted", len(ids), "found", len(files))
	orch.Wait()
	close(updates)
	done.Wait()

	queue := orch.Snapshot()
	if cmd.Bool("json") {
		return r.writeJSON(queueJSON(queue), true)
	}

	counts := queue.Counts()
	r.writePlainln("Uploaded %d files: %d complete, %d failed",
		queue.Len(), counts[models.ItemComplete], counts[models.ItemError])
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if failed := counts[models.ItemError]; failed > 0 {
		return fmt.Errorf("%w: %d of %d uploads failed", shared.ErrAPIRequest, failed, queue.Len())
	}
	return nil
}

// Watch uploads audio files as they appear under a directory until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = r.config.Upload.WatchDir
	}
	if dir == "" {
		return fmt.Errorf("%w: a folder to watch is required (argument or upload.watch_dir)", shared.ErrMissingArgument)
	}

	watcher, err := audio.NewWatcher(dir, r.config.Upload.Extension, cmd.Duration("settle"), r.logger)
	if err != nil {
		return err
	}

	updates := make(chan tasks.ProgressUpdate, 64)
	orch := r.orchestrator(updates)
	done := r.printUpdates(updates)

	r.writePlain("Watching %s for new %s files (Ctrl+C to stop)\n", dir, r.config.Upload.Extension)
	err = watcher.Run(ctx, func(file models.FileHandle) {
		orch.Enqueue(ctx, []models.FileHandle{file})
	})

	orch.Wait()
	close(updates)
	done.Wait()
	return err
}

// printUpdates prints state changes until updates is closed. Per-percent upload progress is
// only logged at debug level.
func (r *Runner) printUpdates(updates <-chan tasks.ProgressUpdate) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range updates {
			switch update.Phase {
			case tasks.Uploading:
				r.logger.Debug(update.Message)
			case tasks.Completed:
				if update.Item != nil {
					r.writePlain("%s\n", formatter.QueueItemLine(*update.Item))
				}
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()
	return &wg
}

func (r *Runner) printProbes(files []models.FileHandle) {
	r.writePlainHeader(fmt.Sprintf("Found %d files", len(files)))
	for _, file := range files {
		local, ok := file.(*models.LocalFile)
		if !ok {
			continue
		}
		info, err := audio.Probe(local.Path())
		if err != nil {
			r.logger.Warn("failed to read tags", "file", local.Path(), "error", err)
			continue
		}

		line := info.Title
		if info.Artist != "" {
			line = info.Artist + " - " + line
		}
		r.writePlain("%-40s %s [%s] %s\n", filepath.Base(info.Path), line,
			shared.FormatDuration(info.Duration.Seconds()), formatter.FormatSize(info.Size))
	}
	r.writePlain("\n")
}

type queueItemJSON struct {
	ID       string        `json:"id"`
	Filename string        `json:"filename"`
	Size     int64         `json:"size"`
	Status   string        `json:"status"`
	Progress int           `json:"progress"`
	Error    string        `json:"error,omitempty"`
	TrackID  string        `json:"track_id,omitempty"`
	Track    *models.Track `json:"track,omitempty"`
}

func queueJSON(q tasks.Queue) []queueItemJSON {
	out := make([]queueItemJSON, 0, q.Len())
	for _, item := range q.Items() {
		out = append(out, queueItemJSON{
			ID:       item.ID,
			Filename: item.Filename(),
			Size:     item.Size(),
			Status:   string(item.Status),
			Progress: item.Progress,
			Error:    item.ErrorMessage,
			TrackID:  item.ServerTrackID,
			Track:    item.TrackData,
		})
	}
	return out
}
