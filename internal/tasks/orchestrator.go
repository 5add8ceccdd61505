package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"golang.org/x/time/rate"
)

// TrackCacher persists tracks whose analysis completed.
//
// Implemented by repositories.TrackRepository; errors are logged and never affect the queue.
type TrackCacher interface {
	CacheTrack(ctx context.Context, track *models.Track) error
}

// UploadRecorder stores the final state of every item that reaches a terminal status.
type UploadRecorder interface {
	RecordUpload(ctx context.Context, item models.FileItem) error
}

// OrchestratorOpts contains configuration for the upload queue.
type OrchestratorOpts struct {
	Extension       string                // Accepted file extension, matched case-insensitively (default: .mp3)
	PollInterval    time.Duration         // Fixed delay between status polls (default: 2s)
	MaxPollFailures int                   // Consecutive poll failures before giving up; 0 retries forever (default: 5)
	UploadTimeout   time.Duration         // Per-upload deadline; 0 disables
	PollTimeout     time.Duration         // Per-poll deadline; 0 disables
	Logger          *log.Logger           // Defaults to [shared.NewLogger] on stderr
	Updates         chan<- ProgressUpdate // Optional, receives updates without blocking
	Cacher          TrackCacher           // Optional
	Recorder        UploadRecorder        // Optional
}

// Orchestrator drives each queued file through upload, analysis polling and a terminal state.
//
// All mutations go through [Reduce] one at a time; readers see immutable [Queue] snapshots.
// Each item runs in its own goroutine with its own cancellation, and there is no cap on how
// many run at once.
type Orchestrator struct {
	api    services.Analyzer
	opts   OrchestratorOpts
	logger *log.Logger

	mu      sync.Mutex
	state   atomic.Pointer[Queue]
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates an empty queue backed by api.
func NewOrchestrator(api services.Analyzer, opts OrchestratorOpts) *Orchestrator {
	if opts.Extension == "" {
		opts.Extension = ".mp3"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.MaxPollFailures < 0 {
		opts.MaxPollFailures = 0
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	o := &Orchestrator{
		api:     api,
		opts:    opts,
		logger:  opts.Logger,
		cancels: make(map[string]context.CancelFunc),
	}
	o.state.Store(&Queue{})
	return o
}

// Snapshot returns the current queue. It never blocks on in-flight work.
func (o *Orchestrator) Snapshot() Queue {
	return *o.state.Load()
}

// Enqueue accepts files and starts uploading each one immediately.
//
// Files without the accepted extension, and files whose (name, size) matches an item already in
// the queue, are dropped silently. Returns the ids of the accepted items. Pipelines are bound to
// ctx; cancelling it stops all of them.
func (o *Orchestrator) Enqueue(ctx context.Context, files []models.FileHandle) []string {
	var ids []string
	for _, file := range files {
		if file == nil || !shared.HasExtension(file.Name(), o.opts.Extension) {
			if file != nil {
				o.logger.Debug("skipping unsupported file", "file", file.Name())
			}
			continue
		}

		item := models.FileItem{ID: shared.GenerateID(), File: file}
		itemCtx, cancel := context.WithCancel(ctx)

		o.mu.Lock()
		q := o.apply(Enqueued{Item: item})
		if _, ok := q.Get(item.ID); !ok {
			o.mu.Unlock()
			cancel()
			o.logger.Debug("skipping duplicate file", "file", file.Name(), "size", file.Size())
			continue
		}
		o.cancels[item.ID] = cancel
		o.wg.Add(1)
		o.mu.Unlock()

		ids = append(ids, item.ID)
		go o.run(itemCtx, item.ID, file)
	}
	return ids
}

// Remove deletes an item in any state and cancels its in-flight upload or poll.
//
// Late results for the item are dropped. Returns false when id is not queued.
func (o *Orchestrator) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.Snapshot().Get(id); !ok {
		return false
	}
	if cancel, ok := o.cancels[id]; ok {
		cancel()
		delete(o.cancels, id)
	}
	o.apply(Removed{ID: id})
	return true
}

// Clear empties the queue and cancels every pipeline.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, cancel := range o.cancels {
		cancel()
		delete(o.cancels, id)
	}
	o.apply(Cleared{})
}

// Wait blocks until every started pipeline has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// dispatch applies e and returns the target item's state afterwards.
func (o *Orchestrator) dispatch(id string, e Event) (models.FileItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.apply(e).Get(id)
}

// apply must be called with mu held.
func (o *Orchestrator) apply(e Event) Queue {
	prev := o.Snapshot()
	next := Reduce(prev, e)
	o.state.Store(&next)

	switch e := e.(type) {
	case Removed:
		if _, ok := prev.Get(e.ID); ok {
			o.sendProgress(removedUpdate(e.ID))
		}
	case Cleared:
		o.sendProgress(clearedUpdate())
	default:
		id := eventID(e)
		before, _ := prev.Get(id)
		if after, ok := next.Get(id); ok && changed(before, after) {
			o.sendProgress(updateFor(after))
		}
	}
	return next
}

// sendProgress sends a progress update through the channel without blocking.
func (o *Orchestrator) sendProgress(update ProgressUpdate) {
	if o.opts.Updates == nil {
		return
	}
	select {
	case o.opts.Updates <- update:
	default:
	}
}

// release drops the cancel handle for id once its pipeline has returned.
func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
		delete(o.cancels, id)
	}
}

func (o *Orchestrator) run(ctx context.Context, id string, file models.FileHandle) {
	defer o.wg.Done()
	defer o.release(id)

	logger := shared.WithLogger(o.logger, "item", id, "file", file.Name())
	o.dispatch(id, UploadStarted{ID: id})
	logger.Debug("upload started", "size", file.Size())

	track, err := o.upload(ctx, id, file)
	if ctx.Err() != nil {
		logger.Debug("upload abandoned")
		return
	}
	if err != nil {
		logger.Warn("upload failed", "err", err)
		if item, ok := o.dispatch(id, UploadFailed{ID: id, Message: uploadErrorMessage(err)}); ok {
			o.record(ctx, logger, item)
		}
		return
	}

	o.dispatch(id, UploadSucceeded{ID: id, Track: track})
	logger = shared.WithLogger(logger, "track", track.ID)
	logger.Debug("upload complete, polling for analysis")

	o.poll(ctx, logger, id, track.ID)
}

func (o *Orchestrator) upload(ctx context.Context, id string, file models.FileHandle) (*models.Track, error) {
	uctx, cancel := withTimeout(ctx, o.opts.UploadTimeout)
	defer cancel()

	track, err := o.api.Upload(uctx, file, func(percent int) {
		o.dispatch(id, UploadProgress{ID: id, Percent: percent})
	})
	if err != nil {
		return nil, timedOut(ctx, uctx, "upload", o.opts.UploadTimeout, err)
	}
	if track == nil || track.ID == "" {
		return nil, errors.New("server returned no track id")
	}
	return track, nil
}

// poll fetches the track at a fixed interval until the item is terminal, removed, or the
// consecutive failure budget is spent. The first poll runs immediately.
func (o *Orchestrator) poll(ctx context.Context, logger *log.Logger, id, trackID string) {
	limiter := rate.NewLimiter(rate.Every(o.opts.PollInterval), 1)
	failures := 0

	for {
		if err := limiter.Wait(ctx); err != nil {
			logger.Debug("polling stopped", "err", err)
			return
		}

		pctx, cancel := withTimeout(ctx, o.opts.PollTimeout)
		track, err := o.api.GetTrack(pctx, trackID)
		if err != nil {
			err = timedOut(ctx, pctx, "poll", o.opts.PollTimeout, err)
		}
		cancel()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			logger.Warn("poll failed", "attempt", failures, "err", err)
			if o.opts.MaxPollFailures > 0 && failures >= o.opts.MaxPollFailures {
				if item, ok := o.dispatch(id, PollFailed{ID: id, Message: pollingFailedMessage}); ok {
					o.record(ctx, logger, item)
				}
				return
			}
			continue
		}
		failures = 0

		item, ok := o.dispatch(id, PollResult{ID: id, Track: track})
		if !ok {
			return
		}
		if !item.Status.Terminal() {
			logger.Debug("still analyzing", "status", track.Status)
			continue
		}

		logger.Info("analysis finished", "status", item.Status)
		if item.Status == models.ItemComplete && o.opts.Cacher != nil {
			if err := o.opts.Cacher.CacheTrack(ctx, item.TrackData); err != nil {
				logger.Warn("failed to cache track", "err", err)
			}
		}
		o.record(ctx, logger, item)
		return
	}
}

func (o *Orchestrator) record(ctx context.Context, logger *log.Logger, item models.FileItem) {
	if o.opts.Recorder == nil {
		return
	}
	if err := o.opts.Recorder.RecordUpload(ctx, item); err != nil {
		logger.Warn("failed to record upload", "err", err)
	}
}

// uploadErrorMessage prefers the server's structured detail over a generic message.
func uploadErrorMessage(err error) string {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, shared.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return uploadTimeoutMessage
	}
	return uploadFailedMessage
}

// timedOut wraps err with [shared.ErrTimeout] when the request context expired but the parent did not.
func timedOut(parent, req context.Context, op string, d time.Duration, err error) error {
	if parent.Err() == nil && errors.Is(req.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s: %w", shared.ErrTimeout, op, d, err)
	}
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func changed(a, b models.FileItem) bool {
	return a.Status != b.Status ||
		a.Progress != b.Progress ||
		a.ErrorMessage != b.ErrorMessage ||
		a.ServerTrackID != b.ServerTrackID ||
		a.TrackData != b.TrackData
}

func eventID(e Event) string {
	switch e := e.(type) {
	case Enqueued:
		return e.Item.ID
	case UploadStarted:
		return e.ID
	case UploadProgress:
		return e.ID
	case UploadSucceeded:
		return e.ID
	case UploadFailed:
		return e.ID
	case PollResult:
		return e.ID
	case PollFailed:
		return e.ID
	case Removed:
		return e.ID
	}
	return ""
}
