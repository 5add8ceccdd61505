package repositories

import (
	"context"

	"github.com/desertthunder/crate/internal/models"
)

// TrackCacheAdapter implements tasks.TrackCacher, tasks.UploadRecorder and editor.TrackCacher
// on top of the repositories.
type TrackCacheAdapter struct {
	tracks  *TrackRepository
	uploads *UploadRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter. uploads may be nil to skip history.
func NewTrackCacheAdapter(tracks *TrackRepository, uploads *UploadRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{tracks: tracks, uploads: uploads}
}

// CacheTrack stores the latest server copy of track.
func (a *TrackCacheAdapter) CacheTrack(ctx context.Context, track *models.Track) error {
	return a.tracks.Upsert(ctx, track)
}

// RecordUpload stores a finished queue item in the upload history.
func (a *TrackCacheAdapter) RecordUpload(ctx context.Context, item models.FileItem) error {
	if a.uploads == nil {
		return nil
	}
	_, err := a.uploads.Record(ctx, item)
	return err
}
