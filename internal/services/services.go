package services

import (
	"context"

	"github.com/desertthunder/crate/internal/models"
)

// Analyzer is the API surface the upload queue, the edit session and the export set consume.
type Analyzer interface {
	// Upload sends the file's bytes and returns the newly created track (queued or analyzing).
	// onProgress receives whole percentages in [0, 100] as bytes are transferred; it may be nil.
	Upload(ctx context.Context, file models.FileHandle, onProgress func(percent int)) (*models.Track, error)

	// GetTrack returns the current server state of one track.
	GetTrack(ctx context.Context, id string) (*models.Track, error)

	// GetTracks returns every track the server knows about.
	GetTracks(ctx context.Context) ([]models.Track, error)

	// UpdateEdits persists an edits overlay and returns the authoritative merged track.
	UpdateEdits(ctx context.Context, id string, edits models.Edits) (*models.Track, error)

	// ExportBatch downloads the export file for ids and returns where it was written.
	ExportBatch(ctx context.Context, ids []string) (string, error)
}
