package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Upload is one finished queue item as stored in the history table.
type Upload struct {
	ID           string            `json:"id"`
	Sequence     int               `json:"sequence"`
	Filename     string            `json:"filename"`
	Size         int64             `json:"size"`
	Status       models.ItemStatus `json:"status"`
	TrackID      string            `json:"track_id,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	FinishedAt   time.Time         `json:"finished_at"`
}

// UploadRepository stores the upload history.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new UploadRepository with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Record stores a terminal queue item. Recording the same item twice is an error.
func (r *UploadRepository) Record(ctx context.Context, item models.FileItem) (*Upload, error) {
	if !item.Status.Terminal() {
		return nil, fmt.Errorf("%w: item %s is still %s", shared.ErrInvalidInput, item.ID, item.Status)
	}

	sequence, err := NextSequence(r.db, "uploads")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	upload := &Upload{
		ID:           item.ID,
		Sequence:     sequence,
		Filename:     item.Filename(),
		Size:         item.Size(),
		Status:       item.Status,
		TrackID:      item.ServerTrackID,
		ErrorMessage: item.ErrorMessage,
		FinishedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO uploads (id, sequence, filename, size, status, track_id, error_message, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		upload.ID,
		upload.Sequence,
		upload.Filename,
		upload.Size,
		string(upload.Status),
		upload.TrackID,
		upload.ErrorMessage,
		upload.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert upload: %w", err)
	}
	return upload, nil
}

// List returns the most recent uploads first. No limit when limit <= 0.
func (r *UploadRepository) List(ctx context.Context, limit int) ([]Upload, error) {
	query := `
		SELECT id, sequence, filename, size, status, track_id, error_message, finished_at
		FROM uploads
		ORDER BY sequence DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	uploads := []Upload{}
	for rows.Next() {
		var (
			u      Upload
			status string
		)
		if err := rows.Scan(&u.ID, &u.Sequence, &u.Filename, &u.Size, &status, &u.TrackID, &u.ErrorMessage, &u.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		u.Status = models.ItemStatus(status)
		uploads = append(uploads, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return uploads, nil
}
