package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// TrackRepository caches server track records in SQLite.
//
// The full track is stored as JSON in payload; the scalar columns exist for filtering and
// sorting. Deletes are soft: deleted rows are hidden from every query until the track is
// cached again.
type TrackRepository struct {
	db *sql.DB
}

// TrackFilter narrows [TrackRepository.List].
type TrackFilter struct {
	Filename string             // Case-insensitive substring
	Status   models.TrackStatus // Exact match when set
	Limit    int                // No limit when <= 0
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Upsert inserts track or replaces the cached copy, clearing any soft delete.
func (r *TrackRepository) Upsert(ctx context.Context, track *models.Track) error {
	if track == nil || track.ID == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrInvalidInput)
	}

	payload, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("failed to encode track: %w", err)
	}

	query := `
		INSERT INTO tracks (id, filename, status, duration, upload_date, final_bpm, final_key, payload, cached_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			status = excluded.status,
			duration = excluded.duration,
			upload_date = excluded.upload_date,
			final_bpm = excluded.final_bpm,
			final_key = excluded.final_key,
			payload = excluded.payload,
			cached_at = excluded.cached_at,
			deleted_at = NULL
	`

	_, err = r.db.ExecContext(ctx, query,
		track.ID,
		track.Filename,
		string(track.Status),
		track.Duration,
		uploadDate(track.UploadDate),
		track.FinalBPM,
		track.FinalKey,
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert track: %w", err)
	}
	return nil
}

// Get retrieves a cached track by server id.
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	query := `SELECT payload FROM tracks WHERE id = ? AND deleted_at IS NULL`

	var payload string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track: %w", err)
	}
	return decodeTrack(payload)
}

// List returns cached tracks, newest upload first.
func (r *TrackRepository) List(ctx context.Context, filter TrackFilter) ([]models.Track, error) {
	query := `SELECT payload FROM tracks WHERE deleted_at IS NULL`
	args := []any{}

	if filter.Filename != "" {
		query += " AND LOWER(filename) LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Filename))+"%")
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	query += " ORDER BY upload_date DESC, filename ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		track, err := decodeTrack(payload)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// Delete soft-deletes a cached track by ID
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE tracks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return nil
}

func decodeTrack(payload string) (*models.Track, error) {
	var track models.Track
	if err := json.Unmarshal([]byte(payload), &track); err != nil {
		return nil, fmt.Errorf("failed to decode cached track: %w", err)
	}
	return &track, nil
}

func uploadDate(ts models.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
