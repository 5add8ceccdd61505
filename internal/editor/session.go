package editor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Backend is the slice of the analysis API the session needs.
type Backend interface {
	GetTracks(ctx context.Context) ([]models.Track, error)
	UpdateEdits(ctx context.Context, id string, edits models.Edits) (*models.Track, error)
}

// TrackCacher persists tracks loaded or saved through the session.
type TrackCacher interface {
	CacheTrack(ctx context.Context, track *models.Track) error
}

// SessionOpts contains optional session dependencies.
type SessionOpts struct {
	Cacher TrackCacher
	Logger *log.Logger
}

// Session holds the cached track list and one editable snapshot.
//
// The snapshot is a deep copy of the selected track; patches change only the snapshot's edits
// overlay until [Session.Save] succeeds. Methods are safe for concurrent use.
type Session struct {
	api    Backend
	cacher TrackCacher
	logger *log.Logger

	mu       sync.Mutex
	tracks   []models.Track
	filter   string
	snapshot *models.Track
	dirty    bool
	revision int
}

func NewSession(api Backend, opts SessionOpts) *Session {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Session{api: api, cacher: opts.Cacher, logger: opts.Logger}
}

// Load fetches every track and replaces the cache. When nothing is selected the first track is.
func (s *Session) Load(ctx context.Context) error {
	tracks, err := s.api.GetTracks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tracks: %w", err)
	}

	s.Hydrate(tracks)
	for i := range tracks {
		s.cache(ctx, &tracks[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil && len(s.tracks) > 0 {
		s.selectLocked(s.tracks[0])
	}
	return nil
}

// Hydrate replaces the cached track list without touching the current snapshot.
func (s *Session) Hydrate(tracks []models.Track) {
	cloned := cloneTracks(tracks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = cloned
}

// Tracks returns a copy of the cached track list.
func (s *Session) Tracks() []models.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTracks(s.tracks)
}

// Track returns the cached copy of id.
func (s *Session) Track(id string) (models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.tracks[i].Clone(), true
	}
	return models.Track{}, false
}

// SetFilter sets the filename filter used by [Session.Visible].
func (s *Session) SetFilter(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
}

func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Visible returns the cached tracks whose filename contains the filter, ignoring case.
func (s *Session) Visible() []models.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterTracks(s.tracks, s.filter)
}

// FilterTracks returns deep copies of the tracks whose filename contains filter, ignoring case.
// An empty filter matches everything.
func FilterTracks(tracks []models.Track, filter string) []models.Track {
	needle := strings.ToLower(filter)
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if strings.Contains(strings.ToLower(t.Filename), needle) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Select makes a deep copy of the cached track id the editable snapshot and clears dirty.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	s.selectLocked(s.tracks[i])
	return nil
}

// SelectTrack makes a deep copy of track the editable snapshot and clears dirty.
// track does not have to be in the cache.
func (s *Session) SelectTrack(track models.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectLocked(track)
}

// Snapshot returns a copy of the editable snapshot.
func (s *Session) Snapshot() (models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return models.Track{}, false
	}
	return s.snapshot.Clone(), true
}

// Dirty reports whether the snapshot has unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// PatchOverride applies p to the snapshot and marks it dirty.
//
// A rejected patch (duplicate tag, out-of-range index) is a silent no-op: it returns false and
// leaves dirty as it was.
func (s *Session) PatchOverride(p Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return false, shared.ErrNoSelection
	}

	next, applied, err := Apply(*s.snapshot, p)
	if err != nil || !applied {
		return false, err
	}
	s.snapshot = &next
	s.dirty = true
	s.revision++
	return true, nil
}

// Save sends the snapshot's edits overlay and adopts the server's response.
//
// On success the cached track and the snapshot are replaced and dirty is cleared. If the
// snapshot was patched while the request was in flight, only the cache is updated and the
// newer edits stay dirty. On failure nothing changes and the error is returned.
func (s *Session) Save(ctx context.Context) (models.Track, error) {
	s.mu.Lock()
	if s.snapshot == nil {
		s.mu.Unlock()
		return models.Track{}, shared.ErrNoSelection
	}
	id := s.snapshot.ID
	edits := models.Edits{}
	if s.snapshot.Edits != nil {
		edits = s.snapshot.Edits.Clone()
	}
	revision := s.revision
	s.mu.Unlock()

	updated, err := s.api.UpdateEdits(ctx, id, edits)
	if err != nil {
		s.logger.Warn("save failed", "track", id, "err", err)
		return models.Track{}, fmt.Errorf("failed to save edits: %w", err)
	}
	if updated == nil {
		return models.Track{}, fmt.Errorf("%w: empty response saving %s", shared.ErrAPIRequest, id)
	}

	s.mu.Lock()
	if i := s.index(updated.ID); i >= 0 {
		s.tracks[i] = updated.Clone()
	} else {
		s.tracks = append(s.tracks, updated.Clone())
	}
	if s.snapshot != nil && s.snapshot.ID == id && s.revision == revision {
		snap := updated.Clone()
		s.snapshot = &snap
		s.dirty = false
	}
	s.mu.Unlock()

	s.cache(ctx, updated)
	return updated.Clone(), nil
}

// Summary formats the snapshot's effective values.
func (s *Session) Summary() (string, error) {
	snap, ok := s.Snapshot()
	if !ok {
		return "", shared.ErrNoSelection
	}
	return Summary(snap), nil
}

// CopySummary writes the snapshot summary to cb without blocking and returns the copied text.
func (s *Session) CopySummary(cb Clipboard) (string, <-chan error, error) {
	text, err := s.Summary()
	if err != nil {
		return "", nil, err
	}
	return text, Copy(cb, text), nil
}

func (s *Session) selectLocked(track models.Track) {
	snap := track.Clone()
	s.snapshot = &snap
	s.dirty = false
	s.revision++
}

func (s *Session) index(id string) int {
	return slices.IndexFunc(s.tracks, func(t models.Track) bool { return t.ID == id })
}

func (s *Session) cache(ctx context.Context, track *models.Track) {
	if s.cacher == nil || track == nil {
		return
	}
	if err := s.cacher.CacheTrack(ctx, track); err != nil {
		s.logger.Warn("failed to cache track", "track", track.ID, "err", err)
	}
}

func cloneTracks(tracks []models.Track) []models.Track {
	out := make([]models.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}
