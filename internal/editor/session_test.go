package editor

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	tu "github.com/desertthunder/crate/internal/testing"
)

func sampleTracks() []models.Track {
	return []models.Track{
		{ID: "t1", Filename: "Sunset Loop.mp3", Status: models.TrackComplete, FinalBPM: 120, SuggestedGenres: []string{"house"}},
		{ID: "t2", Filename: "night drive.mp3", Status: models.TrackComplete, FinalBPM: 90, SuggestedMoods: []string{"dark"}},
		{ID: "t3", Filename: "sunrise.mp3", Status: models.TrackAnalyzing},
	}
}

func newTestSession(api Backend) *Session {
	return NewSession(api, SessionOpts{Logger: log.New(io.Discard)})
}

type cacheSpy struct{ ids []string }

func (c *cacheSpy) CacheTrack(_ context.Context, track *models.Track) error {
	c.ids = append(c.ids, track.ID)
	return nil
}

func TestSession(t *testing.T) {
	t.Run("Load Selects First Track", func(t *testing.T) {
		cache := &cacheSpy{}
		api := &tu.FakeAnalyzer{GetTracksFunc: func(context.Context) ([]models.Track, error) { return sampleTracks(), nil }}
		s := NewSession(api, SessionOpts{Cacher: cache, Logger: log.New(io.Discard)})

		if err := s.Load(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		snap, ok := s.Snapshot()
		if !ok || snap.ID != "t1" {
			t.Errorf("expected t1 selected, got %+v", snap)
		}
		if len(cache.ids) != 3 {
			t.Errorf("expected 3 cached tracks, got %d", len(cache.ids))
		}
	})

	t.Run("Load Failure", func(t *testing.T) {
		api := &tu.FakeAnalyzer{GetTracksFunc: func(context.Context) ([]models.Track, error) { return nil, shared.ErrAPIRequest }}
		s := newTestSession(api)

		if err := s.Load(context.Background()); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Filter", func(t *testing.T) {
		s := newTestSession(&tu.FakeAnalyzer{})
		s.Hydrate(sampleTracks())

		tests := []struct {
			filter string
			want   int
		}{
			{"", 3},
			{"SUN", 2},
			{"drive", 1},
			{"zzz", 0},
		}
		for _, tt := range tests {
			s.SetFilter(tt.filter)
			if got := len(s.Visible()); got != tt.want {
				t.Errorf("filter %q: expected %d tracks, got %d", tt.filter, tt.want, got)
			}
		}
	})

	t.Run("Select Makes Independent Copy", func(t *testing.T) {
		s := newTestSession(&tu.FakeAnalyzer{})
		s.Hydrate(sampleTracks())

		if err := s.Select("t1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := s.PatchOverride(AddTag(FieldGenres, "disco")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		cached, _ := s.Track("t1")
		if cached.Edits != nil {
			t.Error("expected cached track to be untouched by snapshot edits")
		}
		if !s.Dirty() {
			t.Error("expected dirty after patch")
		}

		if err := s.Select("t1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Dirty() {
			t.Error("expected select to reset dirty")
		}
	})

	t.Run("Select Unknown Track", func(t *testing.T) {
		s := newTestSession(&tu.FakeAnalyzer{})
		if err := s.Select("nope"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Patch Without Selection", func(t *testing.T) {
		s := newTestSession(&tu.FakeAnalyzer{})
		if _, err := s.PatchOverride(SetBPM(100)); !errors.Is(err, shared.ErrNoSelection) {
			t.Errorf("expected ErrNoSelection, got %v", err)
		}
	})

	t.Run("Rejected Patch Leaves Dirty Unchanged", func(t *testing.T) {
		s := newTestSession(&tu.FakeAnalyzer{})
		s.SelectTrack(sampleTracks()[0])

		applied, err := s.PatchOverride(AddTag(FieldGenres, "house"))
		if err != nil || applied {
			t.Fatalf("expected silent rejection, got %v %v", applied, err)
		}
		if s.Dirty() {
			t.Error("expected dirty to stay false")
		}
	})

	t.Run("Save Success", func(t *testing.T) {
		var sent models.Edits
		api := &tu.FakeAnalyzer{
			UpdateEditsFunc: func(_ context.Context, id string, edits models.Edits) (*models.Track, error) {
				sent = edits
				return &models.Track{ID: id, Filename: "Sunset Loop.mp3", Status: models.TrackComplete, FinalBPM: 120, Edits: &models.Edits{BPM: ptr(128.0), Notes: "normalized"}}, nil
			},
		}
		s := newTestSession(api)
		s.Hydrate(sampleTracks())
		s.Select("t1")
		s.PatchOverride(SetBPM(128))
		s.PatchOverride(SetNotes("raw"))

		updated, err := s.Save(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sent.BPM == nil || *sent.BPM != 128 || sent.Notes != "raw" {
			t.Errorf("expected edits overlay to be sent, got %+v", sent)
		}
		if s.Dirty() {
			t.Error("expected dirty cleared after save")
		}

		snap, _ := s.Snapshot()
		if !reflect.DeepEqual(snap, updated) {
			t.Errorf("expected snapshot to equal server response\n got %+v\nwant %+v", snap, updated)
		}
		cached, _ := s.Track("t1")
		if cached.Edits == nil || cached.Edits.Notes != "normalized" {
			t.Errorf("expected cache to hold server response, got %+v", cached.Edits)
		}
	})

	t.Run("Save Failure Keeps Snapshot", func(t *testing.T) {
		api := &tu.FakeAnalyzer{
			UpdateEditsFunc: func(context.Context, string, models.Edits) (*models.Track, error) {
				return nil, errors.Join(shared.ErrAPIRequest, errors.New("offline"))
			},
		}
		s := newTestSession(api)
		s.Hydrate(sampleTracks())
		s.Select("t2")
		s.PatchOverride(AddTag(FieldMoods, "moody"))
		before, _ := s.Snapshot()

		if _, err := s.Save(context.Background()); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !s.Dirty() {
			t.Error("expected dirty to remain set")
		}
		after, _ := s.Snapshot()
		if !reflect.DeepEqual(before, after) {
			t.Error("expected snapshot unchanged after failed save")
		}
		cached, _ := s.Track("t2")
		if cached.Edits != nil {
			t.Error("expected cache unchanged after failed save")
		}
	})

	t.Run("Save Without Selection", func(t *testing.T) {
		s := newTestSession(&tu.FakeAnalyzer{})
		if _, err := s.Save(context.Background()); !errors.Is(err, shared.ErrNoSelection) {
			t.Errorf("expected ErrNoSelection, got %v", err)
		}
	})

	t.Run("Patch During Save Stays Dirty", func(t *testing.T) {
		var s *Session
		api := &tu.FakeAnalyzer{
			UpdateEditsFunc: func(_ context.Context, id string, edits models.Edits) (*models.Track, error) {
				s.PatchOverride(SetNotes("typed while saving"))
				return &models.Track{ID: id, Edits: &edits}, nil
			},
		}
		s = newTestSession(api)
		s.SelectTrack(sampleTracks()[0])
		s.PatchOverride(SetBPM(100))

		if _, err := s.Save(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !s.Dirty() {
			t.Error("expected newer edits to remain dirty")
		}
		if snap, _ := s.Snapshot(); snap.Edits.Notes != "typed while saving" {
			t.Errorf("expected newer edits to survive, got %q", snap.Edits.Notes)
		}
	})
}
