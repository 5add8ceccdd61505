package editor

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

func TestApply(t *testing.T) {
	base := models.Track{
		ID:              "t1",
		FinalBPM:        120,
		SuggestedGenres: []string{"house", "techno"},
		SuggestedMoods:  []string{"happy"},
	}

	t.Run("Scalars", func(t *testing.T) {
		tests := []struct {
			name  string
			patch Patch
			check func(t *testing.T, e *models.Edits)
		}{
			{"Set BPM", SetBPM(128), func(t *testing.T, e *models.Edits) {
				if e.BPM == nil || *e.BPM != 128 {
					t.Errorf("expected bpm 128, got %v", e.BPM)
				}
			}},
			{"Clear BPM", SetBPM(0), func(t *testing.T, e *models.Edits) {
				if e.BPM != nil {
					t.Errorf("expected bpm override cleared, got %v", *e.BPM)
				}
			}},
			{"NaN BPM Clears", SetBPM(math.NaN()), func(t *testing.T, e *models.Edits) {
				if e.BPM != nil {
					t.Error("expected NaN to clear the override")
				}
			}},
			{"Set Key", SetKey(" Am "), func(t *testing.T, e *models.Edits) {
				if e.Key == nil || *e.Key != "Am" {
					t.Errorf("expected key Am, got %v", e.Key)
				}
			}},
			{"Set Notes", SetNotes("dusty loop"), func(t *testing.T, e *models.Edits) {
				if e.Notes != "dusty loop" {
					t.Errorf("expected notes, got %q", e.Notes)
				}
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				out, applied, err := Apply(base, tt.patch)
				if err != nil || !applied {
					t.Fatalf("expected patch to apply, got %v %v", applied, err)
				}
				tt.check(t, out.Edits)
				if base.Edits != nil {
					t.Error("expected input track to be untouched")
				}
			})
		}
	})

	t.Run("Add Starts From Suggestions", func(t *testing.T) {
		out, applied, err := Apply(base, AddTag(FieldGenres, "deep house"))
		if err != nil || !applied {
			t.Fatalf("expected add to apply, got %v %v", applied, err)
		}
		want := []string{"house", "techno", "deep house"}
		if !slices.Equal(out.Edits.Genres, want) {
			t.Errorf("expected %v, got %v", want, out.Edits.Genres)
		}
	})

	t.Run("Add Is Idempotent", func(t *testing.T) {
		once, _, _ := Apply(base, AddTag(FieldMoods, "dark"))
		twice, applied, err := Apply(once, AddTag(FieldMoods, "dark"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if applied {
			t.Error("expected duplicate add to be rejected")
		}
		if !slices.Equal(twice.Edits.Moods, []string{"happy", "dark"}) {
			t.Errorf("expected list unchanged, got %v", twice.Edits.Moods)
		}
	})

	t.Run("Add Is Case Sensitive", func(t *testing.T) {
		_, applied, _ := Apply(base, AddTag(FieldGenres, "House"))
		if !applied {
			t.Error("expected differently cased tag to be accepted")
		}
	})

	t.Run("Add Empty Is Rejected", func(t *testing.T) {
		if _, applied, _ := Apply(base, AddTag(FieldGenres, "   ")); applied {
			t.Error("expected empty tag to be rejected")
		}
	})

	t.Run("Remove By Index", func(t *testing.T) {
		track := base
		track.Edits = &models.Edits{Genres: []string{"lofi", "lofi", "jazz"}}

		out, applied, err := Apply(track, RemoveTag(FieldGenres, 1))
		if err != nil || !applied {
			t.Fatalf("expected remove to apply, got %v %v", applied, err)
		}
		if !slices.Equal(out.Edits.Genres, []string{"lofi", "jazz"}) {
			t.Errorf("expected positional removal, got %v", out.Edits.Genres)
		}
		if !slices.Equal(track.Edits.Genres, []string{"lofi", "lofi", "jazz"}) {
			t.Error("expected input edits to be untouched")
		}
	})

	t.Run("Remove Out Of Range", func(t *testing.T) {
		for _, i := range []int{-1, 2, 10} {
			if _, applied, _ := Apply(base, RemoveTag(FieldGenres, i)); applied {
				t.Errorf("expected index %d to be rejected", i)
			}
		}
	})

	t.Run("Removing Every Tag Falls Back To Suggestions", func(t *testing.T) {
		track := base
		track.Edits = &models.Edits{Moods: []string{"dark"}}

		out, _, _ := Apply(track, RemoveTag(FieldMoods, 0))
		if got := EffectiveMoods(out); !slices.Equal(got, []string{"happy"}) {
			t.Errorf("expected suggested moods, got %v", got)
		}
	})

	t.Run("Add After Removing Every Tag Keeps The Removal", func(t *testing.T) {
		track := base
		track.SuggestedGenres = []string{"techno"}

		emptied, applied, _ := Apply(track, RemoveTag(FieldGenres, 0))
		if !applied {
			t.Fatal("expected remove to apply")
		}
		if emptied.Edits.Genres == nil || len(emptied.Edits.Genres) != 0 {
			t.Fatalf("expected an emptied override, got %#v", emptied.Edits.Genres)
		}

		out, applied, _ := Apply(emptied, AddTag(FieldGenres, "house"))
		if !applied {
			t.Fatal("expected add to apply")
		}
		if !slices.Equal(out.Edits.Genres, []string{"house"}) {
			t.Errorf("expected [house], got %v", out.Edits.Genres)
		}

		again, applied, _ := Apply(emptied, AddTag(FieldGenres, "techno"))
		if !applied || !slices.Equal(again.Edits.Genres, []string{"techno"}) {
			t.Errorf("expected removed suggestion to be addable again, got %v (%v)", again.Edits.Genres, applied)
		}
	})

	t.Run("Untouched Server List Starts From Suggestions", func(t *testing.T) {
		var edits models.Edits
		if err := json.Unmarshal([]byte(`{"genres": [], "moods": [], "notes": ""}`), &edits); err != nil {
			t.Fatalf("failed to decode edits: %v", err)
		}
		track := base
		track.Edits = &edits

		out, _, _ := Apply(track, AddTag(FieldGenres, "disco"))
		if !slices.Equal(out.Edits.Genres, []string{"house", "techno", "disco"}) {
			t.Errorf("expected suggestions plus disco, got %v", out.Edits.Genres)
		}
	})

	t.Run("List Op On Scalar Field", func(t *testing.T) {
		_, _, err := Apply(base, AddTag(FieldBPM, "x"))
		if !errors.Is(err, shared.ErrUnknownField) {
			t.Errorf("expected ErrUnknownField, got %v", err)
		}
	})
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		want Field
		err  bool
	}{
		{"bpm", FieldBPM, false},
		{"Genre", FieldGenres, false},
		{"moods", FieldMoods, false},
		{" notes ", FieldNotes, false},
		{"tempo", "", true},
	}

	for _, tt := range tests {
		got, err := ParseField(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseField(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
