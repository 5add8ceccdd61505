package editor

import (
	"math"
	"slices"
	"testing"

	"github.com/desertthunder/crate/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestEffectiveBPM(t *testing.T) {
	tests := []struct {
		name  string
		track models.Track
		want  float64
	}{
		{
			name:  "Edits Win",
			track: models.Track{Edits: &models.Edits{BPM: ptr(128.0)}, FinalBPM: 120, Analysis: &models.Analysis{BPM: 118}},
			want:  128,
		},
		{
			name:  "Final When No Edits",
			track: models.Track{Edits: &models.Edits{}, FinalBPM: 120, Analysis: &models.Analysis{BPM: 118}},
			want:  120,
		},
		{
			name:  "Analysis When Final Absent",
			track: models.Track{Edits: &models.Edits{}, Analysis: &models.Analysis{BPM: 118}},
			want:  118,
		},
		{
			name:  "Zero Override Falls Through",
			track: models.Track{Edits: &models.Edits{BPM: ptr(0.0)}, FinalBPM: 120},
			want:  120,
		},
		{
			name:  "NaN Is Absent",
			track: models.Track{Edits: &models.Edits{BPM: ptr(math.NaN())}, FinalBPM: math.NaN(), Analysis: &models.Analysis{BPM: 99}},
			want:  99,
		},
		{
			name:  "Nothing Known",
			track: models.Track{},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveBPM(tt.track); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEffectiveKey(t *testing.T) {
	tests := []struct {
		name  string
		track models.Track
		want  string
	}{
		{"Edits Win", models.Track{Edits: &models.Edits{Key: ptr("F#m")}, FinalKey: "A minor"}, "F#m"},
		{"Empty Override Falls Through", models.Track{Edits: &models.Edits{Key: ptr("")}, FinalKey: "A minor"}, "A minor"},
		{"Analysis Tonic", models.Track{Analysis: &models.Analysis{Key: "C", Scale: "major"}}, "C"},
		{"Nil Everything", models.Track{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveKey(tt.track); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEffectiveList(t *testing.T) {
	tests := []struct {
		name      string
		edits     []string
		suggested []string
		want      []string
	}{
		{"Edits Non-empty", []string{"trap"}, []string{"house"}, []string{"trap"}},
		{"Edits Empty", []string{}, []string{"house"}, []string{"house"}},
		{"Edits Nil", nil, []string{"house", "techno"}, []string{"house", "techno"}},
		{"Both Empty", nil, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveList(tt.edits, tt.suggested)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("Result Is A Copy", func(t *testing.T) {
		suggested := []string{"house"}
		got := EffectiveList(nil, suggested)
		got[0] = "changed"
		if suggested[0] != "house" {
			t.Error("expected suggested list to be untouched")
		}
	})
}

func TestEffectiveGenresAndMoods(t *testing.T) {
	track := models.Track{
		SuggestedGenres: []string{"house"},
		SuggestedMoods:  []string{"happy"},
		Edits:           &models.Edits{Moods: []string{"dark"}},
	}

	if got := EffectiveGenres(track); !slices.Equal(got, []string{"house"}) {
		t.Errorf("expected suggested genres, got %v", got)
	}
	if got := EffectiveMoods(track); !slices.Equal(got, []string{"dark"}) {
		t.Errorf("expected edited moods, got %v", got)
	}
	if got := EffectiveNotes(models.Track{}); got != "" {
		t.Errorf("expected empty notes, got %q", got)
	}
}
