package models

import (
	"encoding/json"
	"testing"
	"time"
)

const trackJSON = `{
  "id": "7b1c",
  "filename": "night drive.mp3",
  "filepath": "/data/uploads/7b1c.mp3",
  "upload_date": "2025-03-01T10:15:30.123456",
  "duration": 212.5,
  "status": "complete",
  "analysis": {
    "bpm": 118.2,
    "bpm_confidence": 0.9,
    "key_key": "A",
    "key_scale": "Major",
    "loudness": 0,
    "energy": 7.1,
    "danceability": 0.64,
    "model_tags": {
      "energy": 7.1,
      "danceability": 0.64,
      "instruments": {"Synthesizer": 0.8, "Drums": 0.95},
      "ai_moods": {"Dark": 0.9},
      "era": "80s"
    }
  },
  "suggested_genres": ["Synthwave", "Electronic"],
  "suggested_moods": ["Dark"],
  "edits": {"bpm": null, "key": null, "genres": [], "moods": [], "styles": [], "notes": ""},
  "final_bpm": 118.2,
  "final_key": "A"
}`

func TestTrackDecode(t *testing.T) {
	var track Track
	if err := json.Unmarshal([]byte(trackJSON), &track); err != nil {
		t.Fatalf("failed to decode track: %v", err)
	}

	if track.Status != TrackComplete {
		t.Errorf("expected status complete, got %s", track.Status)
	}
	if track.UploadDate.Year() != 2025 || track.UploadDate.Month() != time.March {
		t.Errorf("unexpected upload date %v", track.UploadDate)
	}
	if track.Analysis == nil || track.Analysis.Key != "A" {
		t.Fatalf("expected analysis with key A, got %+v", track.Analysis)
	}
	if got := track.Analysis.ModelTags.Instruments["Drums"]; got != 0.95 {
		t.Errorf("expected Drums confidence 0.95, got %v", got)
	}
	if got := track.Analysis.ModelTags.Extra["era"]; got != "80s" {
		t.Errorf("expected unknown model tag to be kept, got %v", got)
	}
	if !track.Edits.IsEmpty() {
		t.Errorf("expected server default edits to be empty, got %+v", track.Edits)
	}
}

func TestTrackClone(t *testing.T) {
	var track Track
	if err := json.Unmarshal([]byte(trackJSON), &track); err != nil {
		t.Fatalf("failed to decode track: %v", err)
	}
	bpm := 128.0
	track.Edits.BPM = &bpm
	track.Edits.Genres = []string{"House"}

	clone := track.Clone()
	*clone.Edits.BPM = 90
	clone.Edits.Genres[0] = "Trap"
	clone.SuggestedGenres[0] = "Rock"
	clone.Analysis.ModelTags.Instruments["Drums"] = 0.1
	clone.Analysis.ModelTags.Extra["era"] = "90s"

	if *track.Edits.BPM != 128 {
		t.Errorf("clone BPM write leaked into original: %v", *track.Edits.BPM)
	}
	if track.Edits.Genres[0] != "House" {
		t.Errorf("clone genres write leaked into original: %v", track.Edits.Genres)
	}
	if track.SuggestedGenres[0] != "Synthwave" {
		t.Errorf("clone suggestions write leaked into original: %v", track.SuggestedGenres)
	}
	if track.Analysis.ModelTags.Instruments["Drums"] != 0.95 {
		t.Error("clone instruments write leaked into original")
	}
	if track.Analysis.ModelTags.Extra["era"] != "80s" {
		t.Error("clone extra tag write leaked into original")
	}
}

func TestEditsIsEmpty(t *testing.T) {
	zero := 0.0
	empty := ""
	bpm := 120.0

	tt := []struct {
		name  string
		edits *Edits
		want  bool
	}{
		{name: "nil", edits: nil, want: true},
		{name: "zero value", edits: &Edits{}, want: true},
		{name: "zero bpm and empty key", edits: &Edits{BPM: &zero, Key: &empty}, want: true},
		{name: "bpm set", edits: &Edits{BPM: &bpm}, want: false},
		{name: "genres set", edits: &Edits{Genres: []string{"Pop"}}, want: false},
		{name: "notes set", edits: &Edits{Notes: "intro is long"}, want: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.edits.IsEmpty(); got != tc.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEditsJSON(t *testing.T) {
	t.Run("Unknown Keys Survive A Save", func(t *testing.T) {
		var edits Edits
		data := `{"bpm": 126, "genres": ["house"], "moods": [], "styles": ["deep", "soulful"], "notes": ""}`
		if err := json.Unmarshal([]byte(data), &edits); err != nil {
			t.Fatalf("failed to decode edits: %v", err)
		}

		if edits.BPM == nil || *edits.BPM != 126 {
			t.Errorf("expected bpm 126, got %v", edits.BPM)
		}
		if edits.Moods != nil {
			t.Errorf("expected empty server list to decode as nil, got %#v", edits.Moods)
		}

		clone := edits.Clone()
		clone.Notes = "warm up"
		out, err := json.Marshal(clone)
		if err != nil {
			t.Fatalf("failed to encode edits: %v", err)
		}

		var sent map[string]any
		if err := json.Unmarshal(out, &sent); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		styles, ok := sent["styles"].([]any)
		if !ok || len(styles) != 2 || styles[0] != "deep" {
			t.Errorf("expected styles to be written back, got %v", sent["styles"])
		}
		if sent["notes"] != "warm up" || sent["bpm"] != 126.0 {
			t.Errorf("expected overrides in output, got %v", sent)
		}
	})

	t.Run("Without Extra Keys", func(t *testing.T) {
		key := "Am"
		out, err := json.Marshal(Edits{Key: &key})
		if err != nil {
			t.Fatalf("failed to encode edits: %v", err)
		}
		if string(out) != `{"key":"Am"}` {
			t.Errorf("unexpected output %s", out)
		}
	})
}

func TestModelTagsRoundTrip(t *testing.T) {
	in := ModelTags{
		Energy:      4,
		Instruments: map[string]float64{"Piano": 0.7},
		Extra:       map[string]any{"era": "90s"},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out ModelTags
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.Energy != 4 || out.Instruments["Piano"] != 0.7 || out.Extra["era"] != "90s" {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.Moods != nil {
		t.Errorf("expected absent ai_moods to stay nil, got %v", out.Moods)
	}
}

func TestRanked(t *testing.T) {
	got := Ranked(map[string]float64{"Bass": 0.4, "Drums": 0.9, "Amp": 0.4})
	want := []string{"Drums", "Amp", "Bass"}

	if len(got) != len(want) {
		t.Fatalf("expected %d scores, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, got[i].Name)
		}
	}
}

func TestTimestamp(t *testing.T) {
	tt := []struct {
		name    string
		input   string
		wantErr bool
		zero    bool
	}{
		{name: "rfc3339", input: `"2025-03-01T10:15:30Z"`},
		{name: "zone-less microseconds", input: `"2025-03-01T10:15:30.123456"`},
		{name: "space separated", input: `"2025-03-01 10:15:30"`},
		{name: "empty", input: `""`, zero: true},
		{name: "null", input: `null`, zero: true},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tc.input), &ts)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if ts.IsZero() != tc.zero {
				t.Errorf("IsZero() = %v, want %v", ts.IsZero(), tc.zero)
			}
		})
	}
}

func TestItemStatusTransitions(t *testing.T) {
	allowed := map[ItemStatus][]ItemStatus{
		ItemPending:   {ItemUploading},
		ItemUploading: {ItemAnalyzing, ItemError},
		ItemAnalyzing: {ItemComplete, ItemError},
	}
	all := []ItemStatus{ItemPending, ItemUploading, ItemAnalyzing, ItemComplete, ItemError}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: CanTransition() = %v, want %v", from, to, got, want)
			}
			if to == ItemPending && from.CanTransition(to) {
				t.Errorf("%s -> pending must never be allowed", from)
			}
		}
	}

	if !ItemComplete.Terminal() || !ItemError.Terminal() || ItemAnalyzing.Terminal() {
		t.Error("unexpected Terminal() result")
	}
}
