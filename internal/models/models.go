// package models defines the data model for the crate client
package models

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// TrackStatus is the server-side analysis state of a [Track].
type TrackStatus string

const (
	TrackQueued    TrackStatus = "queued"
	TrackAnalyzing TrackStatus = "analyzing"
	TrackComplete  TrackStatus = "complete"
	TrackFailed    TrackStatus = "failed"
	TrackError     TrackStatus = "error"
)

// Track is the server-owned record for one uploaded audio file.
type Track struct {
	ID              string      `json:"id"`
	Filename        string      `json:"filename"`
	Status          TrackStatus `json:"status"`
	Duration        float64     `json:"duration"`
	UploadDate      Timestamp   `json:"upload_date"`
	FinalBPM        float64     `json:"final_bpm"`
	FinalKey        string      `json:"final_key"`
	SuggestedGenres []string    `json:"suggested_genres"`
	SuggestedMoods  []string    `json:"suggested_moods"`
	Analysis        *Analysis   `json:"analysis,omitempty"`
	Edits           *Edits      `json:"edits,omitempty"`
}

// Clone returns a deep copy of t. Mutating the copy never affects t.
func (t Track) Clone() Track {
	c := t
	c.SuggestedGenres = slices.Clone(t.SuggestedGenres)
	c.SuggestedMoods = slices.Clone(t.SuggestedMoods)
	if t.Analysis != nil {
		a := t.Analysis.Clone()
		c.Analysis = &a
	}
	if t.Edits != nil {
		e := t.Edits.Clone()
		c.Edits = &e
	}
	return c
}

// Edits is a sparse override record. Zero values mean "no override".
//
// A nil list was never overridden. A non-nil empty list was emptied by the user and still reads
// as "no override", but later additions start from it instead of the suggestions. Decoding
// turns empty lists into nil, since the server sends [] for untouched lists.
//
// Keys this client does not edit (e.g. styles) are kept in Extra and written back on save.
type Edits struct {
	BPM    *float64       `json:"bpm,omitempty"`
	Key    *string        `json:"key,omitempty"`
	Genres []string       `json:"genres,omitempty"`
	Moods  []string       `json:"moods,omitempty"`
	Notes  string         `json:"notes,omitempty"`
	Extra  map[string]any `json:"-"`
}

// editsFields has the Edits fields without its JSON methods.
type editsFields Edits

var editKeys = []string{"bpm", "key", "genres", "moods", "notes"}

// UnmarshalJSON decodes the known keys and keeps the rest in Extra.
func (e *Edits) UnmarshalJSON(data []byte) error {
	var known editsFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Edits(known)
	if len(e.Genres) == 0 {
		e.Genres = nil
	}
	if len(e.Moods) == 0 {
		e.Moods = nil
	}
	for k, v := range raw {
		if slices.Contains(editKeys, k) {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[k] = val
	}
	return nil
}

// MarshalJSON writes the set overrides and everything in Extra back out.
func (e Edits) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(editsFields(e))
	if err != nil || len(e.Extra) == 0 {
		return known, err
	}

	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(e.Extra)+len(fields))
	for k, v := range e.Extra {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// Clone returns a deep copy of e. Extra values are copied one level deep.
func (e Edits) Clone() Edits {
	c := Edits{
		Genres: slices.Clone(e.Genres),
		Moods:  slices.Clone(e.Moods),
		Notes:  e.Notes,
	}
	if e.Extra != nil {
		c.Extra = make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	if e.BPM != nil {
		v := *e.BPM
		c.BPM = &v
	}
	if e.Key != nil {
		v := *e.Key
		c.Key = &v
	}
	return c
}

// IsEmpty reports whether e overrides nothing.
func (e *Edits) IsEmpty() bool {
	if e == nil {
		return true
	}
	return (e.BPM == nil || *e.BPM == 0) &&
		(e.Key == nil || *e.Key == "") &&
		len(e.Genres) == 0 && len(e.Moods) == 0 && e.Notes == ""
}

// Analysis is the opaque analyzer payload attached to a complete track.
type Analysis struct {
	BPM           float64   `json:"bpm"`
	BPMConfidence float64   `json:"bpm_confidence"`
	Key           string    `json:"key_key"`
	Scale         string    `json:"key_scale"`
	Loudness      float64   `json:"loudness"`
	Energy        float64   `json:"energy"`
	Danceability  float64   `json:"danceability"`
	ModelTags     ModelTags `json:"model_tags"`
}

// Clone returns a deep copy of a.
func (a Analysis) Clone() Analysis {
	c := a
	c.ModelTags = a.ModelTags.Clone()
	return c
}

// ModelTags holds the confidence-scored tag maps. Unknown keys are preserved in Extra.
type ModelTags struct {
	Energy       float64            `json:"energy"`
	Danceability float64            `json:"danceability"`
	Instruments  map[string]float64 `json:"instruments,omitempty"`
	Moods        map[string]float64 `json:"ai_moods,omitempty"`
	Extra        map[string]any     `json:"-"`
}

var modelTagKeys = []string{"energy", "danceability", "instruments", "ai_moods"}

// UnmarshalJSON decodes the known keys and keeps the rest in Extra. Malformed known keys are
// ignored rather than failing the whole track.
func (m *ModelTags) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = ModelTags{}
	_ = json.Unmarshal(raw["energy"], &m.Energy)
	_ = json.Unmarshal(raw["danceability"], &m.Danceability)
	_ = json.Unmarshal(raw["instruments"], &m.Instruments)
	_ = json.Unmarshal(raw["ai_moods"], &m.Moods)

	for k, v := range raw {
		if slices.Contains(modelTagKeys, k) {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = val
	}
	return nil
}

// MarshalJSON writes the known keys and everything in Extra back out.
func (m ModelTags) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+len(modelTagKeys))
	for k, v := range m.Extra {
		out[k] = v
	}
	out["energy"] = m.Energy
	out["danceability"] = m.Danceability
	if m.Instruments != nil {
		out["instruments"] = m.Instruments
	}
	if m.Moods != nil {
		out["ai_moods"] = m.Moods
	}
	return json.Marshal(out)
}

// Clone returns a deep copy of m. Extra values are copied one level deep.
func (m ModelTags) Clone() ModelTags {
	c := ModelTags{Energy: m.Energy, Danceability: m.Danceability}
	if m.Instruments != nil {
		c.Instruments = make(map[string]float64, len(m.Instruments))
		for k, v := range m.Instruments {
			c.Instruments[k] = v
		}
	}
	if m.Moods != nil {
		c.Moods = make(map[string]float64, len(m.Moods))
		for k, v := range m.Moods {
			c.Moods[k] = v
		}
	}
	if m.Extra != nil {
		c.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Score is a tag with its analyzer confidence in [0, 1].
type Score struct {
	Name       string
	Confidence float64
}

// Ranked returns the entries of scores ordered by confidence descending, then by name.
func Ranked(scores map[string]float64) []Score {
	out := make([]Score, 0, len(scores))
	for name, conf := range scores {
		out = append(out, Score{Name: name, Confidence: conf})
	}
	slices.SortFunc(out, func(a, b Score) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Timestamp decodes the server's upload_date, which may omit the zone offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO 8601 timestamps. Null and empty strings
// decode to the zero time.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		ts.Time = time.Time{}
		return nil
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			ts.Time = t
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON writes the timestamp as RFC 3339, or an empty string when unset.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(ts.Format(time.RFC3339Nano))
}
