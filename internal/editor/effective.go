package editor

import (
	"cmp"
	"math"
	"slices"

	"github.com/desertthunder/crate/internal/models"
)

// Effective resolves a scalar by precedence: override, then final, then analysis.
// Nil and zero values count as absent.
func Effective[T comparable](override *T, final, analysis T) T {
	var o T
	if override != nil {
		o = *override
	}
	return cmp.Or(o, final, analysis)
}

// EffectiveList returns edits when non-empty, otherwise suggested.
// The result is always a fresh slice, never nil.
func EffectiveList(edits, suggested []string) []string {
	if len(edits) > 0 {
		return slices.Clone(edits)
	}
	if len(suggested) > 0 {
		return slices.Clone(suggested)
	}
	return []string{}
}

// EffectiveBPM returns the BPM shown for t. NaN and negative values are treated as absent.
func EffectiveBPM(t models.Track) float64 {
	var override *float64
	if t.Edits != nil && t.Edits.BPM != nil {
		v := validBPM(*t.Edits.BPM)
		override = &v
	}
	var analysis float64
	if t.Analysis != nil {
		analysis = validBPM(t.Analysis.BPM)
	}
	return Effective(override, validBPM(t.FinalBPM), analysis)
}

// EffectiveKey returns the key shown for t. The analysis fallback is the tonic only (key_key).
func EffectiveKey(t models.Track) string {
	var override *string
	if t.Edits != nil {
		override = t.Edits.Key
	}
	var analysis string
	if t.Analysis != nil {
		analysis = t.Analysis.Key
	}
	return Effective(override, t.FinalKey, analysis)
}

func EffectiveGenres(t models.Track) []string {
	var edits []string
	if t.Edits != nil {
		edits = t.Edits.Genres
	}
	return EffectiveList(edits, t.SuggestedGenres)
}

func EffectiveMoods(t models.Track) []string {
	var edits []string
	if t.Edits != nil {
		edits = t.Edits.Moods
	}
	return EffectiveList(edits, t.SuggestedMoods)
}

func EffectiveNotes(t models.Track) string {
	if t.Edits == nil {
		return ""
	}
	return t.Edits.Notes
}

func validBPM(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
