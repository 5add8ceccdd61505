package editor

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Field names one overridable value.
type Field string

const (
	FieldBPM    Field = "bpm"
	FieldKey    Field = "key"
	FieldGenres Field = "genres"
	FieldMoods  Field = "moods"
	FieldNotes  Field = "notes"
)

// ParseField accepts a field name as used on the command line, e.g. "genre" or "Moods".
func ParseField(name string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bpm":
		return FieldBPM, nil
	case "key":
		return FieldKey, nil
	case "genre", "genres":
		return FieldGenres, nil
	case "mood", "moods":
		return FieldMoods, nil
	case "notes", "note":
		return FieldNotes, nil
	}
	return "", fmt.Errorf("%w: %q", shared.ErrUnknownField, name)
}

func (f Field) isList() bool {
	return f == FieldGenres || f == FieldMoods
}

type patchOp int

const (
	opSet patchOp = iota
	opAdd
	opRemove
)

// Patch is a change to exactly one override field. Build one with [SetBPM], [SetKey],
// [SetNotes], [AddTag] or [RemoveTag].
type Patch struct {
	field  Field
	op     patchOp
	number float64
	text   string
	index  int
}

func (p Patch) Field() Field { return p.field }

func (p Patch) String() string {
	switch p.op {
	case opAdd:
		return fmt.Sprintf("add %s %q", p.field, p.text)
	case opRemove:
		return fmt.Sprintf("remove %s #%d", p.field, p.index)
	}
	if p.field == FieldBPM {
		return fmt.Sprintf("set bpm %g", p.number)
	}
	return fmt.Sprintf("set %s %q", p.field, p.text)
}

// SetBPM overrides the BPM. Zero, negative or NaN clears the override.
func SetBPM(bpm float64) Patch {
	return Patch{field: FieldBPM, op: opSet, number: bpm}
}

// SetKey overrides the key. An empty key clears the override.
func SetKey(key string) Patch {
	return Patch{field: FieldKey, op: opSet, text: strings.TrimSpace(key)}
}

func SetNotes(notes string) Patch {
	return Patch{field: FieldNotes, op: opSet, text: notes}
}

// AddTag appends value to the genres or moods list.
func AddTag(field Field, value string) Patch {
	return Patch{field: field, op: opAdd, text: strings.TrimSpace(value)}
}

// RemoveTag removes the element at index from the genres or moods list.
func RemoveTag(field Field, index int) Patch {
	return Patch{field: field, op: opRemove, index: index}
}

// Apply returns t with p applied to its edits overlay and whether anything was applied.
//
// A list patch on a field that was never overridden first copies the effective list into the
// overlay, so it starts from the server's suggestions. An override the user emptied stays the
// starting point, so removed suggestions do not come back on the next add. Adding a value
// already in that list (exact match) and removing an out-of-range index are rejected.
func Apply(t models.Track, p Patch) (models.Track, bool, error) {
	if p.op != opSet && !p.field.isList() {
		return t, false, fmt.Errorf("%w: %s is not a list", shared.ErrUnknownField, p.field)
	}

	out := t.Clone()
	edits := models.Edits{}
	if out.Edits != nil {
		edits = *out.Edits
	}

	switch p.field {
	case FieldBPM:
		if p.number <= 0 || math.IsNaN(p.number) || math.IsInf(p.number, 0) {
			edits.BPM = nil
		} else {
			v := p.number
			edits.BPM = &v
		}
	case FieldKey:
		if p.text == "" {
			edits.Key = nil
		} else {
			v := p.text
			edits.Key = &v
		}
	case FieldNotes:
		edits.Notes = p.text
	case FieldGenres:
		list, ok := patchList(baseList(edits.Genres, EffectiveGenres(t)), p)
		if !ok {
			return t, false, nil
		}
		edits.Genres = list
	case FieldMoods:
		list, ok := patchList(baseList(edits.Moods, EffectiveMoods(t)), p)
		if !ok {
			return t, false, nil
		}
		edits.Moods = list
	default:
		return t, false, fmt.Errorf("%w: %q", shared.ErrUnknownField, p.field)
	}

	out.Edits = &edits
	return out, true, nil
}

// baseList returns the list a patch starts from.
func baseList(override, effective []string) []string {
	if override != nil {
		return slices.Clone(override)
	}
	return effective
}

func patchList(current []string, p Patch) ([]string, bool) {
	switch p.op {
	case opAdd:
		if p.text == "" || slices.Contains(current, p.text) {
			return nil, false
		}
		return append(current, p.text), true
	case opRemove:
		if p.index < 0 || p.index >= len(current) {
			return nil, false
		}
		return slices.Delete(current, p.index, p.index+1), true
	}
	return nil, false
}
