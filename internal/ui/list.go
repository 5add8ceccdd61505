package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/crate/internal/editor"
	"github.com/desertthunder/crate/internal/models"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track    models.Track
	selected bool
}

func (i trackItem) FilterValue() string { return i.track.Filename }
func (i trackItem) Title() string {
	if i.selected {
		return "[x] " + i.track.Filename
	}
	return "[ ] " + i.track.Filename
}
func (i trackItem) Description() string {
	if i.track.Status != models.TrackComplete {
		return string(i.track.Status)
	}
	return editor.Summary(i.track)
}
