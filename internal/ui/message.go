package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTracksLoaded MsgKind = iota
	MsgProgressUpdate
	MsgUpdatesClosed
	MsgSaved
	MsgExported
	MsgCopied
)

type result[T any] struct {
	value T
	err   error
}

// tracksLoadedMsg is the constructor for [MsgTracksLoaded]
func tracksLoadedMsg(err error) Msg {
	return Msg{kind: MsgTracksLoaded, data: err}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// updatesClosedMsg is the constructor for [MsgUpdatesClosed]
func updatesClosedMsg() Msg {
	return Msg{kind: MsgUpdatesClosed}
}

// savedMsg is the constructor for [MsgSaved]
func savedMsg(track models.Track, err error) Msg {
	return Msg{kind: MsgSaved, data: result[models.Track]{track, err}}
}

// exportedMsg is the constructor for [MsgExported]
func exportedMsg(path string, err error) Msg {
	return Msg{kind: MsgExported, data: result[string]{path, err}}
}

// copiedMsg is the constructor for [MsgCopied]
func copiedMsg(text string, err error) Msg {
	return Msg{kind: MsgCopied, data: result[string]{text, err}}
}
