// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [QueueView] : Watch uploads progress and analysis finish, remove or clear items
//  2. [LibraryView] : Browse and filter analyzed tracks, build a selection and export it
//  3. [EditorView] : Override BPM, key, genres, moods and notes for one track, save and copy
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the upload Orchestrator, providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
