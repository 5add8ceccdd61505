package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	tab       key.Binding
	remove    key.Binding
	clear     key.Binding
	toggle    key.Binding
	toggleAll key.Binding
	filter    key.Binding
	export    key.Binding
	bpm       key.Binding
	key       key.Binding
	notes     key.Binding
	addGenre  key.Binding
	dropGenre key.Binding
	addMood   key.Binding
	dropMood  key.Binding
	save      key.Binding
	copy      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		remove:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear all")),
		toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		toggleAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		bpm:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bpm")),
		key:       key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "key")),
		notes:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notes")),
		addGenre:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g/G", "add/remove genre")),
		dropGenre: key.NewBinding(key.WithKeys("G")),
		addMood:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m/M", "add/remove mood")),
		dropMood:  key.NewBinding(key.WithKeys("M")),
		save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy summary")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tab, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.tab, k.remove, k.clear},
		{k.toggle, k.toggleAll, k.filter, k.export, k.enter},
		{k.bpm, k.key, k.notes, k.addGenre, k.addMood},
		{k.save, k.copy, k.back, k.quit},
	}
}
