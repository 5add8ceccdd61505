package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crate/internal/editor"
	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/selection"
	"github.com/desertthunder/crate/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	QueueView ViewState = iota
	LibraryView
	EditorView
)

// inputMode is what the text input is currently collecting.
type inputMode int

const (
	inputNone inputMode = iota
	inputFilter
	inputSet
	inputAdd
	inputRemove
)

// ModelOpts contains the dependencies for [NewModel].
type ModelOpts struct {
	Orchestrator *tasks.Orchestrator
	Session      *editor.Session
	Selection    *selection.Set
	Exporter     selection.Exporter
	Clipboard    editor.Clipboard
	Updates      <-chan tasks.ProgressUpdate // Usually the channel passed to the orchestrator
	View         ViewState                   // Initial view
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	orch      *tasks.Orchestrator
	session   *editor.Session
	picked    *selection.Set
	exporter  selection.Exporter
	clipboard editor.Clipboard
	updates   <-chan tasks.ProgressUpdate

	width   int
	height  int
	queue   tasks.Queue
	cursor  int
	library list.Model
	bar     progress.Model
	spinner spinner.Model
	input   textinput.Model
	mode    inputMode
	field   editor.Field
	status  string
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	if opts.Selection == nil {
		opts.Selection = selection.New()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = editor.SystemClipboard{}
	}

	library := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	library.Title = "Library"
	library.SetFilteringEnabled(false)
	library.SetShowHelp(false)

	return &Model{
		ctx:       ctx,
		view:      opts.View,
		orch:      opts.Orchestrator,
		session:   opts.Session,
		picked:    opts.Selection,
		exporter:  opts.Exporter,
		clipboard: opts.Clipboard,
		updates:   opts.Updates,
		library:   library,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:     textinput.New(),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the spinner, listens for queue progress and loads the library.
func (m *Model) Init() tea.Cmd {
	m.refreshQueue()
	return tea.Batch(m.spinner.Tick, m.waitForProgress(), m.loadTracks())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.library.SetSize(msg.Width-4, msg.Height-8)
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.handleInputKeys(msg)
		}
		switch m.view {
		case QueueView:
			return m.handleQueueKeys(msg)
		case LibraryView:
			return m.handleLibraryKeys(msg)
		case EditorView:
			return m.handleEditorKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.refreshQueue()
		if update.Phase == tasks.Completed {
			return m, tea.Batch(m.waitForProgress(), m.loadTracks())
		}
		return m, m.waitForProgress()

	case MsgUpdatesClosed:
		m.updates = nil
		return m, nil

	case MsgTracksLoaded:
		if err, _ := msg.data.(error); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.refreshLibrary()
		return m, nil

	case MsgSaved:
		r := msg.data.(result[models.Track])
		if r.err != nil {
			m.err = r.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Saved %s", r.value.Filename)
		m.refreshLibrary()
		return m, nil

	case MsgExported:
		r := msg.data.(result[string])
		if r.err != nil {
			m.err = r.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Exported %d tracks to %s", m.picked.Len(), r.value)
		return m, nil

	case MsgCopied:
		r := msg.data.(result[string])
		if r.err != nil {
			m.err = fmt.Errorf("failed to copy summary: %w", r.err)
			return m, nil
		}
		m.status = "Copied: " + r.value
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case QueueView:
		body = m.renderQueue()
	case LibraryView:
		body = m.renderLibrary()
	case EditorView:
		body = m.renderEditor()
	}

	var footer []string
	if m.mode != inputNone {
		footer = append(footer, m.input.View())
	}
	if m.err != nil {
		footer = append(footer, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.status != "" {
		footer = append(footer, styles.ok.Render(m.status))
	}
	footer = append(footer, m.helpView())
	return fmt.Sprintf("%s\n\n%s", body, strings.Join(footer, "\n"))
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.queue.Items()
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.view = LibraryView
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.remove):
		if m.orch != nil && m.cursor < len(items) {
			item := items[m.cursor]
			if m.orch.Remove(item.ID) {
				m.status = fmt.Sprintf("Removed %s", item.Filename())
			}
			m.refreshQueue()
		}
	case key.Matches(msg, m.keys.clear):
		if m.orch != nil {
			m.orch.Clear()
			m.status = "Cleared queue"
			m.refreshQueue()
		}
	}
	return m, nil
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.view = QueueView
		return m, nil
	case key.Matches(msg, m.keys.filter):
		return m, m.startInput(inputFilter, "", "filter: ", m.session.Filter())
	case key.Matches(msg, m.keys.back):
		if m.session.Filter() != "" {
			m.session.SetFilter("")
			m.refreshLibrary()
		}
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		if item, ok := m.library.SelectedItem().(trackItem); ok {
			m.picked.Toggle(item.track.ID)
			m.refreshLibrary()
		}
		return m, nil
	case key.Matches(msg, m.keys.toggleAll):
		m.picked.ToggleAll(m.session.Visible())
		m.refreshLibrary()
		return m, nil
	case key.Matches(msg, m.keys.export):
		return m, m.export()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.library.SelectedItem().(trackItem); ok {
			if err := m.session.Select(item.track.ID); err != nil {
				m.err = err
				return m, nil
			}
			m.status = ""
			m.view = EditorView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.library, cmd = m.library.Update(msg)
	return m, cmd
}

func (m *Model) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap, ok := m.session.Snapshot()
	if !ok {
		m.view = LibraryView
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = LibraryView
		m.refreshLibrary()
	case key.Matches(msg, m.keys.bpm):
		current := ""
		if bpm := editor.EffectiveBPM(snap); bpm > 0 {
			current = strconv.FormatFloat(bpm, 'f', -1, 64)
		}
		return m, m.startInput(inputSet, editor.FieldBPM, "bpm: ", current)
	case key.Matches(msg, m.keys.key):
		return m, m.startInput(inputSet, editor.FieldKey, "key: ", editor.EffectiveKey(snap))
	case key.Matches(msg, m.keys.notes):
		return m, m.startInput(inputSet, editor.FieldNotes, "notes: ", editor.EffectiveNotes(snap))
	case key.Matches(msg, m.keys.addGenre):
		return m, m.startInput(inputAdd, editor.FieldGenres, "add genre: ", "")
	case key.Matches(msg, m.keys.dropGenre):
		return m, m.startInput(inputRemove, editor.FieldGenres, "remove genre #: ", "")
	case key.Matches(msg, m.keys.addMood):
		return m, m.startInput(inputAdd, editor.FieldMoods, "add mood: ", "")
	case key.Matches(msg, m.keys.dropMood):
		return m, m.startInput(inputRemove, editor.FieldMoods, "remove mood #: ", "")
	case key.Matches(msg, m.keys.save):
		return m, m.save()
	case key.Matches(msg, m.keys.copy):
		return m, m.copySummary()
	}
	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == inputFilter {
			m.session.SetFilter("")
			m.refreshLibrary()
		}
		m.stopInput()
		return m, nil
	case tea.KeyEnter:
		if m.mode != inputFilter {
			m.applyInput(m.input.Value())
		}
		m.stopInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == inputFilter {
		m.session.SetFilter(m.input.Value())
		m.refreshLibrary()
	}
	return m, cmd
}

func (m *Model) startInput(mode inputMode, field editor.Field, prompt, value string) tea.Cmd {
	m.mode = mode
	m.field = field
	m.err = nil
	m.status = ""
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) stopInput() {
	m.mode = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

// applyInput turns the submitted text into a patch on the session snapshot.
func (m *Model) applyInput(value string) {
	var patch editor.Patch
	switch m.mode {
	case inputSet:
		switch m.field {
		case editor.FieldBPM:
			bpm, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				m.err = fmt.Errorf("invalid bpm %q", value)
				return
			}
			patch = editor.SetBPM(bpm)
		case editor.FieldKey:
			patch = editor.SetKey(value)
		default:
			patch = editor.SetNotes(value)
		}
	case inputAdd:
		patch = editor.AddTag(m.field, value)
	case inputRemove:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			m.err = fmt.Errorf("invalid position %q", value)
			return
		}
		patch = editor.RemoveTag(m.field, n-1)
	default:
		return
	}

	applied, err := m.session.PatchOverride(patch)
	switch {
	case err != nil:
		m.err = err
	case !applied:
		m.status = "No change"
	}
}

func (m *Model) refreshQueue() {
	if m.orch == nil {
		return
	}
	m.queue = m.orch.Snapshot()
	if n := m.queue.Len(); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m *Model) refreshLibrary() {
	if m.session == nil {
		return
	}
	visible := m.session.Visible()
	items := make([]list.Item, len(visible))
	for i, track := range visible {
		items[i] = trackItem{track: track, selected: m.picked.Has(track.ID)}
	}
	m.library.SetItems(items)
	m.library.Title = fmt.Sprintf("Library (%d selected)", m.picked.Len())
}

func (m *Model) loadTracks() tea.Cmd {
	if m.session == nil {
		return nil
	}
	return func() tea.Msg {
		return tracksLoadedMsg(m.session.Load(m.ctx))
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	updates := m.updates
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update, ok := <-updates:
			if !ok {
				return updatesClosedMsg()
			}
			return progressUpdateMsg(update)
		case <-m.ctx.Done():
			return updatesClosedMsg()
		}
	}
}

func (m *Model) save() tea.Cmd {
	if !m.session.Dirty() {
		m.status = "Nothing to save"
		return nil
	}
	m.status = "Saving..."
	return func() tea.Msg {
		return savedMsg(m.session.Save(m.ctx))
	}
}

func (m *Model) export() tea.Cmd {
	if m.exporter == nil {
		m.err = errors.New("export is not available")
		return nil
	}
	if m.picked.Len() == 0 {
		m.status = "Select tracks to export first"
		return nil
	}
	m.status = "Exporting..."
	return func() tea.Msg {
		return exportedMsg(m.picked.Export(m.ctx, m.exporter))
	}
}

func (m *Model) copySummary() tea.Cmd {
	text, done, err := m.session.CopySummary(m.clipboard)
	if err != nil {
		m.err = err
		return nil
	}
	return func() tea.Msg {
		return copiedMsg(text, <-done)
	}
}

func (m *Model) renderQueue() string {
	counts := m.queue.Counts()
	title := styles.title.Render(fmt.Sprintf("Upload Queue (%d)", m.queue.Len()))
	if m.queue.Len() == 0 {
		return fmt.Sprintf("%s\n%s", title, styles.help.Render("No uploads yet. Pass files to `crate tui` or run `crate watch`."))
	}

	lines := []string{title, fmt.Sprintf("%d uploading • %d analyzing • %d complete • %d failed\n",
		counts[models.ItemUploading], counts[models.ItemAnalyzing], counts[models.ItemComplete], counts[models.ItemError])}
	for i, item := range m.queue.Items() {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		lines = append(lines, cursor+m.renderItem(item))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderItem(item models.FileItem) string {
	name := fmt.Sprintf("%s (%s)", item.Filename(), formatter.FormatSize(item.Size()))
	switch item.Status {
	case models.ItemUploading:
		return fmt.Sprintf("%s %s", m.bar.ViewAs(float64(item.Progress)/100), name)
	case models.ItemAnalyzing:
		return fmt.Sprintf("%s analyzing %s", m.spinner.View(), name)
	case models.ItemComplete:
		summary := ""
		if item.TrackData != nil {
			summary = " " + styles.help.Render(editor.Summary(*item.TrackData))
		}
		return styles.ok.Render("✓ ") + name + summary
	case models.ItemError:
		return styles.err.Render("✗ ") + name + " " + styles.warn.Render(item.ErrorMessage)
	default:
		return styles.help.Render("• pending ") + name
	}
}

func (m *Model) renderLibrary() string {
	if filter := m.session.Filter(); filter != "" && m.mode != inputFilter {
		return fmt.Sprintf("%s\n%s", m.library.View(), styles.warn.Render("filter: "+filter))
	}
	return m.library.View()
}

func (m *Model) renderEditor() string {
	snap, ok := m.session.Snapshot()
	if !ok {
		return styles.help.Render("No track selected")
	}

	title := snap.Filename
	if m.session.Dirty() {
		title += " *"
	}
	return fmt.Sprintf("%s\n%s", styles.title.Render(title), formatter.TrackToText(snap))
}

func (m *Model) helpView() string {
	var keys []key.Binding
	switch m.view {
	case QueueView:
		keys = []key.Binding{m.keys.up, m.keys.down, m.keys.remove, m.keys.clear, m.keys.tab, m.keys.quit}
	case LibraryView:
		keys = []key.Binding{m.keys.toggle, m.keys.toggleAll, m.keys.filter, m.keys.export, m.keys.enter, m.keys.tab, m.keys.quit}
	case EditorView:
		keys = []key.Binding{m.keys.bpm, m.keys.key, m.keys.notes, m.keys.addGenre, m.keys.addMood, m.keys.save, m.keys.copy, m.keys.back}
	}
	return m.help.ShortHelpView(keys)
}
