package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LibraryListView ViewState = iota
	SeriesListView
	ConfirmView
	SyncView
	ResultView
)

// LibrarySource lists libraries and their series.
type LibrarySource interface {
	Libraries(ctx context.Context) ([]models.Library, error)
	LibrarySeries(ctx context.Context, libraryID string) ([]models.SeriesRecord, error)
}

// Options configures a [Model].
type Options struct {
	Media   LibrarySource
	Engine  tasks.SyncEngine
	User    string // display name
	UserID  string // Jellyfin user id used for watch state
	AutoAdd bool
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	opts         Options
	width        int
	height       int
	libraryList  list.Model
	seriesList   list.Model
	library      models.Library
	series       []models.SeriesRecord
	progressChan chan tasks.ProgressUpdate
	done         chan syncComplete
	progress     tasks.ProgressUpdate
	results      []models.SyncResult
	err          error
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	return &Model{
		ctx:     ctx,
		view:    LibraryListView,
		opts:    opts,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the TUI by fetching Jellyfin libraries.
func (m *Model) Init() tea.Cmd {
	return m.fetchLibraries()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Zero-value lists have no delegate yet.
		if m.libraryList.Items() != nil {
			m.libraryList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.seriesList.Items() != nil {
			m.seriesList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LibraryListView:
			return m.handleLibraryListKeys(msg)
		case SeriesListView:
			return m.handleSeriesListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			return m.handleSyncKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLibrariesFetched:
		data := msg.data.(librariesFetched)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(data.libraries))
		for i, lib := range data.libraries {
			items[i] = libraryItem{library: lib}
		}
		m.libraryList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.libraryList.Title = "Jellyfin Libraries"
		m.libraryList.SetSize(m.width-4, m.height-8)
		return m, nil

	case MsgSeriesFetched:
		data := msg.data.(seriesFetched)
		if data.err != nil {
			m.err = data.err
			m.view = LibraryListView
			return m, nil
		}
		m.err = nil
		m.library = data.library
		m.series = data.series
		items := make([]list.Item, len(data.series))
		for i, s := range data.series {
			items[i] = seriesItem{series: s}
		}
		m.seriesList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.seriesList.Title = fmt.Sprintf("Series in '%s'", data.library.Name)
		m.seriesList.SetSize(m.width-4, m.height-8)
		m.view = SeriesListView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.results = data.results
		m.err = data.err
		m.view = ResultView
		m.progressChan = nil
		m.done = nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LibraryListView:
		return m.renderLibraryList()
	case SeriesListView:
		return m.renderSeriesList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Results returns the results of the last completed sync.
func (m *Model) Results() []models.SyncResult {
	return m.results
}

func (m *Model) handleLibraryListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.libraryList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.libraryList, cmd = m.libraryList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.libraryList.SelectedItem().(libraryItem); ok {
			return m, m.fetchSeries(selected.library)
		}
	}

	var cmd tea.Cmd
	m.libraryList, cmd = m.libraryList.Update(msg)
	return m, cmd
}

func (m *Model) handleSeriesListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.seriesList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.seriesList, cmd = m.seriesList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = LibraryListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if len(m.series) == 0 {
			return m, nil
		}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.seriesList, cmd = m.seriesList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = SeriesListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		m.progress = tasks.ProgressUpdate{}
		return m, tea.Batch(m.startSync(), m.spinner.Tick)
	}
	return m, nil
}

// handleSyncKeys cancels the running sync; results for finished series still arrive.
func (m *Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) && m.cancel != nil {
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = LibraryListView
		m.results = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LibraryListView:
		m.libraryList, cmd = m.libraryList.Update(msg)
	case SeriesListView:
		m.seriesList, cmd = m.seriesList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchLibraries() tea.Cmd {
	return func() tea.Msg {
		libraries, err := m.opts.Media.Libraries(m.ctx)
		return librariesFetchedMsg(libraries, err)
	}
}

func (m *Model) fetchSeries(library models.Library) tea.Cmd {
	return func() tea.Msg {
		series, err := m.opts.Media.LibrarySeries(m.ctx, library.ItemID)
		return seriesFetchedMsg(library, series, err)
	}
}

func (m *Model) startSync() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan syncComplete, 1)
	m.progressChan = progress
	m.done = done

	libraryID := m.library.ItemID
	go func() {
		results, err := m.opts.Engine.SyncLibrary(ctx, libraryID, m.opts.UserID, m.opts.AutoAdd, progress)
		done <- syncComplete{results: results, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return syncCompleteMsg(nil, nil)
		}

		update, ok := <-progress
		if !ok {
			result := <-done
			return syncCompleteMsg(result.results, result.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderLibraryList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.libraryList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSeriesList() string {
	syncKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sync"))
	helpKeys := []key.Binding{syncKey, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.seriesList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sync '%s' to AniList?", m.library.Name))

	linked := 0
	for _, s := range m.series {
		if s.HasProviderID("AniList") {
			linked++
		}
	}
	addMode := "create missing list entries"
	if !m.opts.AutoAdd {
		addMode = "only update existing list entries"
	}
	info := fmt.Sprintf("\nUser: %s\nSeries: %d (%d linked to AniList, %d to search)\nMode: %s\n",
		m.opts.User, len(m.series), linked, len(m.series)-linked, addMode)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("Syncing '%s'", m.library.Name))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchLibrary:
		phase = "Fetching library..."
	case tasks.ResolveSeries:
		phase = fmt.Sprintf("Resolving series (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ApplyProgress:
		phase = fmt.Sprintf("Updating AniList (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.RecordMissing:
		phase = fmt.Sprintf("Recording unmatched series (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Pacing:
		phase = fmt.Sprintf("Waiting between requests (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Complete:
		phase = "Finishing..."
	}

	helpKeys := []key.Binding{m.keys.cancel}
	return fmt.Sprintf("%s\n\n%s %s\n%s\n\n%s", title, m.spinner.View(), phase, m.progress.Message, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)) + "\n\n" + helpView
	}

	summary := tasks.Summarize(m.results)
	title := styles.ok.Render("✓ Sync Complete!")
	if summary.Counts[models.StatusError] > 0 {
		title = styles.warn.Render("Sync finished with failures")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, status := range models.SyncStatuses {
		line := fmt.Sprintf("%-20s %d", status.Label()+":", summary.Counts[status])
		b.WriteString(styles.Status(status.IsSuccess()).Render(line))
		b.WriteString("\n")
	}

	if len(summary.NoIdentity) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render("No AniList match (recorded for review):"))
		for _, name := range summary.NoIdentity {
			fmt.Fprintf(&b, "\n  • %s", name)
		}
		b.WriteString("\n")
	}
	if len(summary.Failed) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.err.Render("Failed:"))
		for _, r := range summary.Failed {
			fmt.Fprintf(&b, "\n  • %s: %s", r.SeriesName, r.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpView)
	return b.String()
}
