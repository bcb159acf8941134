package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/earshot/internal/discovery"
	"github.com/desertthunder/earshot/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	ResultListView
	DetailView
	TraceView
)

// Discoverer is the engine surface the TUI depends on.
type Discoverer interface {
	GetDiscoveryVerbose(ctx context.Context, progress chan<- discovery.ProgressUpdate, accessToken string, topTracks []models.Track, desired int) ([]models.DiscoveryResult, string, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	engine      Discoverer
	accessToken string
	seeds       []models.Track
	desired     int

	width  int
	height int

	progressChan chan discovery.ProgressUpdate
	progress     discovery.ProgressUpdate

	resultList list.Model
	results    []models.DiscoveryResult
	selected   *models.DiscoveryResult
	trace      string
	err        error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies. seeds
// is the caller-supplied seed track list passed straight to the engine.
func NewModel(ctx context.Context, engine Discoverer, accessToken string, seeds []models.Track, desired int) *Model {
	return &Model{
		ctx:         ctx,
		view:        LoadingView,
		engine:      engine,
		accessToken: accessToken,
		seeds:       seeds,
		desired:     desired,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts the discovery run.
func (m *Model) Init() tea.Cmd {
	return m.startDiscovery()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.resultList.Width() == 0 {
			m.resultList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoadingView:
			return m.handleLoadingKeys(msg)
		case ResultListView:
			return m.handleResultListKeys(msg)
		case DetailView, TraceView:
			return m.handleOverlayKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = discovery.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case discoveryCompleteMsg:
		m.results = msg.results
		m.trace = msg.trace
		m.err = msg.err
		m.progressChan = nil
		if msg.err != nil {
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.results))
		for i, result := range msg.results {
			items[i] = resultItem{result: result}
		}
		m.resultList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.resultList.Title = fmt.Sprintf("Discovered Tracks (%d)", len(msg.results))
		m.resultList.SetSize(m.width-4, m.height-8)
		m.view = ResultListView
		return m, nil
	}

	if m.view == ResultListView {
		var cmd tea.Cmd
		m.resultList, cmd = m.resultList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LoadingView:
		return m.renderLoading()
	case ResultListView:
		return m.renderResultList()
	case DetailView:
		return m.renderDetail()
	case TraceView:
		return m.renderTrace()
	default:
		return ""
	}
}

func (m *Model) handleLoadingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "t":
		m.view = TraceView
		return m, nil
	case "r":
		m.view = LoadingView
		m.results = nil
		m.selected = nil
		m.trace = ""
		return m, m.startDiscovery()
	case "enter":
		selected := m.resultList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(resultItem); ok {
				m.selected = &item.result
				m.view = DetailView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

func (m *Model) handleOverlayKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ResultListView
		m.selected = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) startDiscovery() tea.Cmd {
	m.progressChan = make(chan discovery.ProgressUpdate, 50)
	progressChan := m.progressChan

	go func() {
		results, trace, err := m.engine.GetDiscoveryVerbose(m.ctx, progressChan, m.accessToken, m.seeds, m.desired)
		m.results = results
		m.trace = trace
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return discoveryCompleteMsg{results: m.results, trace: m.trace, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return discoveryCompleteMsg{results: m.results, trace: m.trace, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderLoading() string {
	title := styles.title.Render("Discovering Tracks")

	var phase string
	switch m.progress.Phase {
	case discovery.PhaseBuildKnownSet:
		phase = "Building known-track set..."
	case discovery.FetchSeedArtists:
		phase = "Fetching top artists..."
	case discovery.ExpandArtists:
		phase = fmt.Sprintf("Expanding %d seed artists...", m.progress.Total)
	case discovery.Backfill:
		phase = "Backfilling sparse pool..."
	case discovery.DiversifyPool:
		phase = "Diversifying candidates..."
	case discovery.RankResults:
		phase = "Scoring candidates..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResultList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.trace, m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.resultList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return styles.err.Render("No track selected\n\nPress esc to go back")
	}

	track := m.selected.Track
	title := styles.title.Render(track.Name)

	lines := []string{
		fmt.Sprintf("Artists: %s", track.ArtistLine()),
		fmt.Sprintf("Popularity: %d", track.Popularity),
		fmt.Sprintf("Score: %.4f", m.selected.Score),
		fmt.Sprintf("Reasons: %s", strings.Join(m.selected.Reasons, ", ")),
	}
	if track.URI != "" {
		lines = append(lines, fmt.Sprintf("URI: %s", track.URI))
	}
	if track.PreviewURL != "" {
		lines = append(lines, fmt.Sprintf("Preview: %s", track.PreviewURL))
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, strings.Join(lines, "\n"), helpView)
}

func (m *Model) renderTrace() string {
	title := styles.title.Render("Discovery Trace")

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, m.trace, helpView)
}
