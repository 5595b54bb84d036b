// Package tui is the terminal surface over a controller session.
package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/artwork"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
	"github.com/liuran001/MusicPreview-Go/music/controller"
	"github.com/mattn/go-runewidth"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	artTimeout    = 15 * time.Second
)

// Session is the part of controller.Session the screen drives.
type Session interface {
	State() controller.ViewState
	SetQuery(text string)
	SelectTrack(id string)
	ClearSelection()
	TogglePlay()
	SeekBy(deltaMs int64)
	Stop()
	Retry()
}

// Options configures the terminal model.
type Options struct {
	Session  Session
	Bridge   *Bridge
	Artwork  *artwork.Renderer
	SeekStep time.Duration
	Logger   music.Logger
}

type artworkMsg struct {
	trackID string
	art     artwork.Art
}

type trackItem struct {
	track catalog.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }

func (i trackItem) line() string {
	return i.track.Title + " - " + i.track.Artist.Name
}

type trackDelegate struct {
	styles Styles
}

func (d trackDelegate) Height() int                               { return 1 }
func (d trackDelegate) Spacing() int                              { return 0 }
func (d trackDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d trackDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(trackItem)
	if !ok {
		return
	}

	style := d.styles.Row
	pointer := "  "
	if index == m.Index() {
		style = d.styles.RowSelected
		pointer = d.styles.Pointer.Render("> ")
	}

	line := ti.line()
	if width := m.Width() - 2; width > 0 {
		line = runewidth.Truncate(line, width, "…")
	}
	fmt.Fprint(w, pointer+style.Render(line))
}

// Model is the bubbletea model for the search list and the detail view.
type Model struct {
	session  Session
	bridge   *Bridge
	artwork  *artwork.Renderer
	seekStep int64
	logger   music.Logger
	styles   Styles

	state  controller.ViewState
	art    artwork.Art
	artFor string

	input    textinput.Model
	results  list.Model
	spinner  spinner.Model
	progress progress.Model

	width, height int
}

// NewModel builds a Model reading state from opts.Session.
func NewModel(opts Options) Model {
	styles := DefaultStyles()
	logger := opts.Logger
	if logger == nil {
		logger = music.NopLogger{}
	}
	step := opts.SeekStep
	if step <= 0 {
		step = 5 * time.Second
	}

	ti := textinput.New()
	ti.Placeholder = "Rechercher un morceau"
	ti.CharLimit = 120
	ti.Focus()

	li := list.New([]list.Item{}, trackDelegate{styles: styles}, defaultWidth, defaultHeight-6)
	li.SetShowTitle(false)
	li.SetShowStatusBar(false)
	li.SetShowPagination(false)
	li.SetShowHelp(false)
	li.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	pr := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	m := Model{
		session:  opts.Session,
		bridge:   opts.Bridge,
		artwork:  opts.Artwork,
		seekStep: step.Milliseconds(),
		logger:   logger,
		styles:   styles,
		input:    ti,
		results:  li,
		spinner:  sp,
		progress: pr,
	}
	m.setSize(defaultWidth, defaultHeight)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height
	inner := width - m.styles.App.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}
	m.input.Width = inner - 4
	m.progress.Width = min(inner, 50)
	listHeight := height - m.styles.App.GetVerticalFrameSize() - 4
	if listHeight < 1 {
		listHeight = 1
	}
	m.results.SetSize(inner, listHeight)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case stateChangedMsg:
		m.bridge.ack()
		return m, m.refresh()

	case artworkMsg:
		if m.state.Selected != nil && m.state.Selected.ID == msg.trackID {
			m.art = msg.art
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.state.Mode() == controller.ModeDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case "up", "down", "pgup", "pgdown":
		m.results, cmd = m.results.Update(msg)
	case "enter":
		if item, ok := m.results.SelectedItem().(trackItem); ok {
			m.session.SelectTrack(item.track.ID)
		}
	default:
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if value := m.input.Value(); value != before {
			m.session.SetQuery(value)
		}
	}
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case " ", "space", "enter", "p":
		m.session.TogglePlay()
	case "r":
		m.session.Retry()
	case "s":
		m.session.Stop()
	case "left", "h":
		m.session.SeekBy(-m.seekStep)
	case "right", "l":
		m.session.SeekBy(m.seekStep)
	case "esc", "backspace", "b":
		m.session.ClearSelection()
	}
	return m, nil
}

// refresh pulls the session state and schedules artwork for a new selection.
func (m *Model) refresh() tea.Cmd {
	prev := m.state
	m.state = m.session.State()

	if !sameTracks(prev.Results, m.state.Results) {
		items := make([]list.Item, len(m.state.Results))
		for i, tr := range m.state.Results {
			items[i] = trackItem{track: tr}
		}
		m.results.SetItems(items)
		m.results.Select(0)
	}

	selectedID := ""
	if m.state.Selected != nil {
		selectedID = m.state.Selected.ID
	}
	if selectedID == m.artFor {
		return nil
	}
	m.artFor = selectedID
	m.art = artwork.Art{}
	if selectedID == "" || m.artwork == nil {
		return nil
	}

	renderer := m.artwork
	logger := m.logger
	cover := m.state.Selected.Album.CoverURL
	picture := m.state.Selected.Artist.PictureURL
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), artTimeout)
		defer cancel()
		art, err := renderer.Render(ctx, cover, picture)
		if err != nil {
			logger.Debug("artwork render canceled", "track", selectedID, "error", err)
		}
		return artworkMsg{trackID: selectedID, art: art}
	}
}

func sameTracks(a, b []catalog.Track) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
