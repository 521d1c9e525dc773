package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/library"
	"github.com/mmcdole/marquee/internal/nowplaying"
	"github.com/mmcdole/marquee/internal/reconcile"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

// ChromeHeight is the header plus the footer
const ChromeHeight = 2

const statusTTL = 4 * time.Second

// Model is the main Bubble Tea model for the application
type Model struct {
	Coordinator *nowplaying.Coordinator
	Queries     *library.Queries
	Keys        KeyMap

	// Load the next page once the cursor is this close to the end
	PrefetchRows int

	// Data
	Movies   []domain.StoredMovie
	Filtered []int // indices into Movies; nil when no filter is applied

	// Dimensions
	Width  int
	Height int

	// UI state
	Cursor      int
	Offset      int
	Filtering   bool
	FilterInput textinput.Model
	Spinner     spinner.Model
	HeadBusy    bool
	TailBusy    bool
	StatusMsg   string
	StatusIsErr bool

	feeds []*statusFeed
}

// NewModel creates a new application model and subscribes to the
// coordinator's status streams. Call Close when the program exits.
func NewModel(c *nowplaying.Coordinator, q *library.Queries, prefetchRows int) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter titles"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.AccentStyle

	return Model{
		Coordinator:  c,
		Queries:      q,
		Keys:         DefaultKeyMap(),
		PrefetchRows: prefetchRows,
		FilterInput:  ti,
		Spinner:      sp,
		feeds: []*statusFeed{
			subscribe(nowplaying.OpRefreshHead, c.HeadStatus()),
			subscribe(nowplaying.OpLoadNextPage, c.TailStatus()),
		},
	}
}

// Close releases the status subscriptions
func (m Model) Close() {
	for _, f := range m.feeds {
		f.close()
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		LoadMoviesCmd(m.Queries),
		StartupSyncCmd(m.Coordinator, m.Queries),
		m.Spinner.Tick,
	}
	for _, f := range m.feeds {
		cmds = append(cmds, f.listen())
	}
	return tea.Batch(cmds...)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		if m.Filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case MoviesLoadedMsg:
		m.Movies = msg.Movies
		m.Filtered = filterMovies(m.FilterInput.Value(), m.Movies)
		m.clampScroll()
		return m, nil

	case SyncDoneMsg:
		// Errors arrive once on the status error stream.
		if msg.Err == nil && msg.Result.Invalidated {
			m.Cursor, m.Offset = 0, 0
			m.setStatus("List changed upstream, reloaded from the top", false)
			return m, tea.Batch(LoadMoviesCmd(m.Queries), ClearStatusCmd(statusTTL))
		}
		return m, LoadMoviesCmd(m.Queries)

	case BusyMsg:
		switch msg.Op {
		case nowplaying.OpRefreshHead:
			m.HeadBusy = msg.Busy
		case nowplaying.OpLoadNextPage:
			m.TailBusy = msg.Busy
		}
		return m, msg.NextCmd

	case SyncErrMsg:
		m.setStatus(msg.Err.Error(), true)
		return m, tea.Batch(msg.NextCmd, ClearStatusCmd(statusTTL))

	case ErrMsg:
		m.setStatus(msg.Error(), true)
		return m, ClearStatusCmd(statusTTL)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Refresh):
		return m, RefreshHeadCmd(m.Coordinator)
	case key.Matches(msg, m.Keys.Filter):
		m.Filtering = true
		return m, m.FilterInput.Focus()
	case key.Matches(msg, m.Keys.Escape):
		m.clearFilter()
		return m, nil
	case key.Matches(msg, m.Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.Keys.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, m.Keys.PageDown):
		m.moveCursor(m.listHeight())
	case key.Matches(msg, m.Keys.Home):
		m.moveCursor(-m.visibleCount())
	case key.Matches(msg, m.Keys.End):
		m.moveCursor(m.visibleCount())
	default:
		return m, nil
	}
	return m, m.maybeLoadMore()
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Escape):
		m.clearFilter()
		return m, nil
	case key.Matches(msg, m.Keys.Enter):
		m.Filtering = false
		m.FilterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.FilterInput, cmd = m.FilterInput.Update(msg)
	m.Filtered = filterMovies(m.FilterInput.Value(), m.Movies)
	m.Cursor, m.Offset = 0, 0
	return m, cmd
}

func (m *Model) clearFilter() {
	m.Filtering = false
	m.FilterInput.Blur()
	m.FilterInput.SetValue("")
	m.Filtered = nil
	m.clampScroll()
}

// maybeLoadMore triggers LoadNextPage when the cursor nears the end of the
// unfiltered list and pages remain.
func (m Model) maybeLoadMore() tea.Cmd {
	if m.Filtered != nil || m.TailBusy || len(m.Movies) == 0 {
		return nil
	}
	if m.Cursor < len(m.Movies)-1-m.PrefetchRows {
		return nil
	}
	snap := m.Coordinator.Cursors()
	if reconcile.Exhausted(snap.LastPageLoaded, snap.TotalPages) {
		return nil
	}
	return LoadNextPageCmd(m.Coordinator)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
}

func (m Model) visibleCount() int {
	if m.Filtered != nil {
		return len(m.Filtered)
	}
	return len(m.Movies)
}

func (m Model) visibleAt(i int) domain.StoredMovie {
	if m.Filtered != nil {
		return m.Movies[m.Filtered[i]]
	}
	return m.Movies[i]
}

func (m Model) listHeight() int {
	h := m.Height - ChromeHeight
	if m.Filtering || m.Filtered != nil {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) moveCursor(delta int) {
	m.Cursor += delta
	m.clampScroll()
}

// clampScroll keeps the cursor in range and visible.
func (m *Model) clampScroll() {
	n := m.visibleCount()
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	h := m.listHeight()
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+h {
		m.Offset = m.Cursor - h + 1
	}
	if m.Offset < 0 {
		m.Offset = 0
	}
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	h := m.listHeight()
	n := m.visibleCount()
	rows := 0
	if n == 0 {
		b.WriteString(styles.DimStyle.Render("  No movies cached yet"))
		b.WriteString("\n")
		rows++
	}
	for i := m.Offset; i < n && rows < h; i++ {
		b.WriteString(m.renderRow(m.visibleAt(i), i == m.Cursor))
		b.WriteString("\n")
		rows++
	}
	for ; rows < h; rows++ {
		b.WriteString("\n")
	}

	if m.Filtering || m.Filtered != nil {
		b.WriteString(m.FilterInput.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	title := "Now Playing"
	count := fmt.Sprintf("%d movies", len(m.Movies))
	if m.Filtered != nil {
		count = fmt.Sprintf("%d of %d movies", len(m.Filtered), len(m.Movies))
	}
	return styles.HeaderStyle.Width(m.Width).Render(title + "  " + styles.SubtitleStyle.Render(count))
}

func (m Model) renderRow(movie domain.StoredMovie, selected bool) string {
	line := movie.Title
	if y := movie.Year(); y > 0 {
		line += fmt.Sprintf(" (%d)", y)
	}
	if r := movie.FormattedRating(); r != "" {
		line += "  " + styles.RatingStyle.Render(styles.RatingStar+" "+r)
	}

	style := styles.NormalItemStyle
	if selected {
		style = styles.SelectedItemStyle
	}
	return style.Width(m.Width).MaxHeight(1).Render(line)
}

// renderFooter renders a single-line minimal footer
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.HeadBusy:
		left = m.Spinner.View() + " " + styles.DimStyle.Render("Refreshing...")
	case m.TailBusy:
		left = m.Spinner.View() + " " + styles.DimStyle.Render("Loading more...")
	case m.StatusMsg != "":
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	}

	hints := make([]string, 0, 3)
	for _, b := range m.Keys.FooterBindings() {
		h := b.Help()
		hints = append(hints, styles.AccentStyle.Render(h.Key)+styles.DimStyle.Render(" "+h.Desc))
	}
	right := strings.Join(hints, "  ")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
