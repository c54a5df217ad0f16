// Package tui is the terminal dashboard: one bubbletea model owning one
// MarketTable, fed by the shared service.Feed.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"coin_tracker/internal/domain"
	"coin_tracker/internal/render"
	"coin_tracker/internal/service"
)

// Options configures a Model.
type Options struct {
	Feed         *service.Feed
	Formatter    *render.Formatter
	Prefs        domain.PreferenceStore // optional; persists the theme
	PageSize     int
	Theme        render.Mode
	Owner        string
	RefreshEvery time.Duration // 0 disables polling
}

// ---------------------------------------------------------------------------
// Bubble Tea messages
// ---------------------------------------------------------------------------

type fetchDoneMsg struct {
	seq     int
	records []domain.CoinRecord
	at      time.Time
	err     error
}

type refreshTickMsg struct{}

type prefSavedMsg struct {
	err error
}

// Model is the dashboard state. The MarketTable is the single source of
// truth for search and pagination; every key press mutates it serially.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	feed   *service.Feed
	table  *service.MarketTable
	format *render.Formatter
	prefs  domain.PreferenceStore

	theme  render.Mode
	styles styles
	owner  string

	searching   bool
	searchInput string

	fetchSeq     int
	loading      bool
	lastErr      error
	status       string
	refreshEvery time.Duration

	width int
	now   func() time.Time
}

// New creates a Model bound to ctx. Quitting cancels the derived context,
// so an in-flight fetch is abandoned and its late response ignored.
func New(ctx context.Context, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)
	format := opts.Formatter
	if format == nil {
		format = render.NewFormatter("en-US", "$")
	}
	return Model{
		ctx:          ctx,
		cancel:       cancel,
		feed:         opts.Feed,
		table:        service.NewMarketTable(opts.PageSize),
		format:       format,
		prefs:        opts.Prefs,
		theme:        opts.Theme,
		styles:       newStyles(render.PaletteFor(opts.Theme)),
		owner:        opts.Owner,
		refreshEvery: opts.RefreshEvery,
		loading:      true,
		width:        100,
		now:          time.Now,
	}
}

// Run starts the dashboard on the alternate screen and blocks until quit.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Init fetches once on mount.
func (m Model) Init() tea.Cmd {
	return m.fetchCmd(m.fetchSeq + 1)
}

func (m *Model) startFetch() tea.Cmd {
	m.fetchSeq++
	m.loading = true
	return m.fetchCmd(m.fetchSeq)
}

func (m Model) fetchCmd(seq int) tea.Cmd {
	ctx, feed := m.ctx, m.feed
	return func() tea.Msg {
		if feed == nil {
			return fetchDoneMsg{seq: seq, err: errors.New("no market feed configured")}
		}
		err := feed.Refresh(ctx)
		records, at, _ := feed.Snapshot()
		return fetchDoneMsg{seq: seq, records: records, at: at, err: err}
	}
}

func savePrefCmd(prefs domain.PreferenceStore, key, value string) tea.Cmd {
	return func() tea.Msg {
		return prefSavedMsg{err: prefs.SaveConfig(key, value)}
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case fetchDoneMsg:
		// Init runs before the first startFetch, so seq 1 is also current
		if msg.seq < m.fetchSeq || m.ctx.Err() != nil {
			return m, nil
		}
		m.fetchSeq = msg.seq
		m.loading = false
		if msg.err != nil {
			m.lastErr = msg.err
			m.status = "Could not load market data: " + msg.err.Error()
		} else {
			m.lastErr = nil
			m.status = ""
			m.table.Replace(msg.records, msg.at)
		}
		if m.refreshEvery > 0 {
			return m, tea.Tick(m.refreshEvery, func(time.Time) tea.Msg { return refreshTickMsg{} })
		}
		return m, nil

	case refreshTickMsg:
		if m.loading {
			return m, nil
		}
		return m, m.startFetch()

	case prefSavedMsg:
		if msg.err != nil {
			slog.Warn("Failed to save theme preference", slog.Any("error", msg.err))
			m.status = "Theme not saved: " + msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateMain(msg)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Key-input handlers
// ---------------------------------------------------------------------------

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancel()
		return m, tea.Quit
	case "/":
		m.searching = true
	case "left", "h":
		m.table.PrevPage()
	case "right", "l":
		m.table.NextPage()
	case "home", "g":
		m.table.FirstPage()
	case "end", "G":
		m.table.LastPage()
	case "s":
		next := domain.NextPageSize(m.table.Query().PageSize)
		if err := m.table.SetPageSize(next); err != nil {
			m.status = err.Error()
		}
	case "t":
		m.theme = m.theme.Toggle()
		m.styles = newStyles(render.PaletteFor(m.theme))
		if m.prefs != nil {
			return m, savePrefCmd(m.prefs, domain.PrefTheme, string(m.theme))
		}
	case "r":
		if !m.loading {
			return m, m.startFetch()
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancel()
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyEnter:
		m.searching = false
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.searchInput); len(r) > 0 {
			m.searchInput = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.searchInput += " "
	case tea.KeyRunes:
		m.searchInput += string(msg.Runes)
	default:
		return m, nil
	}
	m.table.SetSearch(m.searchInput)
	return m, nil
}
