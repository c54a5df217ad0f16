package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"coin_tracker/internal/render"
)

type column struct {
	title string
	width int
	right bool
}

var columns = []column{
	{"#", 4, true},
	{"Cryptocurrency Ranking", 30, false},
	{"Price", 14, true},
	{"24h", 10, true},
	{"Volume", 20, true},
	{"Market Cap", 20, true},
}

func pad(s string, c column) string {
	st := lipgloss.NewStyle().Width(c.width).MaxWidth(c.width)
	if c.right {
		st = st.Align(lipgloss.Right)
	}
	return st.Render(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}

// View renders header, search, table, pagination and footer.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Cryptocurrency Tracker"))
	b.WriteString("\n")
	b.WriteString(m.styles.subtitle.Render("Live prices, volume and market cap of the top coins by market capitalization"))
	b.WriteString("\n\n")

	b.WriteString(m.searchView())
	b.WriteString("\n")

	b.WriteString(m.tableView())
	b.WriteString("\n")

	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) searchView() string {
	text := m.searchInput
	if text == "" && !m.searching {
		text = m.styles.muted.Render("Search for a cryptocurrency")
	}
	if m.searching {
		text += "▏"
	}
	return m.styles.prompt.Render("/") + " " + m.styles.search.Render(text)
}

func (m Model) tableView() string {
	var b strings.Builder

	head := make([]string, len(columns))
	for i, c := range columns {
		head[i] = pad(c.title, c)
	}
	b.WriteString(m.styles.header.Render(strings.Join(head, " ")))
	b.WriteString("\n")

	view := m.table.View()
	switch {
	case len(view.Rows) > 0:
		for _, row := range m.format.Rows(view.Rows) {
			b.WriteString(m.rowView(row))
			b.WriteString("\n")
		}
	case m.loading:
		b.WriteString(m.styles.muted.Render("Loading market data..."))
		b.WriteString("\n")
	case m.lastErr != nil && view.Total == 0:
		b.WriteString(m.styles.status.Render("Market data unavailable. Press r to retry."))
		b.WriteString("\n")
	default:
		b.WriteString(m.styles.muted.Render("No matching cryptocurrencies."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.muted.Render(fmt.Sprintf("Rows per page: %d    %s    Page %d/%d",
		view.Query.PageSize, view.RangeLabel(), view.Query.Page+1, view.PageCount)))
	b.WriteString("\n")
	return b.String()
}

func (m Model) rowView(row render.Row) string {
	coin := row.Symbol + "  " + m.styles.muted.Render(truncate(row.Name, columns[1].width-len(row.Symbol)-2))
	cells := []string{
		m.styles.muted.Render(pad(row.Rank, columns[0])),
		pad(coin, columns[1]),
		m.styles.cell.Render(pad(row.Price, columns[2])),
		m.styles.change(row.Signal).Render(pad(row.Change, columns[3])),
		m.styles.cell.Render(pad(row.Volume, columns[4])),
		m.styles.cell.Render(pad(row.MarketCap, columns[5])),
	}
	return strings.Join(cells, " ")
}

func (m Model) footerView() string {
	var b strings.Builder
	year := m.now().Year()
	owner := m.owner
	if owner == "" {
		owner = "Coin Tracker"
	}
	b.WriteString(m.styles.footer.Render(fmt.Sprintf("Copyright © %s %d. Data obtained from CoinGecko. %s",
		owner, year, render.UpdatedAgo(m.table.UpdatedAt(), m.now()))))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.styles.status.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.muted.Render("/ search  ←/→ page  g/G first/last  s rows  t theme  r refresh  q quit"))
	return b.String()
}
