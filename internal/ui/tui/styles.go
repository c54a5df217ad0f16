package tui

import (
	"github.com/charmbracelet/lipgloss"

	"coin_tracker/internal/render"
)

type styles struct {
	palette render.Palette

	title    lipgloss.Style
	subtitle lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	muted    lipgloss.Style
	up       lipgloss.Style
	down     lipgloss.Style
	search   lipgloss.Style
	prompt   lipgloss.Style
	status   lipgloss.Style
	footer   lipgloss.Style
}

func newStyles(p render.Palette) styles {
	fg := lipgloss.Color(p.Text)
	return styles{
		palette:  p,
		title:    lipgloss.NewStyle().Bold(true).Foreground(fg),
		subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		header: lipgloss.NewStyle().Bold(true).Foreground(fg).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).
			BorderForeground(lipgloss.Color(p.Border)),
		cell:   lipgloss.NewStyle().Foreground(fg),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		up:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Up)),
		down:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Down)),
		search: lipgloss.NewStyle().Foreground(fg).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.Border)).Padding(0, 1),
		prompt: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Down)),
		footer: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
	}
}

func (s styles) change(sig render.Signal) lipgloss.Style {
	switch sig {
	case render.SignalUp:
		return s.up
	case render.SignalDown:
		return s.down
	default:
		return s.muted
	}
}
