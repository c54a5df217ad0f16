package render

import "strings"

// Mode is the light/dark theme selection.
type Mode string

const (
	ModeDark  Mode = "dark"
	ModeLight Mode = "light"
)

// ParseMode maps a stored preference to a Mode, defaulting to dark.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeLight)) {
		return ModeLight
	}
	return ModeDark
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeLight {
		return ModeDark
	}
	return ModeLight
}

// Palette holds hex colors for one mode.
type Palette struct {
	Mode       Mode   `json:"mode"`
	Up         string `json:"up"`
	Down       string `json:"down"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Text       string `json:"text"`
	Muted      string `json:"muted"`
	Accent     string `json:"accent"`
	Border     string `json:"border"`
}

var (
	darkPalette = Palette{
		Mode:       ModeDark,
		Up:         "#2e7d32", // success.main
		Down:       "#d32f2f", // error.main
		Background: "#121212",
		Surface:    "#1e1e1e",
		Text:       "#ffffff",
		Muted:      "#9e9e9e",
		Accent:     "#90caf9",
		Border:     "#424242",
	}
	lightPalette = Palette{
		Mode:       ModeLight,
		Up:         "#1b5e20", // success.dark
		Down:       "#c62828", // error.dark
		Background: "#ffffff",
		Surface:    "#f5f5f5",
		Text:       "#212121",
		Muted:      "#757575",
		Accent:     "#1976d2",
		Border:     "#e0e0e0",
	}
)

// PaletteFor returns the palette of a mode.
func PaletteFor(m Mode) Palette {
	if m == ModeLight {
		return lightPalette
	}
	return darkPalette
}

// SignalColor returns the color for a change signal; SignalNone uses Muted.
func (p Palette) SignalColor(s Signal) string {
	switch s {
	case SignalUp:
		return p.Up
	case SignalDown:
		return p.Down
	default:
		return p.Muted
	}
}
