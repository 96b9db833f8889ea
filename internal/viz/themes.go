package viz

import (
	"image/color"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a colour scheme for the live view. Bodies cycle through the
// Bodies palette by handle.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Graph   lipgloss.Color
	Running lipgloss.Color
	Paused  lipgloss.Color
	Faulted lipgloss.Color
	Bodies  []lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:    "cyberpunk",
		Title:   lipgloss.Color("#00ffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		Graph:   lipgloss.Color("#ff00ff"),
		Running: lipgloss.Color("#00ff88"),
		Paused:  lipgloss.Color("#ffaa00"),
		Faulted: lipgloss.Color("#ff4444"),
		Bodies: []lipgloss.Color{
			"#ff00ff", "#00ffff", "#ffff00", "#ff8800", "#88ff88", "#8888ff",
		},
	}

	ThemeRetroGreen = Theme{
		Name:    "retro",
		Title:   lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Graph:   lipgloss.Color("#00cc00"),
		Running: lipgloss.Color("#88ff88"),
		Paused:  lipgloss.Color("#ffff00"),
		Faulted: lipgloss.Color("#ff0000"),
		Bodies: []lipgloss.Color{
			"#00ff00", "#88ff88", "#00cc00", "#ccffcc",
		},
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Title:   lipgloss.Color("#00a8cc"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Graph:   lipgloss.Color("#0077be"),
		Running: lipgloss.Color("#00ff88"),
		Paused:  lipgloss.Color("#ffcc00"),
		Faulted: lipgloss.Color("#ff4444"),
		Bodies: []lipgloss.Color{
			"#ffd700", "#00a8cc", "#e0f0ff", "#00ff88", "#0077be",
		},
	}

	ThemeSunset = Theme{
		Name:    "sunset",
		Title:   lipgloss.Color("#ff6b6b"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Graph:   lipgloss.Color("#feca57"),
		Running: lipgloss.Color("#5fd068"),
		Paused:  lipgloss.Color("#ffc048"),
		Faulted: lipgloss.Color("#ff4757"),
		Bodies: []lipgloss.Color{
			"#feca57", "#ff6b6b", "#ff9ff3", "#fff5f5",
		},
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after name, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// BodyColor is the RGBA colour of body i in the palette.
func (t Theme) BodyColor(i int) color.RGBA {
	if len(t.Bodies) == 0 {
		return color.RGBA{255, 255, 255, 255}
	}
	return hexToRGBA(string(t.Bodies[i%len(t.Bodies)]))
}
