// Package ui provides the visual styling and the interactive screen of the
// soundtrip CLI. Two static palettes exist, light and dark, chosen by the
// persisted theme flag.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Light is the default.
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#fbf7f2") // warm paper
	LightForeground = lipgloss.Color("#2b2233") // plum ink
	LightPrimary    = lipgloss.Color("#7a3e65") // dusk plum
	LightAccent     = lipgloss.Color("#e07a3f") // lantern orange
	LightSecondary  = lipgloss.Color("#f1e7dc")
	LightMuted      = lipgloss.Color("#8a7f8e")
	LightBorder     = lipgloss.Color("#e2d6ca")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#17131c") // night
	DarkForeground = lipgloss.Color("#f2ece6")
	DarkPrimary    = lipgloss.Color("#f0a868") // lantern (flipped)
	DarkAccent     = lipgloss.Color("#c48bb3") // dusk plum, lifted
	DarkSecondary  = lipgloss.Color("#231d2b")
	DarkMuted      = lipgloss.Color("#8e8597")
	DarkBorder     = lipgloss.Color("#3a3145")
	DarkCard       = lipgloss.Color("#201a27")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#6fae5b")
	Warning     = lipgloss.Color("#ffc107")
	Info        = lipgloss.Color("#4a90c2")
)

// Theme holds one color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// ThemeFor selects the palette for the persisted flag. There is no terminal
// detection.
func ThemeFor(dark bool) Theme {
	if dark {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	App     lipgloss.Style
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Panel   lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Form
	Label        lipgloss.Style
	FocusedLabel lipgloss.Style
	Input        lipgloss.Style
	Button       lipgloss.Style

	// Story
	ChapterHeading lipgloss.Style
	ChapterText    lipgloss.Style
	Lyrics         lipgloss.Style
	AudioLink      lipgloss.Style
	Badge          lipgloss.Style

	// History list
	HistoryItem     lipgloss.Style
	HistorySelected lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Spinner lipgloss.Style
	Divider lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		App: lipgloss.NewStyle().
			Background(theme.Background).
			Foreground(theme.Foreground),

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(theme.Background).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Width(12),

		FocusedLabel: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true).
			Width(12),

		Input: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Button: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(theme.Background).
			Padding(0, 2).
			Bold(true),

		ChapterHeading: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		ChapterText: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2),

		Lyrics: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Italic(true).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Accent),

		AudioLink: lipgloss.NewStyle().
			Foreground(Info).
			Underline(true),

		Badge: lipgloss.NewStyle().
			Background(theme.Secondary).
			Foreground(theme.Primary).
			Padding(0, 1),

		HistoryItem: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2),

		HistorySelected: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true).
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Accent),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),
	}
}

// StylesFor is NewStyles(ThemeFor(dark)).
func StylesFor(dark bool) Styles {
	return NewStyles(ThemeFor(dark))
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 40
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
