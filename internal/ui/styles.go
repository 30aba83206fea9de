// Package ui holds the lipgloss palettes and styles of the VoiceText TUI.
package ui

import "github.com/charmbracelet/lipgloss"

// Palette is a set of colors for one theme.
type Palette struct {
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Faint   lipgloss.Color
	Red     lipgloss.Color
	Green   lipgloss.Color
	Yellow  lipgloss.Color
	Blue    lipgloss.Color
	Magenta lipgloss.Color
}

// Colors used by the two themes.
var (
	DarkPalette = Palette{
		Accent:  lipgloss.Color("#00FFFF"),
		Text:    lipgloss.Color("#FFFFFF"),
		Muted:   lipgloss.Color("#888888"),
		Faint:   lipgloss.Color("#444444"),
		Red:     lipgloss.Color("#FF5555"),
		Green:   lipgloss.Color("#50FA7B"),
		Yellow:  lipgloss.Color("#F1FA8C"),
		Blue:    lipgloss.Color("#8BE9FD"),
		Magenta: lipgloss.Color("#FF79C6"),
	}

	LightPalette = Palette{
		Accent:  lipgloss.Color("#005F87"),
		Text:    lipgloss.Color("#1C1C1C"),
		Muted:   lipgloss.Color("#666666"),
		Faint:   lipgloss.Color("#BBBBBB"),
		Red:     lipgloss.Color("#C00000"),
		Green:   lipgloss.Color("#007A00"),
		Yellow:  lipgloss.Color("#9A6700"),
		Blue:    lipgloss.Color("#0057AE"),
		Magenta: lipgloss.Color("#A0007A"),
	}
)

// Theme is the full set of styles used by the view.
type Theme struct {
	Dark bool

	Title     lipgloss.Style
	Dim       lipgloss.Style
	Divider   lipgloss.Style
	Final     lipgloss.Style
	Interim   lipgloss.Style
	Cursor    lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	FooterKey lipgloss.Style
	FootDesc  lipgloss.Style
	Disabled  lipgloss.Style

	// Status line tones.
	ToneIdle      lipgloss.Style
	ToneRecording lipgloss.Style
	TonePaused    lipgloss.Style
	ToneError     lipgloss.Style
	ToneInfo      lipgloss.Style
	ToneSuccess   lipgloss.Style

	// Confidence bands.
	BandGood lipgloss.Style
	BandFair lipgloss.Style
	BandPoor lipgloss.Style

	// Level meter cells.
	LevelLow  lipgloss.Style
	LevelHigh lipgloss.Style
	LevelOff  lipgloss.Style
}

// NewTheme builds the dark or light theme.
func NewTheme(dark bool) Theme {
	p := LightPalette
	if dark {
		p = DarkPalette
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return Theme{
		Dark: dark,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent),
		Dim:     fg(p.Muted),
		Divider: fg(p.Faint),
		Final:   fg(p.Text),
		Interim: fg(p.Yellow).
			Italic(true),
		Cursor: fg(p.Accent).
			Bold(true),
		Label: fg(p.Muted),
		Value: fg(p.Text).
			Bold(true),
		FooterKey: fg(p.Yellow).
			Bold(true),
		FootDesc: fg(p.Muted),
		Disabled: fg(p.Faint),

		ToneIdle: fg(p.Muted),
		ToneRecording: fg(p.Red).
			Bold(true),
		TonePaused: fg(p.Yellow).
			Bold(true),
		ToneError: fg(p.Red),
		ToneInfo:  fg(p.Blue),
		ToneSuccess: fg(p.Green).
			Bold(true),

		BandGood: fg(p.Green),
		BandFair: fg(p.Yellow),
		BandPoor: fg(p.Red),

		LevelLow:  fg(p.Green),
		LevelHigh: fg(p.Magenta),
		LevelOff:  fg(p.Faint),
	}
}
