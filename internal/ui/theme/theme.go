// Package theme holds the colors and styles of the terminal screens.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette: ink on paper, with a single accent for the gaps.
var (
	Primary = lipgloss.Color("#2563EB") // Blue
	Gap     = lipgloss.Color("#F59E0B") // Amber
	Success = lipgloss.Color("#16A34A") // Green
	Error   = lipgloss.Color("#DC2626") // Red
	Text    = lipgloss.Color("#F1F5F9")
	TextDim = lipgloss.Color("#94A3B8")
	BgCard  = lipgloss.Color("#1E293B")
	Border  = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	// Prompt renders the gapped phrase.
	Prompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Text)

	Mask = lipgloss.NewStyle().
		Foreground(Gap).
		Bold(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

var (
	QuotaUsed = lipgloss.NewStyle().
			Background(Primary)

	QuotaFree = lipgloss.NewStyle().
			Background(Border)
)
