package tui

import "github.com/charmbracelet/lipgloss"

const tileWidth = 12

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	ScoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	tileBase = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Width(tileWidth).
			Align(lipgloss.Center)

	// face down
	HiddenTileStyle = tileBase.
			BorderForeground(lipgloss.Color("#626262")).
			Foreground(lipgloss.Color("#626262"))

	RevealedTileStyle = tileBase.
				BorderForeground(lipgloss.Color("#FFEAA7")).
				Foreground(lipgloss.Color("#FFEAA7")).
				Bold(true)

	MatchedTileStyle = tileBase.
				BorderForeground(lipgloss.Color("#04B575")).
				Foreground(lipgloss.Color("#04B575"))

	cursorColor = lipgloss.Color("#7D56F4")
)
