package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Restarter starts a new deal. *game.Session satisfies it.
type Restarter interface {
	Restart()
}

// Model is the Bubble Tea model for the memory game
type Model struct {
	board   *Board
	game    Restarter
	logger  *log.Logger
	loadErr error

	keys   keyMap
	help   help.Model
	cursor int

	width    int
	height   int
	quitting bool
}

// boardChangedMsg is sent whenever the board signals a change
type boardChangedMsg struct{}

// NewModel creates a model drawing board and restarting through game
func NewModel(board *Board, game Restarter, logger *log.Logger) *Model {
	return &Model{
		board:  board,
		game:   game,
		logger: logger.WithPrefix("tui"),
		keys:   keys,
		help:   help.New(),
	}
}

// NewFailedModel creates an inert model that only reports why the game could
// not start
func NewFailedModel(err error, logger *log.Logger) *Model {
	return &Model{
		loadErr: err,
		logger:  logger.WithPrefix("tui"),
		keys:    keys,
		help:    help.New(),
	}
}

// Run drives the model until the user quits or ctx is cancelled
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts listening for board changes
func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

// waitForChange turns the next board change into a message
func (m *Model) waitForChange() tea.Cmd {
	if m.board == nil {
		return nil
	}
	changes := m.board.Changes()
	return func() tea.Msg {
		<-changes
		return boardChangedMsg{}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case boardChangedMsg:
		return m, m.waitForChange()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

		if m.board == nil {
			return m, nil
		}

		n := len(m.board.state().tiles)
		cols := columns(n)

		switch {
		case key.Matches(msg, m.keys.Left):
			if m.cursor%cols > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Right):
			if m.cursor%cols < cols-1 && m.cursor+1 < n {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor-cols >= 0 {
				m.cursor -= cols
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor+cols < n {
				m.cursor += cols
			}
		case key.Matches(msg, m.keys.Flip):
			m.logger.Debug("Flipping tile", "tile", m.cursor)
			m.board.Activate(m.cursor)
		case key.Matches(msg, m.keys.Restart):
			m.logger.Info("Restart requested")
			m.game.Restart()
			m.cursor = 0
		}
	}

	return m, nil
}

// columns picks a near-square grid width for n tiles
func columns(n int) int {
	if n <= 0 {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}

// View renders the game
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Memory Match"))
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(ErrorStyle.Render("Failed to start"))
		b.WriteString("\n")
		b.WriteString(m.loadErr.Error())
		b.WriteString("\n\n")
		b.WriteString(InfoStyle.Render("Check the card source and try again. Press q to quit."))
		b.WriteString("\n")
		return b.String()
	}

	st := m.board.state()
	b.WriteString(ScoreStyle.Render(fmt.Sprintf("Score: %d", st.score)))
	b.WriteString(InfoStyle.Render(fmt.Sprintf("   Pairs: %d/%d", st.matchedPairs(), len(st.tiles)/2)))
	b.WriteString("\n")

	b.WriteString(m.renderGrid(st))
	b.WriteString("\n")

	if st.complete() {
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("All pairs found in %d attempts! Press r to play again.", st.score)))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderGrid(st boardState) string {
	cols := columns(len(st.tiles))
	var rows []string
	for start := 0; start < len(st.tiles); start += cols {
		end := min(start+cols, len(st.tiles))
		cells := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cells = append(cells, renderTile(st.tiles[i], i == m.cursor))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderTile(v tileView, cursor bool) string {
	style := HiddenTileStyle
	label := "?"
	switch {
	case !v.interactive:
		style = MatchedTileStyle
		label = v.tile.Name()
	case v.revealed:
		style = RevealedTileStyle
		label = v.tile.Name()
	}
	if cursor {
		style = style.BorderStyle(lipgloss.ThickBorder()).BorderForeground(cursorColor)
	}
	if r := []rune(label); len(r) > tileWidth {
		label = string(r[:tileWidth-1]) + "…"
	}
	return style.Render(label)
}
