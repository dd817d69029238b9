package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"drumpad/pad"
)

// TUI message types
type PadChangedMsg struct{ ID string }
type StatusMsg struct{ Text string }
type tickMsg time.Time

const (
	gridColumns = 4
	cellWidth   = 16 // inner width, padding included
	cellLines   = 4
	headerLines = 2
	flashFrames = 3
	gainStep    = 0.01
	gainBigStep = 0.1
)

type tuiModel struct {
	board  *pad.Board
	typing bool

	cursor        int
	frame         int
	flash         map[string]int
	hits          map[string]int
	status        string
	width, height int
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	cellStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1).Width(cellWidth).Height(cellLines)
	selectedStyle = cellStyle.BorderForeground(lipgloss.Color("212"))
	flashStyle    = lipgloss.NewStyle().Background(lipgloss.Color("57"))
	idStyle       = lipgloss.NewStyle().Bold(true)
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	stateStyles = map[pad.State]lipgloss.Style{
		pad.Idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		pad.Loading: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		pad.Ready:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		pad.Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func newTUIModel(b *pad.Board, typing bool, status string) tuiModel {
	return tuiModel{
		board:  b,
		typing: typing,
		flash:  make(map[string]int),
		hits:   make(map[string]int),
		status: status,
	}
}

func NewTUIProgram(b *pad.Board, typing bool, status string) *tea.Program {
	m := newTUIModel(b, typing, status)
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) selected() *pad.Pad {
	pads := m.board.Pads()
	if m.cursor < 0 || m.cursor >= len(pads) {
		return nil
	}
	return pads[m.cursor]
}

func (m tuiModel) moveCursor(delta int) tuiModel {
	n := len(m.board.Pads())
	if n == 0 {
		return m
	}
	m.cursor = ((m.cursor+delta)%n + n) % n
	return m
}

func (m tuiModel) nudgeGain(delta float64) {
	if p := m.selected(); p != nil {
		p.SetGain(p.Gain() + delta)
	}
}

// padAt maps a terminal cell to the pad drawn there, or -1.
func padAt(x, y, n int) int {
	if y < headerLines || x < 0 {
		return -1
	}
	col := x / (cellWidth + 2)
	row := (y - headerLines) / (cellLines + 2)
	if col >= gridColumns {
		return -1
	}
	i := row*gridColumns + col
	if i >= n {
		return -1
	}
	return i
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "left", "shift+tab":
			m = m.moveCursor(-1)
		case "right", "tab":
			m = m.moveCursor(1)
		case "up":
			m.nudgeGain(gainStep)
		case "down":
			m.nudgeGain(-gainStep)
		case "shift+up":
			m.nudgeGain(gainBigStep)
		case "shift+down":
			m.nudgeGain(-gainBigStep)
		case "enter":
			if p := m.selected(); p != nil {
				p.Press()
			}
		default:
			if m.typing && (msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace) {
				runes := msg.Runes
				if msg.Type == tea.KeySpace && len(runes) == 0 {
					runes = []rune{' '}
				}
				for _, r := range runes {
					m.board.Surface().DispatchRune(r)
				}
			}
		}
		m = m.refreshHits()

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			pads := m.board.Pads()
			if i := padAt(msg.X, msg.Y, len(pads)); i >= 0 {
				m.cursor = i
				pads[i].Press()
				m = m.refreshHits()
			}
		}

	case tickMsg:
		m.frame++
		for id, n := range m.flash {
			if n <= 1 {
				delete(m.flash, id)
			} else {
				m.flash[id] = n - 1
			}
		}
		m = m.refreshHits()
		return m, tuiTick()

	case PadChangedMsg:
		// View reads snapshots from the board; this only forces a redraw.

	case StatusMsg:
		m.status = msg.Text
	}
	return m, nil
}

// refreshHits starts a flash on every pad that was hit since last look,
// however it was triggered.
func (m tuiModel) refreshHits() tuiModel {
	for _, p := range m.board.Pads() {
		n := p.Hits()
		if n > m.hits[p.ID()] {
			m.flash[p.ID()] = flashFrames
		}
		m.hits[p.ID()] = n
	}
	return m
}

func gainBar(g float64, width int) string {
	filled := int(g*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (m tuiModel) renderCell(i int, s pad.Snapshot) string {
	key := s.Key
	if key == " " {
		key = "space"
	}
	state := s.State.String()
	if s.State == pad.Failed && s.Err != "" {
		state = s.Err
	}
	lines := []string{
		idStyle.Render(truncate(s.ID, cellWidth-2)),
		keyStyle.Render("key " + key),
		stateStyles[s.State].Render(truncate(state, cellWidth-2)),
		gainStyle.Render(gainBar(s.Gain, 9)) + fmt.Sprintf(" %.2f", s.Gain),
	}

	style := cellStyle
	if i == m.cursor {
		style = selectedStyle
	}
	if m.flash[s.ID] > 0 {
		style = style.Inherit(flashStyle)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m tuiModel) View() string {
	pads := m.board.Pads()

	var b strings.Builder
	header := titleStyle.Render("drumpad") + "  " + statusStyle.Render(m.status)
	if active := m.board.Active(); active > 0 {
		header += statusStyle.Render(fmt.Sprintf("  ♪ %d", active))
	}
	b.WriteString(header + "\n\n")

	var rows []string
	for start := 0; start < len(pads); start += gridColumns {
		end := min(start+gridColumns, len(pads))
		cells := make([]string, 0, gridColumns)
		for i := start; i < end; i++ {
			cells = append(cells, m.renderCell(i, pads[i].Snapshot()))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	b.WriteString("\n\n")

	help := "←/→ select  ↑/↓ gain (shift ×10)  enter/click play  ctrl+c quit"
	if m.typing {
		help = "pad keys play  " + help
	}
	b.WriteString(helpStyle.Render(help) + "\n")
	b.WriteString(helpStyle.Render("drumpad " + version))
	return b.String()
}

func currentTUI() *tea.Program {
	tuiMu.Lock()
	defer tuiMu.Unlock()
	return tuiProgram
}

func tuiSend(msg tea.Msg) {
	if p := currentTUI(); p != nil {
		// Send blocks until the program runs; callers may be ahead of it.
		go p.Send(msg)
	}
}

// tuiSink forwards board events into the running program.
type tuiSink struct {
	mu     sync.Mutex
	status string
}

func (s *tuiSink) Attach(b *pad.Board, typing bool) {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()

	tuiMu.Lock()
	tuiProgram = NewTUIProgram(b, typing, status)
	tuiMu.Unlock()
}

func (s *tuiSink) PadChanged(snap pad.Snapshot) {
	tuiSend(PadChangedMsg{ID: snap.ID})
}

func (s *tuiSink) Status(text string) {
	s.mu.Lock()
	s.status = text
	s.mu.Unlock()
	tuiSend(StatusMsg{Text: text})
}
