package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Background(lipgloss.Color("#333333")).
			Bold(true).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// LogMsg carries a new rendered line into the TUI.
type LogMsg struct {
	Rendered string
}

// ErrMsg carries a watch or read error into the TUI.
type ErrMsg struct {
	Err error
}

// ContentMsg carries tailed content of one file. Lines is the rendered
// content with its prefix; Continuation is the same content without it, used
// when the file's previous row was left unterminated. Open reports that the
// last line has no trailing newline yet.
type ContentMsg struct {
	Name         string
	Lines        []string
	Continuation []string
	Open         bool
}

// TrackedMsg updates the number of files being tailed.
type TrackedMsg struct {
	Count int
}

// maxLines bounds the scrollback; older lines are discarded first.
const maxLines = 10000

// Model is the interactive view over tailed output.
type Model struct {
	width  int
	height int
	ready  bool

	// Scrollback of rendered lines.
	lines []string

	// Virtual scrolling state.
	offset     int  // index of the first visible line
	autoScroll bool // stick to bottom when new lines arrive

	// Name of the file whose partial line is the last row, if any.
	openRow string

	// Status bar info.
	dir     string
	tracked int
}

// NewModel creates a model for the watched directory dir with tracked
// files already registered.
func NewModel(dir string, tracked int) Model {
	return Model{
		autoScroll: true,
		dir:        dir,
		tracked:    tracked,
	}
}

// viewHeight returns the number of lines available for log display
// (total height minus title bar and status bar).
func (m Model) viewHeight() int {
	// 1 line title + 1 blank + 1 status bar = 3 overhead lines
	h := m.height - 3
	if h < 1 {
		return 1
	}
	return h
}

// maxOffset returns the maximum valid scroll offset.
func (m Model) maxOffset() int {
	max := len(m.lines) - m.viewHeight()
	if max < 0 {
		return 0
	}
	return max
}

// clampOffset ensures offset is within valid bounds.
func (m *Model) clampOffset() {
	if m.offset < 0 {
		m.offset = 0
	}
	if max := m.maxOffset(); m.offset > max {
		m.offset = max
	}
}

// isAtBottom returns true if the viewport is scrolled to the bottom.
func (m Model) isAtBottom() bool {
	return m.offset >= m.maxOffset()
}

// scrollKeys maps relative scroll keys to line deltas for the current height.
func (m Model) scrollKeys() map[string]int {
	page, half := m.viewHeight(), m.viewHeight()/2
	return map[string]int{
		"j": 1, "down": 1,
		"k": -1, "up": -1,
		"f": page, "pgdown": page, "ctrl+f": page,
		"b": -page, "pgup": -page, "ctrl+b": -page,
		"d": half, "ctrl+d": half,
		"u": -half, "ctrl+u": -half,
	}
}

// scrollBy moves the viewport by delta lines. Reaching the bottom while
// scrolling down re-enables follow mode.
func (m *Model) scrollBy(delta int) {
	m.autoScroll = false
	m.offset += delta
	m.clampOffset()
	if delta > 0 && m.isAtBottom() {
		m.autoScroll = true
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g", "home":
			m.autoScroll = false
			m.offset = 0
		case "G", "end":
			m.offset = m.maxOffset()
			m.autoScroll = true
		default:
			if delta, ok := m.scrollKeys()[key]; ok {
				m.scrollBy(delta)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		if m.autoScroll {
			m.offset = m.maxOffset()
		}
		m.clampOffset()

	case LogMsg:
		m.appendLines(msg.Rendered)

	case ContentMsg:
		m.appendContent(msg)

	case ErrMsg:
		// Show error as a log line.
		m.appendLines(errorStyle.Render(fmt.Sprintf("ERROR: %v", msg.Err)))

	case TrackedMsg:
		m.tracked = msg.Count
	}
	return m, nil
}

// appendLines adds lines to the scrollback, trimming the oldest ones past
// maxLines while keeping a scrolled-up viewport on the same content.
func (m *Model) appendLines(lines ...string) {
	m.openRow = ""
	m.lines = append(m.lines, lines...)
	if over := len(m.lines) - maxLines; over > 0 {
		m.lines = append([]string(nil), m.lines[over:]...)
		if !m.autoScroll {
			m.offset -= over
		}
	}
	if m.autoScroll {
		m.offset = m.maxOffset()
	}
	m.clampOffset()
}

// appendContent adds tailed content, joining it onto the last row when that
// row is an unterminated line of the same file.
func (m *Model) appendContent(msg ContentMsg) {
	if m.openRow != "" && m.openRow == msg.Name && len(m.lines) > 0 && len(msg.Continuation) > 0 {
		m.lines[len(m.lines)-1] += msg.Continuation[0]
		m.appendLines(msg.Continuation[1:]...)
	} else {
		m.appendLines(msg.Lines...)
	}
	if msg.Open {
		m.openRow = msg.Name
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder

	// Title bar.
	title := titleStyle.Render("logtail")
	b.WriteString(title)
	b.WriteByte('\n')

	// Only the visible slice of the scrollback is rendered.
	vh := m.viewHeight()
	if len(m.lines) == 0 {
		// Empty state.
		for i := 0; i < vh; i++ {
			if i == vh/2-1 {
				b.WriteString("  No new log content yet.")
			} else if i == vh/2 {
				b.WriteString("  Waiting for changes...")
			}
			b.WriteByte('\n')
		}
	} else {
		end := m.offset + vh
		if end > len(m.lines) {
			end = len(m.lines)
		}
		start := m.offset
		if start < 0 {
			start = 0
		}
		// Render visible lines.
		rendered := 0
		for i := start; i < end; i++ {
			b.WriteString(m.lines[i])
			b.WriteByte('\n')
			rendered++
		}
		// Pad remaining lines.
		for i := rendered; i < vh; i++ {
			b.WriteByte('\n')
		}
	}

	// Status bar.
	total := len(m.lines)
	scrollInfo := "bottom"
	if total > 0 && !m.isAtBottom() {
		pct := 0
		if m.maxOffset() > 0 {
			pct = m.offset * 100 / m.maxOffset()
		}
		scrollInfo = fmt.Sprintf("%d%%", pct)
	}

	left := statusKeyStyle.Render("Lines:") + statusBarStyle.Render(fmt.Sprintf(" %d ", total))
	files := statusKeyStyle.Render("Files:") + statusBarStyle.Render(fmt.Sprintf(" %d ", m.tracked))
	dirInfo := statusKeyStyle.Render("Dir:") + statusBarStyle.Render(fmt.Sprintf(" %s ", m.dir))
	right := statusKeyStyle.Render("Pos:") + statusBarStyle.Render(fmt.Sprintf(" %s ", scrollInfo))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(files) - lipgloss.Width(dirInfo) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	statusLine := left + files + dirInfo + strings.Repeat(" ", gap) + right
	// Fill background.
	statusLine = statusBarStyle.Render(statusLine)
	b.WriteString(statusLine)

	return b.String()
}
