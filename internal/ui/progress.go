package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"flowsema/internal/driver"
)

const (
	labelWidth   = 12
	minNameWidth = 20
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	statusStyles = map[driver.Status]lipgloss.Style{
		driver.StatusQueued: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		driver.StatusDone:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		driver.StatusError:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// fixtureRow is one line of the board. label shows the running stage while
// the fixture is in flight and the final status afterwards.
type fixtureRow struct {
	path     string
	status   driver.Status
	label    string
	finished int
}

func (r fixtureRow) settled() bool {
	return r.status == driver.StatusDone || r.status == driver.StatusError
}

func (r fixtureRow) weight() float64 {
	if r.settled() {
		return 1
	}
	// the final event counts as one more step
	return float64(r.finished) / float64(len(driver.Stages)+1)
}

type (
	eventMsg  driver.Event
	closedMsg struct{}
)

type board struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []fixtureRow
	byPath  map[string]int
	width   int
	failing int
	closed  bool
}

// NewProgressModel returns a Bubble Tea model that renders per-fixture
// analysis progress. The model quits once events is closed.
func NewProgressModel(title string, files []string, events <-chan driver.Event) tea.Model {
	b := &board{
		title:   title,
		events:  events,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(stageStyle)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		rows:    make([]fixtureRow, len(files)),
		byPath:  make(map[string]int, len(files)),
		width:   80,
	}
	for i, file := range files {
		b.rows[i] = fixtureRow{path: file, status: driver.StatusQueued, label: string(driver.StatusQueued)}
		b.byPath[file] = i
	}
	return b
}

func (b *board) Init() tea.Cmd {
	return tea.Batch(b.spinner.Tick, b.next())
}

func (b *board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return b, tea.Batch(b.apply(driver.Event(msg)), b.next())
	case closedMsg:
		b.closed = true
		return b, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return b, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			b.width = msg.Width
			b.bar.Width = msg.Width - 4
		}
	case spinner.TickMsg:
		if !b.closed {
			var cmd tea.Cmd
			b.spinner, cmd = b.spinner.Update(msg)
			return b, cmd
		}
	case progress.FrameMsg:
		next, cmd := b.bar.Update(msg)
		b.bar = next.(progress.Model)
		return b, cmd
	}
	return b, nil
}

func (b *board) View() string {
	if len(b.rows) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(b.header()))
	sb.WriteString("\n\n")

	nameWidth := max(b.width-labelWidth-4, minNameWidth)
	for _, row := range b.rows {
		label := rowStyle(row).Render(fmt.Sprintf("%*s", labelWidth, row.label))
		fmt.Fprintf(&sb, "  %s %s\n", label, truncate(row.path, nameWidth))
	}

	sb.WriteString("\n")
	if b.closed {
		sb.WriteString(b.bar.ViewAs(1))
	} else {
		sb.WriteString(b.bar.View())
	}
	sb.WriteString("\n")
	return sb.String()
}

func (b *board) header() string {
	text := fmt.Sprintf("%s (%d fixtures)", b.title, len(b.rows))
	if b.failing > 0 {
		text += fmt.Sprintf(", %d failing", b.failing)
	}
	if b.closed {
		return "done: " + text
	}
	return b.spinner.View() + " " + text
}

// next blocks on the event channel inside a command goroutine.
func (b *board) next() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-b.events; ok {
			return eventMsg(ev)
		}
		return closedMsg{}
	}
}

func (b *board) apply(ev driver.Event) tea.Cmd {
	idx, ok := b.byPath[ev.File]
	if !ok {
		return nil
	}
	row := &b.rows[idx]
	if row.settled() {
		return nil
	}
	row.status = ev.Status
	switch ev.Status {
	case driver.StatusWorking:
		row.label = string(ev.Stage)
		if ev.Elapsed > 0 {
			row.finished = min(row.finished+1, len(driver.Stages))
		}
	case driver.StatusError:
		b.failing++
		row.label = string(ev.Status)
	default:
		row.label = string(ev.Status)
	}
	return b.bar.SetPercent(b.fraction())
}

func (b *board) fraction() float64 {
	var sum float64
	for _, row := range b.rows {
		sum += row.weight()
	}
	return sum / float64(len(b.rows))
}

func rowStyle(row fixtureRow) lipgloss.Style {
	if style, ok := statusStyles[row.status]; ok {
		return style
	}
	return stageStyle
}

func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	default:
		return runewidth.Truncate(value, width, "...")
	}
}
