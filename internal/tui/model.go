package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nao1215/deepvision/internal/model"
)

// maxActiveRows caps the per-file lines shown below the overall bar.
const maxActiveRows = 8

// Model is the bubbletea progress view of a batch analysis. It consumes
// pipeline events until the channel is closed.
type Model struct {
	events      <-chan model.Event
	started     time.Time
	width       int
	files       int
	finished    int
	failed      int
	suspicious  int
	runs        map[string]*runState
	order       []string
	quitting    bool
	interrupted bool
}

type runState struct {
	filename string
	done     int
	total    int
	last     string
}

type doneMsg struct{}

type eventMsg model.Event

// NewModel creates a progress view for files uploads.
func NewModel(events <-chan model.Event, files int) Model {
	return Model{
		events:  events,
		started: time.Now(),
		files:   files,
		runs:    make(map[string]*runState),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return listenForEvents(m.events)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m = m.apply(model.Event(msg))
		return m, listenForEvents(m.events)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) apply(ev model.Event) Model {
	switch ev.Type {
	case model.EventRunStarted:
		if _, ok := m.runs[ev.RunID]; !ok {
			m.order = append(m.order, ev.RunID)
		}
		m.runs[ev.RunID] = &runState{filename: ev.Filename, total: ev.Total}
	case model.EventUnitFinished:
		if r, ok := m.runs[ev.RunID]; ok {
			r.done = ev.Done
			r.total = ev.Total
			r.last = ev.Unit + " " + ev.Status
		}
	case model.EventRunCompleted:
		m.finished++
		if ev.Verdict == model.VerdictSuspicious.String() {
			m.suspicious++
		}
		m = m.forget(ev.RunID)
	case model.EventRunFailed:
		m.finished++
		m.failed++
		m = m.forget(ev.RunID)
	}
	return m
}

func (m Model) forget(runID string) Model {
	delete(m.runs, runID)
	order := make([]string, 0, len(m.order))
	for _, id := range m.order {
		if id != runID {
			order = append(order, id)
		}
	}
	m.order = order
	return m
}

// Interrupted reports whether the user pressed ctrl+c.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// Finished returns the number of completed or failed files.
func (m Model) Finished() int {
	return m.finished
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)
	lines := []string{
		titleStyle.Render("deepvision"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.finished, m.files)) +
			dimStyle.Render(fmt.Sprintf("  failed:%d", m.failed)) +
			dangerStyle.Render(fmt.Sprintf("  suspicious:%d", m.suspicious)),
		barStyle.Render(renderBar(barWidth, ratio(m.finished, m.files))),
	}

	for i, id := range m.order {
		if i == maxActiveRows {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("  ... %d more", len(m.order)-maxActiveRows)))
			break
		}
		r := m.runs[id]
		line := fmt.Sprintf("  %s %s %d/%d", r.filename, renderBar(barWidth/2, ratio(r.done, r.total)), r.done, r.total)
		if r.last != "" {
			line += dimStyle.Render("  " + r.last)
		}
		lines = append(lines, labelStyle.Render(line))
	}

	lines = append(lines, dimStyle.Render(fmt.Sprintf("Elapsed: %s  (ctrl+c to cancel)", elapsed)))
	return strings.Join(lines, "\n")
}

func listenForEvents(events <-chan model.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(float64(n)/float64(total), 1)
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
