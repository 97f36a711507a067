package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/latsim/internal/experiment"
	"github.com/san-kum/latsim/internal/storage"
)

const liveHistory = 400

// ProgressMsg carries the master rank's state after a recorded step.
type ProgressMsg experiment.Progress

// DoneMsg ends the live view once the run has been stored or has failed.
type DoneMsg struct {
	Meta *storage.RunMetadata
	Err  error
}

// LiveModel is the bubbletea view of a running simulation: step progress,
// coverage history and the trajectory writer's buffer.
type LiveModel struct {
	title    string
	last     experiment.Progress
	coverage []float64
	done     bool
	err      error
	meta     *storage.RunMetadata
	cancel   func()
	width    int
}

// NewLiveModel builds the view. cancel is called when the user quits
// before the run finishes; it may be nil.
func NewLiveModel(title string, cancel func()) LiveModel {
	return LiveModel{
		title:    title,
		coverage: make([]float64, 0, liveHistory),
		cancel:   cancel,
		width:    40,
	}
}

func (m LiveModel) Init() tea.Cmd { return nil }

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if w := msg.Width - 24; w > 10 {
			m.width = min(w, 80)
		}
	case ProgressMsg:
		m.last = experiment.Progress(msg)
		if !msg.Done {
			m.coverage = append(m.coverage, msg.Coverage)
			if len(m.coverage) > liveHistory {
				m.coverage = m.coverage[len(m.coverage)-liveHistory:]
			}
		}
	case DoneMsg:
		m.done = true
		m.meta = msg.Meta
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Fraction is the share of requested steps taken so far.
func (m LiveModel) Fraction() float64 {
	if m.last.Steps <= 0 {
		return 0
	}
	return float64(m.last.Step) / float64(m.last.Steps)
}

func (m LiveModel) Err() error { return m.err }

func (m LiveModel) View() string {
	var b strings.Builder

	status := Subtle.Render("running")
	switch {
	case m.err != nil:
		status = StatusFailed.Render("failed")
	case m.done:
		status = StatusDone.Render("done")
	}
	title := m.title
	if m.last.RunID != "" {
		title = m.last.RunID
	}
	b.WriteString(Title.Render(title) + "  " + status + "\n\n")

	b.WriteString(ProgressBar(m.Fraction(), m.width))
	b.WriteString(fmt.Sprintf(" %d/%d\n\n", m.last.Step, m.last.Steps))

	rows := [][2]string{
		{"time", fmt.Sprintf("%.6g", m.last.Time)},
		{"coverage", fmt.Sprintf("%.4f", m.last.Coverage)},
		{"buffered", fmt.Sprintf("%d records", m.last.Pending)},
		{"written", fmt.Sprintf("%d records", m.last.Written)},
	}
	for _, r := range rows {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-12s", r[0])))
		b.WriteString(MetricValue.Render(r[1]))
		b.WriteString("\n")
	}

	if len(m.coverage) > 1 {
		b.WriteString("\n")
		b.WriteString(asciigraph.Plot(m.coverage,
			asciigraph.Height(6),
			asciigraph.Width(m.width),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(1),
			asciigraph.Caption("coverage"),
		))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}
	if !m.done {
		b.WriteString("\n" + Subtle.Render("q: stop run") + "\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}
