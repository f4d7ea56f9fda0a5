// Package watch renders a live terminal view of a verification run: the
// latest observation, convergence percentage, and a bar chart of recent
// observed counts. The view closes itself once the run reaches a terminal
// outcome.
package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/sluice/internal/poller"
)

// ObservationMsg carries one poller tick into the view.
type ObservationMsg poller.Observation

// DoneMsg carries the terminal result into the view.
type DoneMsg poller.Result

type spinnerTickMsg struct{}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	passStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Background(lipgloss.Color("39"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

const (
	chartHeight = 6
	historyCap  = 40
)

// Model is the bubbletea model for one watched run.
type Model struct {
	stream   string
	expected int64
	timeout  time.Duration

	latest  poller.Observation
	haveObs bool
	history []int64

	done   bool
	result poller.Result

	bar   progress.Model
	width int
	frame int
}

// New creates the view for one run.
func New(stream string, expected int64, timeout time.Duration) Model {
	return Model{
		stream:   stream,
		expected: expected,
		timeout:  timeout,
		bar:      progress.New(progress.WithDefaultGradient()),
		width:    80,
	}
}

func (m Model) Init() tea.Cmd {
	return spinnerTick()
}

func spinnerTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(_ time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case spinnerTickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, spinnerTick()

	case ObservationMsg:
		m.latest = poller.Observation(msg)
		m.haveObs = true
		m.history = append(m.history, m.latest.Observed)
		if len(m.history) > historyCap {
			m.history = m.history[len(m.history)-historyCap:]
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = poller.Result(msg)
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Ingestion verification") + "\n")
	b.WriteString(labelStyle.Render("Data stream: ") + m.stream + "\n\n")

	switch {
	case m.done:
		b.WriteString(m.renderOutcome() + "\n")
	case m.haveObs:
		b.WriteString(m.renderProgress() + "\n")
	default:
		b.WriteString(m.spinner() + " waiting for the first observation...\n")
	}

	if len(m.history) > 0 {
		b.WriteString("\n" + m.renderChart() + "\n")
	}

	if !m.done {
		b.WriteString("\n" + labelStyle.Render("press q to detach (the run keeps going)"))
	}

	return panelStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) spinner() string {
	return spinnerChars[m.frame%len(spinnerChars)]
}

func (m Model) renderProgress() string {
	o := m.latest

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d / %d records (%.1f%%)\n",
		m.spinner(), o.Observed, m.expected, percent(o.Observed, m.expected))
	b.WriteString(m.bar.ViewAs(percent(o.Observed, m.expected)/100) + "\n")
	fmt.Fprintf(&b, "%s tick %d, elapsed %s of %s",
		labelStyle.Render("        "), o.Tick+1, o.Elapsed.Round(time.Second), m.timeout)

	if o.NotFound {
		b.WriteString("\n" + labelStyle.Render("data stream not created yet"))
	}
	if o.Err != nil {
		b.WriteString("\n" + errorStyle.Render("backend: "+o.Err.Error()))
	}
	return b.String()
}

func (m Model) renderOutcome() string {
	if m.result.Outcome == poller.OutcomeConverged {
		return passStyle.Render("PASSED") +
			fmt.Sprintf(" converged at %d / %d records in %s",
				m.result.Observed, m.result.Expected, m.result.Elapsed.Round(time.Second))
	}
	out := failStyle.Render("FAILED") +
		fmt.Sprintf(" %d / %d records after %s",
			m.result.Observed, m.result.Expected, m.result.Elapsed.Round(time.Second))
	if m.result.LastError != "" {
		out += "\n" + errorStyle.Render("last backend error: "+m.result.LastError)
	}
	return out
}

// renderChart draws recent observed counts as a bar chart, newest on the
// right.
func (m Model) renderChart() string {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	maxBars := chartWidth / 2

	points := m.history
	if len(points) > maxBars {
		points = points[len(points)-maxBars:]
	}

	bc := barchart.New(chartWidth, chartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for _, v := range points {
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: "observed", Value: float64(v), Style: barStyle},
			},
		})
	}
	bc.Draw()

	return labelStyle.Render("observed per tick") + "\n" + bc.View()
}

func percent(observed, expected int64) float64 {
	if expected <= 0 {
		return 0
	}
	p := float64(observed) / float64(expected) * 100
	if p > 100 {
		p = 100
	}
	return p
}
