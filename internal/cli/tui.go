package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/livegraph/pkg/manager"
)

// liveRefresh is how often the live view polls the manager.
const liveRefresh = 100 * time.Millisecond

var (
	liveLabelStyle = lipgloss.NewStyle().Foreground(colorGray)
	liveDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// LiveModel - Live view of the background layout task
// =============================================================================

// liveStatus is one reading of the manager state.
type liveStatus struct {
	Algorithm  string
	State      string
	Active     bool
	Iterations int
	Cooling    float64
	Energy     float64
	Nodes      int
	Edges      int
	Err        error
}

func readStatus(mgr *manager.Manager[string]) liveStatus {
	st := liveStatus{
		State:      mgr.TaskState().String(),
		Active:     mgr.LayoutTaskActive(),
		Iterations: mgr.TotalIterations(),
		Cooling:    mgr.CoolingParameter(),
		Energy:     mgr.Energy(),
		Err:        mgr.TaskErr(),
	}
	if alg := mgr.LayoutAlgorithm(); alg != nil {
		st.Algorithm = alg.Name()
	}
	if g := mgr.Graph(); g != nil {
		st.Nodes, st.Edges = g.NodeCount(), g.EdgeCount()
	}
	return st
}

type liveTickMsg time.Time

func liveTick() tea.Cmd {
	return tea.Tick(liveRefresh, func(t time.Time) tea.Msg { return liveTickMsg(t) })
}

// LiveModel is the bubbletea model for watching a running layout. Space
// pauses and resumes the background task; q quits.
type LiveModel struct {
	mgr     *manager.Manager[string]
	started time.Time
	status  liveStatus
	rate    float64 // iterations per second since the last reading
	last    time.Time
}

// NewLiveModel creates a live view of mgr.
func NewLiveModel(mgr *manager.Manager[string]) LiveModel {
	now := time.Now()
	return LiveModel{mgr: mgr, started: now, last: now, status: readStatus(mgr)}
}

func (m LiveModel) Init() tea.Cmd {
	return liveTick()
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			m.mgr.SetLayoutTaskActive(!m.mgr.LayoutTaskActive())
			m.status = readStatus(m.mgr)
		}
	case liveTickMsg:
		now := time.Time(msg)
		next := readStatus(m.mgr)
		if dt := now.Sub(m.last).Seconds(); dt > 0 {
			m.rate = float64(next.Iterations-m.status.Iterations) / dt
		}
		m.status, m.last = next, now
		return m, liveTick()
	}
	return m, nil
}

func (m LiveModel) View() string {
	var b strings.Builder
	st := m.status

	b.WriteString(StyleTitle.Render("Live layout"))
	b.WriteString("\n")
	b.WriteString(liveDimStyle.Render("space pause/resume  q quit"))
	b.WriteString("\n\n")

	state := st.State
	if !st.Active {
		state += " (paused)"
	}
	rows := [][]string{
		{"algorithm", st.Algorithm},
		{"task", state},
		{"graph", fmt.Sprintf("%d nodes, %d edges", st.Nodes, st.Edges)},
		{"iterations", fmt.Sprintf("%d (%.0f/s)", st.Iterations, m.rate)},
		{"cooling", fmt.Sprintf("%.4g", st.Cooling)},
		{"energy", fmt.Sprintf("%.4g", st.Energy)},
		{"elapsed", time.Since(m.started).Round(time.Second).String()},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return liveLabelStyle
			}
			if row == 1 && st.Active {
				return StyleSuccess
			}
			return StyleValue
		})
	b.WriteString(t.Render())

	if st.Err != nil {
		b.WriteString("\n")
		b.WriteString(styleIconError.Render(iconError) + " " + st.Err.Error())
	}
	b.WriteString("\n")
	return b.String()
}
