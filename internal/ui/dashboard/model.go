// Package dashboard is the terminal view behind "tolerance watch": live
// per-organization scheduler state plus the selected organization's active
// exceptions.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tolerance-rules/internal/keys"
	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/scheduler"
	"github.com/nhle/tolerance-rules/internal/store"
	"github.com/nhle/tolerance-rules/internal/theme"
	"github.com/nhle/tolerance-rules/internal/ui"
)

const (
	refreshInterval = time.Second
	recentLimit     = 10
)

// Scheduler is the part of *scheduler.Scheduler the dashboard drives.
type Scheduler interface {
	Statuses() []scheduler.RunStatus
	Trigger(organizationID string) bool
	TriggerAll()
	Results() <-chan scheduler.RunResult
}

// ExceptionLister loads exceptions for display.
type ExceptionLister interface {
	GetExceptions(ctx context.Context, filter store.ExceptionFilter) ([]model.Exception, error)
}

// resultMsg wraps a finished scheduler run.
type resultMsg scheduler.RunResult

// tickMsg refreshes the status table while runs are in flight.
type tickMsg time.Time

// exceptionsMsg carries the active exceptions of one organization.
type exceptionsMsg struct {
	organizationID string
	exceptions     []model.Exception
	err            error
}

// Model is the dashboard's bubbletea model.
type Model struct {
	sched      Scheduler
	exceptions ExceptionLister
	keys       *keys.KeyMap
	help       help.Model
	spinner    spinner.Model

	statuses []scheduler.RunStatus
	cursor   int

	recentOrg string
	recent    []model.Exception
	recentErr error

	lastEvent string
	showHelp  bool
	width     int
	height    int
}

// New creates the dashboard model.
func New(sched Scheduler, exceptions ExceptionLister) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		sched:      sched,
		exceptions: exceptions,
		keys:       keys.DefaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
		statuses:   sched.Statuses(),
		width:      80,
		height:     24,
	}
}

// Init starts the spinner, the refresh tick and the result listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tick(),
		waitForResult(m.sched.Results()),
		m.loadExceptions(m.selected()),
	)
}

// Update handles key presses, window resizes and scheduler events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.statuses = m.sched.Statuses()
		m.clampCursor()
		return m, tick()

	case resultMsg:
		m.statuses = m.sched.Statuses()
		m.clampCursor()
		m.lastEvent = describeResult(scheduler.RunResult(msg))
		cmds := []tea.Cmd{waitForResult(m.sched.Results())}
		if msg.OrganizationID == m.selected() {
			cmds = append(cmds, m.loadExceptions(msg.OrganizationID))
		}
		return m, tea.Batch(cmds...)

	case exceptionsMsg:
		// Drop answers for an organization that is no longer selected.
		if msg.organizationID != m.selected() {
			return m, nil
		}
		m.recentOrg = msg.organizationID
		m.recent = msg.exceptions
		m.recentErr = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.statuses)-1 {
			m.cursor++
			return m, m.loadExceptions(m.selected())
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			return m, m.loadExceptions(m.selected())
		}
		return m, nil

	case key.Matches(msg, m.keys.Run):
		if org := m.selected(); org != "" && m.sched.Trigger(org) {
			m.lastEvent = "triggered " + org
		}
		return m, nil

	case key.Matches(msg, m.keys.RunAll):
		m.sched.TriggerAll()
		m.lastEvent = "triggered all organizations"
		return m, nil
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	layout := ui.NewLayout(m.width, m.height)

	header := layout.Header("tolerance watch", fmt.Sprintf("%d organizations", len(m.statuses)))

	var content string
	if m.showHelp {
		m.help.ShowAll = true
		content = theme.PanelStyle.Render(m.help.View(m.keys))
	} else {
		content = lipgloss.JoinVertical(lipgloss.Left,
			m.renderStatuses(),
			"",
			m.renderRecent(),
		)
	}

	m.help.ShowAll = false
	status := layout.StatusBar(m.help.ShortHelpView(m.keys.ShortHelp()), m.lastEvent)

	return layout.Frame(header, content, status)
}

func (m Model) renderStatuses() string {
	if len(m.statuses) == 0 {
		return theme.HelpStyle.Render("No organizations scheduled.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %-28s %-10s %-8s %-10s %-6s %s\n",
		"ORGANIZATION", "STATE", "RUNS", "CREATED", "ERRORS", "LAST RUN")
	for i, st := range m.statuses {
		state := theme.RunStateStyle(st.State.String()).Render(fmt.Sprintf("%-10s", st.State))
		if st.State == scheduler.StateRunning {
			state = m.spinner.View() + " " + theme.RunStateStyle(st.State.String()).Render(fmt.Sprintf("%-8s", st.State))
		}

		lastRun := "never"
		if !st.LastRun.IsZero() {
			lastRun = st.LastRun.Format(time.TimeOnly)
		}

		row := fmt.Sprintf("%-28s %s %-8d %-10d %-6d %s",
			truncate(st.OrganizationID, 28), state, st.Runs,
			st.LastResult.ExceptionsCreated, len(st.LastResult.Errors), lastRun)

		if i == m.cursor {
			b.WriteString(theme.SelectedRowStyle.Render("> " + row))
		} else {
			b.WriteString("  " + row)
		}
		if st.Error != nil {
			b.WriteString("\n    " + theme.RunStateStyle("error").Render(st.Error.Error()))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderRecent() string {
	org := m.selected()
	if org == "" {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Render("Active exceptions: " + org)
	switch {
	case m.recentErr != nil:
		return title + "\n" + theme.RunStateStyle("error").Render(m.recentErr.Error())
	case m.recentOrg != org:
		return title + "\n" + theme.HelpStyle.Render("loading…")
	case len(m.recent) == 0:
		return title + "\n" + theme.HelpStyle.Render("none")
	}

	lines := []string{title}
	for _, ex := range m.recent {
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			theme.SeverityStyle(string(ex.Severity)).Render(fmt.Sprintf("%-7s", ex.Severity)),
			ex.CreatedAt.Format(time.DateOnly),
			truncate(ex.Message, max(m.width-24, 20)),
		))
	}
	return strings.Join(lines, "\n")
}

func (m Model) selected() string {
	if m.cursor < 0 || m.cursor >= len(m.statuses) {
		return ""
	}
	return m.statuses[m.cursor].OrganizationID
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.statuses) {
		m.cursor = max(len(m.statuses)-1, 0)
	}
}

// loadExceptions fetches the newest active exceptions of organizationID.
func (m Model) loadExceptions(organizationID string) tea.Cmd {
	if organizationID == "" || m.exceptions == nil {
		return nil
	}
	lister := m.exceptions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		status := model.ExceptionStatusActive
		exceptions, err := lister.GetExceptions(ctx, store.ExceptionFilter{
			OrganizationID: &organizationID,
			Status:         &status,
			Limit:          recentLimit,
		})
		return exceptionsMsg{organizationID: organizationID, exceptions: exceptions, err: err}
	}
}

// waitForResult blocks until the scheduler publishes a run result.
func waitForResult(results <-chan scheduler.RunResult) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-results
		if !ok {
			return nil
		}
		return resultMsg(r)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func describeResult(r scheduler.RunResult) string {
	if r.Error != nil {
		return fmt.Sprintf("%s failed: %v", r.OrganizationID, r.Error)
	}
	return fmt.Sprintf("%s: %d created, %d errors in %s",
		r.OrganizationID, r.Result.ExceptionsCreated, len(r.Result.Errors),
		r.Duration.Round(time.Millisecond))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
