// Package tui implements the interactive mission terminal: a transcript, a
// line-edit input, and a tiny command language (help, missions, run N,
// score, quit). One mission runs at a time; input is ignored while a run's
// sampling chain is in flight.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sensorquest/internal/game"
	"sensorquest/internal/mission"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	unavlStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// verdictMsg delivers a finished mission run back into the update loop.
type verdictMsg struct {
	verdict mission.Verdict
	err     error
}

// Model is the bubbletea model for the mission terminal.
type Model struct {
	session *game.Session
	input   textinput.Model

	transcript []string
	running    bool
	runningID  int
	width      int
}

// New builds the terminal model over a game session.
func New(session *game.Session) Model {
	input := textinput.New()
	input.Placeholder = "type 'help' and press enter"
	input.Prompt = promptStyle.Render("> ")
	input.CharLimit = 64
	input.Focus()

	m := Model{session: session, input: input}
	m.say(titleStyle.Render("SENSORQUEST"))
	m.say(dimStyle.Render(fmt.Sprintf("%d missions loaded. Type 'help' for commands.", session.Catalog().Len())))
	return m
}

func (m *Model) say(lines ...string) {
	m.transcript = append(m.transcript, lines...)
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case verdictMsg:
		m.running = false
		if msg.err != nil {
			m.say(failStyle.Render("error: ") + msg.err.Error())
			return m, nil
		}
		m.sayVerdict(msg.verdict)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.running {
				// A run's timers always play out; stale input is dropped.
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.say(promptStyle.Render("> ") + line)
			return m.dispatch(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch parses one command line and returns the follow-up command.
func (m Model) dispatch(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.ToLower(line))
	switch fields[0] {
	case "help", "h", "?":
		m.say(
			"  help          show this help",
			"  missions      list the mission roster",
			"  run <id>      attempt a mission",
			"  score         show the scoreboard",
			"  quit          leave the terminal",
		)
		return m, nil

	case "missions", "list", "ls":
		for _, spec := range m.session.Catalog().Missions() {
			marker := " "
			if spec.Composite() {
				marker = "*"
			}
			m.say(fmt.Sprintf("  %2d%s %-18s %s", spec.ID, marker, spec.Title, dimStyle.Render(spec.Description)))
		}
		m.say(dimStyle.Render("  * composite mission"))
		return m, nil

	case "run", "r":
		if len(fields) < 2 {
			m.say(failStyle.Render("usage: run <id>"))
			return m, nil
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			m.say(failStyle.Render("mission id must be a number"))
			return m, nil
		}
		spec, ok := m.session.Catalog().ByID(id)
		if !ok {
			m.say(failStyle.Render(fmt.Sprintf("no mission %d", id)))
			return m, nil
		}
		m.running = true
		m.runningID = id
		m.say(titleStyle.Render(fmt.Sprintf("MISSION %d: %s", spec.ID, spec.Title)))
		m.say(dimStyle.Render(spec.Description))
		m.say(dimStyle.Render("sampling..."))
		session := m.session
		return m, func() tea.Msg {
			verdict, err := session.RunMission(context.Background(), id)
			return verdictMsg{verdict: verdict, err: err}
		}

	case "score", "s":
		summary := m.session.Scores().Snapshot()
		m.say(fmt.Sprintf("  cleared %d/%d (%.0f%%)  streak %d  best %d",
			summary.Cleared, summary.Total, summary.CompletionPct, summary.Streak, summary.BestStreak))
		m.say(dimStyle.Render(fmt.Sprintf("  attempts: %d passed, %d failed, %d unavailable",
			summary.Tally.Passed, summary.Tally.Failed, summary.Tally.Unavailable)))
		return m, nil

	case "quit", "q", "exit":
		return m, tea.Quit
	}

	m.say(failStyle.Render(fmt.Sprintf("unknown command %q, try 'help'", fields[0])))
	return m, nil
}

func (m *Model) sayVerdict(v mission.Verdict) {
	switch v.Outcome {
	case mission.OutcomePassed:
		m.say(passStyle.Render("MISSION PASSED"))
	case mission.OutcomeUnavailable:
		m.say(unavlStyle.Render("SENSOR UNAVAILABLE") + dimStyle.Render(" (counts as a fail)"))
	default:
		m.say(failStyle.Render("MISSION FAILED"))
	}
	for _, d := range v.Diagnostics {
		m.say(dimStyle.Render("  " + d))
	}
	m.say(dimStyle.Render(fmt.Sprintf("  run %s finished in %s", v.RunID, v.Elapsed.Round(10*time.Millisecond))))
}

func (m Model) View() string {
	var b strings.Builder
	keep := m.transcript
	if len(keep) > 200 {
		keep = keep[len(keep)-200:]
	}
	for _, line := range keep {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if m.running {
		b.WriteString(dimStyle.Render(fmt.Sprintf("[mission %d in flight]", m.runningID)))
		b.WriteByte('\n')
	} else {
		b.WriteString(m.input.View())
		b.WriteByte('\n')
	}
	return b.String()
}
