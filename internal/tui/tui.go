package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
)

type phase int

const (
	phaseName phase = iota
	phaseRounds
	phaseStarting
	phasePlaying
	phaseDone
)

const leaderboardSize = 5

// Model is the Bubble Tea model for a quiz session.
type Model struct {
	driver Driver
	clock  quartz.Clock
	logger *log.Logger

	// UI components
	logViewport viewport.Model
	input       textinput.Model

	// State
	phase       phase
	player      string
	rounds      []int
	snapshot    *game.SessionSnapshot
	receivedAt  time.Time
	leaderboard []leaderboard.Entry
	status      string
	gameLog     []string
	quitting    bool

	// Diff state for the log
	loggedRound    int
	loggedHints    int
	loggedFeedback string

	// Dimensions
	width  int
	height int
}

type tickMsg time.Time

type updateMsg Update

// NewModel creates a model driven by driver. rounds lists the round
// counts offered at the start screen.
func NewModel(driver Driver, clock quartz.Clock, logger *log.Logger, rounds []int) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 64
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	m := &Model{
		driver:      driver,
		clock:       clock,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		input:       ti,
		rounds:      rounds,
	}
	m.enterPhase(phaseName)
	return m
}

// SetPlayer pre-fills the player name and skips the name prompt.
func (m *Model) SetPlayer(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	m.player = name
	m.enterPhase(phaseRounds)
}

// StartWith begins a session immediately once a player name is set.
func (m *Model) StartWith(rounds int) {
	if m.player == "" {
		return
	}
	m.enterPhase(phaseStarting)
	m.driver.Start(m.player, rounds)
}

// Init initializes the TUI model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate(), m.tick(), m.requestLeaderboard())
}

func (m *Model) waitForUpdate() tea.Cmd {
	updates := m.driver.Updates()
	return func() tea.Msg {
		return updateMsg(<-updates)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) requestLeaderboard() tea.Cmd {
	return func() tea.Msg {
		m.driver.Leaderboard(leaderboardSize)
		return nil
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		// The tick only schedules; the session reads its own clock.
		m.driver.Tick(m.clock.Now("tui", "tick"))
		return m, m.tick()

	case updateMsg:
		m.apply(Update(msg))
		return m, m.waitForUpdate()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, m.quit()
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if cmd := m.submit(line); cmd != nil {
				return m, cmd
			}
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.phase == phasePlaying {
		m.driver.Abandon()
	}
	return tea.Sequence(tea.ClearScreen, tea.Quit)
}

// submit handles one line of input for the current phase.
func (m *Model) submit(line string) tea.Cmd {
	m.status = ""

	switch m.phase {
	case phaseName:
		if line == "" {
			m.status = "Please enter a name."
			return nil
		}
		m.player = line
		m.enterPhase(phaseRounds)

	case phaseRounds:
		n, err := strconv.Atoi(line)
		if err != nil {
			m.status = fmt.Sprintf("Enter one of %s.", m.roundChoices())
			return nil
		}
		m.enterPhase(phaseStarting)
		m.driver.Start(m.player, n)

	case phasePlaying:
		return m.play(line)

	case phaseDone:
		switch strings.ToLower(line) {
		case "quit", "exit":
			return m.quit()
		}
		m.enterPhase(phaseRounds)
	}
	return nil
}

func (m *Model) play(line string) tea.Cmd {
	finished := m.snapshot != nil && m.snapshot.Round.Status == game.Finished.String()

	switch strings.ToLower(line) {
	case "quit", "exit":
		return m.quit()
	case "?", "hint":
		m.driver.Hint()
	case "next", "":
		if finished {
			m.driver.Next()
		}
	default:
		m.driver.Guess(line)
	}
	return nil
}

func (m *Model) enterPhase(p phase) {
	m.phase = p
	switch p {
	case phaseName:
		m.input.Placeholder = "Your name"
	case phaseRounds:
		m.input.Placeholder = fmt.Sprintf("Number of rounds (%s)", m.roundChoices())
	case phaseStarting:
		m.input.Placeholder = "Starting..."
	case phasePlaying:
		m.input.Placeholder = "Your guess, ? for a hint"
	case phaseDone:
		m.input.Placeholder = "Enter to play again, 'quit' to exit"
	}
}

func (m *Model) roundChoices() string {
	parts := make([]string, len(m.rounds))
	for i, n := range m.rounds {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// apply folds a driver update into the model.
func (m *Model) apply(u Update) {
	if u.Leaderboard != nil {
		m.leaderboard = u.Leaderboard
	}
	if u.Err != nil {
		m.logger.Debug("Driver error", "error", u.Err)
		m.status = describeError(u.Err)
		var cfgErr *game.ConfigError
		if m.phase == phaseStarting && errors.As(u.Err, &cfgErr) {
			if cfgErr.Field == "player" {
				m.enterPhase(phaseName)
			} else {
				m.enterPhase(phaseRounds)
			}
		}
	}
	if u.Message != "" {
		m.AddLogEntry(InfoStyle.Render(u.Message))
	}
	if u.Session == nil {
		return
	}

	snap := *u.Session
	if m.snapshot == nil || m.snapshot.ID != snap.ID {
		m.loggedRound = 0
	}
	m.snapshot = &snap
	m.receivedAt = m.clock.Now("tui", "received")
	m.logRound(snap)

	switch {
	case u.Complete || snap.Status == game.SessionComplete.String():
		if m.phase != phaseDone {
			m.AddLogEntry(SuccessStyle.Render(fmt.Sprintf("Final Score: %d / %d", snap.Score, snap.MaxScore)))
			if snap.Improved {
				m.AddLogEntry(SuccessStyle.Render("New personal best!"))
			}
		}
		m.enterPhase(phaseDone)
	case snap.Status == game.SessionAbandoned.String():
		m.enterPhase(phaseDone)
	default:
		if m.phase == phaseStarting || m.phase == phaseDone {
			m.enterPhase(phasePlaying)
		}
	}
}

// logRound appends whatever the snapshot shows that the log does not yet.
func (m *Model) logRound(snap game.SessionSnapshot) {
	r := snap.Round
	if r.Number != m.loggedRound {
		m.loggedRound = r.Number
		m.loggedHints = 0
		m.loggedFeedback = ""
		m.AddLogEntry("")
		m.AddLogEntry(HeaderStyle.Render(fmt.Sprintf(" Round %d of %d ", r.Number, snap.Rounds)))
	}
	for ; m.loggedHints < len(r.Hints); m.loggedHints++ {
		h := r.Hints[m.loggedHints]
		m.AddLogEntry(fmt.Sprintf("%d. %s %s", m.loggedHints+1, HintCategoryStyle.Render(h.Category+":"), h.Text))
	}
	if r.Feedback != "" && r.Feedback != m.loggedFeedback {
		m.loggedFeedback = r.Feedback
		style := WarningStyle
		if r.Outcome == game.OutcomeCorrect {
			style = SuccessStyle
		} else if r.Status == game.Finished.String() {
			style = ErrorStyle
		}
		m.AddLogEntry(style.Render(r.Feedback))
		if r.Reveal != "" {
			m.AddLogEntry(InfoStyle.Render(r.Reveal))
		}
	}
}

// TimeRemaining is the round countdown, extrapolated from the last
// snapshot.
func (m *Model) TimeRemaining() time.Duration {
	if m.snapshot == nil || m.snapshot.Round.Status == game.Finished.String() {
		return 0
	}
	left := m.snapshot.Round.TimeRemaining - m.clock.Since(m.receivedAt, "tui", "countdown")
	return max(left, 0)
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 25)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight
	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(paneHeight).
		Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *Model) renderSidebarPane() string {
	var content strings.Builder

	if s := m.snapshot; s != nil {
		r := s.Round
		content.WriteString(WarningStyle.Render(fmt.Sprintf("Score: %d", s.Score)))
		content.WriteString("\n")
		content.WriteString(fmt.Sprintf("Round %d of %d\n", r.Number, s.Rounds))
		content.WriteString(fmt.Sprintf("Attempts left: %d\n", r.AttemptsLeft))
		content.WriteString(fmt.Sprintf("Points available: %d\n", r.PendingScore))

		left := m.TimeRemaining()
		style := CountdownStyle
		if left <= 10*time.Second {
			style = UrgentStyle
		}
		content.WriteString(style.Render(fmt.Sprintf("Time: %ds", int(left.Round(time.Second).Seconds()))))
		content.WriteString("\n\n")
	}

	content.WriteString(InfoStyle.Render("Leaderboard:"))
	content.WriteString("\n")
	if len(m.leaderboard) == 0 {
		content.WriteString(InfoStyle.Render("  no scores yet"))
		content.WriteString("\n")
	}
	for i, e := range m.leaderboard {
		content.WriteString(fmt.Sprintf("  %d. %s %d\n", i+1, e.Player, e.Score))
	}

	return content.String()
}

func (m *Model) renderActionPane() string {
	var content strings.Builder

	switch m.phase {
	case phaseName:
		content.WriteString(PromptStyle.Render("Welcome! What's your name?"))
	case phaseRounds:
		content.WriteString(PromptStyle.Render(fmt.Sprintf("How many rounds, %s?", m.player)))
	case phaseStarting:
		content.WriteString(InfoStyle.Render("Starting session..."))
	case phasePlaying:
		content.WriteString(PromptStyle.Render("Guess the canton"))
	case phaseDone:
		content.WriteString(PromptStyle.Render("Game over"))
	}
	content.WriteString("\n")

	if m.status != "" {
		content.WriteString(ErrorStyle.Render(m.status))
		content.WriteString("\n")
	}

	content.WriteString(m.input.View())
	content.WriteString("\n")

	help := "Enter to submit • Ctrl+C to quit"
	if m.phase == phasePlaying {
		help = "? for a hint • next to skip the wait • PgUp/PgDn scroll • Ctrl+C to quit"
	}
	content.WriteString(InfoStyle.Render(help))

	return content.String()
}

// AddLogEntry adds an entry to the game log
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns the game log entries.
func (m *Model) Log() []string {
	return append([]string(nil), m.gameLog...)
}

// Status is the last error or prompt message shown to the player.
func (m *Model) Status() string { return m.status }

// Snapshot returns the last session snapshot received, if any.
func (m *Model) Snapshot() *game.SessionSnapshot { return m.snapshot }
