package live

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentstudio/internal/discovery"
	"agentstudio/internal/pipeline"
)

const (
	detailHeight = 6
	chromeHeight = 8
)

// Controls are the session actions bound to keys in interactive mode.
type Controls interface {
	Run() string
	Stop()
	Reset()
}

// Options configures the live UI model.
type Options struct {
	NoColor      bool
	TickInterval time.Duration
	// Interactive binds r/s/x to Controls and keeps the UI open between runs.
	Interactive bool
	Controls    Controls
	Discovery   <-chan discovery.Info
	Prompt      string
}

// Model renders a live console UI using Bubble Tea.
type Model struct {
	state        pipeline.State
	info         discovery.Info
	hasInfo      bool
	table        table.Model
	detail       viewport.Model
	spinner      spinner.Model
	updates      <-chan pipeline.State
	discovery    <-chan discovery.Info
	controls     Controls
	interactive  bool
	prompt       string
	tickInterval time.Duration
	startedAt    time.Time
	finishedAt   time.Time
	now          time.Time
	width        int
	noColor      bool
}

// NewModel constructs a live UI model fed by session state updates.
func NewModel(updates <-chan pipeline.State, opts Options) Model {
	tickInterval := opts.TickInterval
	if tickInterval <= 0 {
		tickInterval = 200 * time.Millisecond
	}
	t := table.New(
		table.WithColumns(defaultColumns()),
		table.WithRows([]table.Row{}),
		table.WithFocused(opts.Interactive),
		table.WithHeight(7),
	)
	t.SetStyles(tableStyles(opts.NoColor))
	sp := spinner.New()
	sp.Spinner = spinner.Points
	return Model{
		table:        t,
		detail:       viewport.New(80, detailHeight),
		spinner:      sp,
		updates:      updates,
		discovery:    opts.Discovery,
		controls:     opts.Controls,
		interactive:  opts.Interactive,
		prompt:       opts.Prompt,
		tickInterval: tickInterval,
		now:          time.Now(),
		width:        80,
		noColor:      opts.NoColor,
	}
}

// Init starts ticking and waits for the first update.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.updates), waitForInfo(m.discovery), tick(m.tickInterval), m.spinner.Tick)
}

// Update consumes state updates, key presses and timer ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.table.SetWidth(typed.Width)
		m.table.SetHeight(max(typed.Height-chromeHeight-detailHeight, 3))
		m.table.SetColumns(columnsForWidth(typed.Width))
		m.detail.Width = typed.Width
		m = m.refresh()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case StateMsg:
		m = applyState(m, typed.State, time.Now())
		if !m.interactive && m.state.Terminal() {
			return m, tea.Quit
		}
		return m, waitForState(m.updates)
	case InfoMsg:
		m.info = typed.Info
		m.hasInfo = true
		return m, waitForInfo(m.discovery)
	case closedMsg:
		return m, tea.Quit
	case tickMsg:
		m.now = time.Time(typed)
		return m, tick(m.tickInterval)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}
	return m, nil
}

// handleKey maps key presses to session controls.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.controls != nil && m.state.Running() {
			m.controls.Stop()
		}
		return m, tea.Quit
	case "q":
		if m.interactive {
			return m, tea.Quit
		}
	case "r":
		if m.interactive && m.controls != nil {
			m.controls.Run()
		}
		return m, nil
	case "s":
		if m.interactive && m.controls != nil {
			m.controls.Stop()
		}
		return m, nil
	case "x":
		if m.interactive && m.controls != nil {
			m.controls.Reset()
		}
		return m, nil
	}
	if m.interactive {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		m = m.refresh()
		return m, cmd
	}
	return m, nil
}

// View renders the live UI.
func (m Model) View() string {
	header := renderHeader(m.state, m.startedAt, m.finishedAt, m.now, m.noColor)
	if m.state.Running() {
		header = m.spinner.View() + " " + header
	}
	sections := []string{header}
	for _, line := range []string{
		renderPrompt(m.prompt, m.width, m.noColor),
		renderDiscovery(m.info, m.hasInfo, m.noColor),
		renderSummary(m.state, m.noColor),
		renderStageLine(m.state, m.noColor),
	} {
		if line != "" {
			sections = append(sections, line)
		}
	}
	sections = append(sections, m.table.View())
	if id := m.selectedAgent(); id != "" {
		metrics, _ := m.state.Agent(id)
		sections = append(sections, renderDetail(id, metrics, m.noColor), m.detail.View())
	}
	if line := renderError(m.state, m.noColor); line != "" {
		sections = append(sections, line)
	}
	sections = append(sections, renderHelp(m.interactive, m.noColor))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// State returns the last state the model rendered.
func (m Model) State() pipeline.State {
	return m.state
}

// StateMsg wraps a session state update for Bubble Tea.
type StateMsg struct {
	State pipeline.State
}

// InfoMsg wraps a discovery update for Bubble Tea.
type InfoMsg struct {
	Info discovery.Info
}

// closedMsg reports that the state feed ended.
type closedMsg struct{}

// tickMsg carries a clock tick for updates.
type tickMsg time.Time

// waitForState blocks until a state update is available.
func waitForState(updates <-chan pipeline.State) tea.Cmd {
	return func() tea.Msg {
		if updates == nil {
			return nil
		}
		state, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return StateMsg{State: state}
	}
}

// waitForInfo blocks until a discovery update is available.
func waitForInfo(infos <-chan discovery.Info) tea.Cmd {
	if infos == nil {
		return nil
	}
	return func() tea.Msg {
		info, ok := <-infos
		if !ok {
			return nil
		}
		return InfoMsg{Info: info}
	}
}

// tick emits a periodic tick message.
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// applyState records a new session state and the run timing around it.
func applyState(model Model, state pipeline.State, now time.Time) Model {
	previous := model.state
	model.state = state
	switch {
	case state.Running() && (state.RunID != previous.RunID || !previous.Running()):
		model.startedAt = now
		model.finishedAt = time.Time{}
	case state.Terminal() && !previous.Terminal():
		if model.startedAt.IsZero() {
			model.startedAt = now
		}
		model.finishedAt = now
	case state.Status == pipeline.StatusIdle:
		model.startedAt = time.Time{}
		model.finishedAt = time.Time{}
	}
	return model.refresh()
}

// refresh rebuilds table rows and the detail pane from the current state.
func (m Model) refresh() Model {
	columns := columnsForWidth(m.width)
	m.table.SetRows(rowsForState(m.state, columns[len(columns)-1].Width))
	if id := m.selectedAgent(); id != "" {
		metrics, _ := m.state.Agent(id)
		m.detail.SetContent(wrap(metrics.Output, m.detail.Width))
		m.detail.GotoBottom()
	}
	return m
}

// selectedAgent returns the agent under the table cursor, or the running
// agent when the UI is not interactive.
func (m Model) selectedAgent() string {
	if len(m.state.AgentOrder) == 0 {
		return ""
	}
	if m.interactive {
		cursor := m.table.Cursor()
		if cursor >= 0 && cursor < len(m.state.AgentOrder) {
			return m.state.AgentOrder[cursor]
		}
		return ""
	}
	for _, id := range m.state.AgentOrder {
		if m.state.Agents[id].Status == pipeline.AgentRunning {
			return id
		}
	}
	return ""
}

// wrap hard-wraps text to width columns.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		for len(runes) > width {
			b.WriteString(string(runes[:width]))
			b.WriteByte('\n')
			runes = runes[width:]
		}
		b.WriteString(string(runes))
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}
