package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/scanning"
	"github.com/igorvan/qrscan/pkg/session"
)

var (
	docStyle      = lipgloss.NewStyle().Margin(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	rowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	resultStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("33")).Padding(0, 2)
)

// Commands - session operations bound to keys
type Commands interface {
	Start(ctx context.Context) error
	Stop()
	Tick(ctx context.Context)
	ToggleTorch() error
	ToggleRow(i int) error
	SelectAll()
	DeleteSelected(ctx context.Context) (int, error)
	ManualEntry(ctx context.Context, data string) (scanning.Outcome, history.ScanRecord, error)
	DismissResult()
	Snapshot() session.Snapshot
	Close()
}

type tickMsg time.Time

// Model - bubbletea model driving a scanner session; camera polls are tea ticks,
// so every session call happens on the program goroutine
type Model struct {
	ctx      context.Context
	commands Commands
	interval time.Duration
	keys     keyMap
	input    textinput.Model
	entering bool
	cursor   int
	snap     session.Snapshot
}

// NewModel - Model constructor
func NewModel(ctx context.Context, commands Commands, interval time.Duration) Model {
	input := textinput.New()
	input.Placeholder = "code"
	input.CharLimit = 4096
	return Model{
		ctx:      ctx,
		commands: commands,
		interval: interval,
		keys:     defaultKeyMap(),
		input:    input,
		snap:     commands.Snapshot(),
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init - starts the poll ticks
func (m Model) Init() tea.Cmd {
	return tick(m.interval)
}

// Update - tea.Model implementation
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.commands.Tick(m.ctx)
		m.refresh()
		return m, tick(m.interval)
	case tea.KeyMsg:
		if m.entering {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		_, _, _ = m.commands.ManualEntry(m.ctx, m.input.Value())
		m.input.Reset()
		m.input.Blur()
		m.entering = false
		m.refresh()
		return m, nil
	case tea.KeyEsc:
		m.input.Reset()
		m.input.Blur()
		m.entering = false
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.commands.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Start):
		_ = m.commands.Start(m.ctx)
	case key.Matches(msg, m.keys.Stop):
		m.commands.Stop()
	case key.Matches(msg, m.keys.Torch):
		_ = m.commands.ToggleTorch()
	case key.Matches(msg, m.keys.SelectAll):
		m.commands.SelectAll()
	case key.Matches(msg, m.keys.Delete):
		_, _ = m.commands.DeleteSelected(m.ctx)
	case key.Matches(msg, m.keys.Toggle):
		_ = m.commands.ToggleRow(m.cursor)
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Dismiss):
		m.commands.DismissResult()
	case key.Matches(msg, m.keys.Manual):
		m.entering = true
		m.refresh()
		return m, m.input.Focus()
	}
	m.refresh()
	return m, nil
}

func (m *Model) refresh() {
	m.snap = m.commands.Snapshot()
	if m.cursor >= len(m.snap.Rows) {
		m.cursor = max(len(m.snap.Rows)-1, 0)
	}
}

// View - tea.Model implementation
func (m Model) View() string {
	var b strings.Builder

	torch := "off"
	if !m.snap.TorchAvailable {
		torch = "n/a"
	} else if m.snap.TorchOn {
		torch = "on"
	}
	b.WriteString(titleStyle.Render("QR Scanner"))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  camera: %s  flashlight: %s", m.snap.State, torch)))
	b.WriteString("\n\n")
	b.WriteString(statusStyle(m.snap.Status.Kind).Render(m.snap.Status.Text))
	b.WriteString("\n\n")

	if m.snap.Result != nil {
		r := m.snap.Result
		b.WriteString(resultStyle.Render(fmt.Sprintf("Scan Result\n\nData: %s\n\nDate: %s\nTime: %s", r.Data, r.Date, r.Time)))
		b.WriteString("\n\n")
	}

	if m.entering {
		b.WriteString("Code: " + m.input.View() + "\n\n")
	}

	if len(m.snap.Rows) == 0 {
		b.WriteString(rowStyle.Render("No scans yet."))
		b.WriteString("\n")
	}
	for i, row := range m.snap.Rows {
		prefix := "  "
		style := rowStyle
		if i == m.cursor {
			prefix = "> "
			style = cursorStyle
		}
		check := "[ ] "
		if row.Selected {
			check = selectedStyle.Render("[x] ")
		}
		b.WriteString(prefix + check + style.Render(row.Label) + "\n")
	}

	b.WriteString("\n")
	var help []string
	for _, k := range m.keys.help() {
		help = append(help, k.Help().Key+" "+k.Help().Desc)
	}
	b.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return docStyle.Render(b.String())
}

func statusStyle(kind session.StatusKind) lipgloss.Style {
	switch kind {
	case session.StatusSuccess:
		return successStyle
	case session.StatusError:
		return errorStyle
	default:
		return infoStyle
	}
}
