// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxHistory = 20

// Focus states
const (
	focusInput = iota
	focusHistory
)

// lineClass groups daemon lines for highlighting
type lineClass int

const (
	lineOther lineClass = iota
	lineRx
	lineTx
	lineInvalid
)

// historyItem is a previously sent command
type historyItem string

func (h historyItem) Title() string       { return string(h) }
func (h historyItem) Description() string { return "" }
func (h historyItem) FilterValue() string { return string(h) }

type monitorLogEntry struct {
	text  string
	class lineClass
}

type monitorModel struct {
	conn *daemonConn
	addr string

	input    textinput.Model
	history  list.Model
	viewport viewport.Model
	focused  int

	log           []monitorLogEntry
	maxLogEntries int
	received      int
	sent          int
	invalid       int

	width          int
	height         int
	quitting       bool
	connectionLost bool
}

type monitorBatchMsg struct {
	lines []string
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	addr string
}

func initialMonitorModel(conn *daemonConn, addr string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "pl a1 on"
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetHeight(1)
	delegate.SetSpacing(0)
	history := list.New([]list.Item{}, delegate, 30, 10)
	history.Title = "History"
	history.SetShowStatusBar(false)
	history.SetShowHelp(false)
	history.SetFilteringEnabled(false)

	vp := viewport.New(44, 14)
	vp.SetContent(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("(waiting for events)"))

	return monitorModel{
		conn:          conn,
		addr:          addr,
		input:         ti,
		history:       history,
		viewport:      vp,
		focused:       focusInput,
		maxLogEntries: 200,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.SetSize(30, max(m.height-8, 5))
		m.input.Width = max(m.width-40, 20)
		m.viewport.Width = max(m.width-40, 30)
		m.viewport.Height = max(m.height-10, 5)

	case monitorBatchMsg:
		for _, line := range msg.lines {
			m.received++
			class := classifyLine(line)
			if class == lineInvalid {
				m.invalid++
			}
			m.addLogEntry(line, class)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost, reconnecting...", lineInvalid)

	case reconnectedMsg:
		m.connectionLost = false
		m.addLogEntry("Reconnected to "+msg.addr, lineOther)
	}

	m.refreshLog()

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		if m.focused == focusInput && len(m.history.Items()) > 0 {
			m.focused = focusHistory
			m.input.Blur()
		} else {
			m.focused = focusInput
			m.input.Focus()
		}
		return m, nil

	case "enter":
		line := strings.TrimSpace(m.input.Value())
		if m.focused == focusHistory {
			if item, ok := m.history.SelectedItem().(historyItem); ok {
				line = string(item)
			}
		}
		if line == "" {
			return m, nil
		}
		m.sendLine(line)
		if m.focused == focusInput {
			m.input.SetValue("")
		}
		m.refreshLog()
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focused == focusHistory {
		m.history, cmd = m.history.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// sendLine writes a command to the daemon and records it in the history
func (m *monitorModel) sendLine(line string) {
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", lineInvalid)
		return
	}
	if err := m.conn.send(line); err != nil {
		m.addLogEntry(fmt.Sprintf("Send failed: %v", err), lineInvalid)
		return
	}
	m.sent++
	m.history.SetItems(pushHistory(m.history.Items(), line))
	m.history.Select(0)
}

// pushHistory moves line to the front of items, keeping at most maxHistory
func pushHistory(items []list.Item, line string) []list.Item {
	out := make([]list.Item, 0, len(items)+1)
	out = append(out, historyItem(line))
	for _, it := range items {
		if h, ok := it.(historyItem); ok && string(h) == line {
			continue
		}
		out = append(out, it)
	}
	if len(out) > maxHistory {
		out = out[:maxHistory]
	}
	return out
}

// classifyLine picks the highlight for a daemon line
func classifyLine(line string) lineClass {
	switch {
	case strings.Contains(line, "Invalid"), strings.Contains(line, "Error"),
		strings.Contains(line, "error"), strings.HasSuffix(line, "queue full"):
		return lineInvalid
	case strings.Contains(line, " Tx "):
		return lineTx
	case strings.Contains(line, " Rx "):
		return lineRx
	}
	return lineOther
}

func (m *monitorModel) addLogEntry(text string, class lineClass) {
	m.log = append(m.log, monitorLogEntry{text: text, class: class})
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	s.WriteString(titleStyle.Render("X10GATE MONITOR"))
	s.WriteString(" ")
	connStatus := m.addr
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Esc=quit Tab=history PgUp/PgDn=scroll", connStatus)))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf(" %s %s  %s %s  %s %s\n\n",
		statsLabelStyle.Render("Received:"), statsValueStyle.Render(fmt.Sprintf("%d", m.received)),
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", m.sent)),
		statsLabelStyle.Render("Invalid:"), statsValueStyle.Render(fmt.Sprintf("%d", m.invalid))))

	inputStyle := boxStyle
	historyStyle := boxStyle
	if m.focused == focusInput {
		inputStyle = focusedBoxStyle
	} else {
		historyStyle = focusedBoxStyle
	}

	leftWidth := 30
	rightWidth := max(m.width-leftWidth-6, 30)
	logPanel := boxStyle.Width(rightWidth).Render(m.viewport.View())
	historyPanel := historyStyle.Width(leftWidth).Render(m.history.View())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, historyPanel, " ", logPanel))
	s.WriteString("\n")

	s.WriteString(inputStyle.Width(m.width - 4).Render("> " + m.input.View()))
	s.WriteString("\n")

	return s.String()
}

// refreshLog re-renders the log, following the tail unless scrolled back
func (m *monitorModel) refreshLog() {
	if len(m.log) == 0 {
		return
	}
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderLog())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m monitorModel) renderLog() string {
	var s strings.Builder

	rxStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	txStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	otherStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	for i, entry := range m.log {
		style := otherStyle
		switch entry.class {
		case lineRx:
			style = rxStyle
		case lineTx:
			style = txStyle
		case lineInvalid:
			style = errorStyle
		}
		if i > 0 {
			s.WriteString("\n")
		}
		s.WriteString(style.Render(entry.text))
	}

	return s.String()
}
