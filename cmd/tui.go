// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// Last RF security report, shown below the statistics
type securityReport struct {
	timestamp time.Time
	addr      uint32
	name      string
}

// TUI model
type model struct {
	linkName      string
	device        x10.Model
	showAll       bool
	stats         *x10.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	lastSecurity  *securityReport
	width         int
	height        int
	quitting      bool
	linkErr       error
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	frame []byte
	event *x10.Event
	err   error
	ack   bool
}
type linkClosedMsg struct {
	err error
}

func initialModel(linkName string, m x10.Model, showAll bool) model {
	return model{
		linkName:      linkName,
		device:        m,
		showAll:       showAll,
		stats:         x10.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case linkClosedMsg:
		m.linkErr = msg.err
		m.addLogEntry(fmt.Sprintf("Link closed: %v", msg.err), true)

	case frameMsg:
		if msg.ack {
			m.stats.RecordAck()
			return m, nil
		}
		m.stats.Update(msg.event, msg.err)

		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s [% X]", describeDecodeError(msg.err), msg.frame), true)
		} else if msg.event != nil {
			if msg.event.IsSecurity() {
				m.lastSecurity = &securityReport{
					timestamp: time.Now(),
					addr:      msg.event.SecAddr,
					name:      msg.event.SecurityName(),
				}
			}
			if m.showAll {
				m.addLogEntry(msg.event.String(), false)
			}
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// describeDecodeError prefixes a decode error with its bus
func describeDecodeError(err error) string {
	var de *x10.DecodeError
	if errors.As(err, &de) {
		return fmt.Sprintf("%s: %s", de.Bus, de.Message)
	}
	return err.Error()
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
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

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("X10GATE - ERROR DETECTION"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s | Mode: %s | 'r' reset, 'q' quit",
		m.linkName, strings.ToUpper(m.device.String()), mode)))
	s.WriteString("\n\n")

	if m.linkErr != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Link closed: %v", m.linkErr)))
		s.WriteString("\n\n")
	}

	// Statistics
	m.stats.CalculateRates()
	errorsTotal := m.stats.Errors()
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(errorsTotal) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", errorsTotal, errorPercent)),
	))

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("PL:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.PLFrames)),
		statsLabelStyle.Render("RF:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.RFFrames)),
		statsLabelStyle.Render("Security:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.SecurityFrames)),
		statsLabelStyle.Render("Acks:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Acks)),
	))

	if m.stats.ChecksumErrors > 0 || m.stats.ParityErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Checksum:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
			statsLabelStyle.Render("Parity:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ParityErrors)),
		))
	}

	if m.stats.LengthErrors > 0 || m.stats.Unsupported > 0 || m.stats.UnknownCamera > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Length:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.LengthErrors)),
			statsLabelStyle.Render("Unsupported:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Unsupported)),
			statsLabelStyle.Render("Camera:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.UnknownCamera)),
		))
	}

	errorRate := statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
	if m.stats.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), errorRate,
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	if m.lastSecurity != nil {
		s.WriteString(statsLabelStyle.Render("Last Security Report:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(fmt.Sprintf("%s %s   %s %s   %s",
			statsLabelStyle.Render("Addr:"), statsValueStyle.Render(fmt.Sprintf("%06X", m.lastSecurity.addr)),
			statsLabelStyle.Render("Func:"), statsValueStyle.Render(m.lastSecurity.name),
			headerStyle.Render(m.lastSecurity.timestamp.Format("15:04:05")),
		)))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 15
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
