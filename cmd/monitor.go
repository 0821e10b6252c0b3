// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for a running x10gate daemon",
	Long: `Watch and drive a running daemon via an interactive terminal UI.

This command connects to the daemon's line protocol port, shows every line
the daemon broadcasts and lets you type commands such as "pl a1 on",
"rf b2 off" or "st".

Features:
  - Live Rx/Tx event log
  - Command entry with history (Tab switches to the history list,
    Enter on a history item sends it again)
  - Line counters
  - Automatic reconnection on connection loss`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	addDaemonAddrFlag(monitorCmd)
}

// daemonConn handles connection lifecycle and reconnection
type daemonConn struct {
	addr string
	conn net.Conn
	mu   sync.RWMutex
	p    *tea.Program
	done chan struct{}
}

func (dc *daemonConn) getConn() net.Conn {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.conn
}

func (dc *daemonConn) setConn(conn net.Conn) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.conn = conn
}

// send writes one command line to the daemon
func (dc *daemonConn) send(line string) error {
	conn := dc.getConn()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	_, err := conn.Write([]byte(line + "\n"))
	return err
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, err := dialDaemon(daemonAddr)
	if err != nil {
		return err
	}

	dc := &daemonConn{
		addr: daemonAddr,
		conn: conn,
		done: make(chan struct{}),
	}

	m := initialMonitorModel(dc, daemonAddr)
	p := tea.NewProgram(m, tea.WithAltScreen())
	dc.p = p

	go dc.readerLoop()

	_, runErr := p.Run()
	close(dc.done)
	if conn := dc.getConn(); conn != nil {
		conn.Close()
	}
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// readerLoop reads lines with automatic reconnection
func (dc *daemonConn) readerLoop() {
	for {
		select {
		case <-dc.done:
			return
		default:
		}

		if !dc.readFromConnection() {
			return
		}

		dc.p.Send(connectionLostMsg{})
		if !dc.reconnect() {
			return
		}
	}
}

// readFromConnection forwards lines until the connection fails.
// Returns true if the connection was lost, false if shutdown was requested.
func (dc *daemonConn) readFromConnection() bool {
	lines := make(chan string, 100)
	readerDone := make(chan struct{})

	go func() {
		defer close(readerDone)
		conn := dc.getConn()
		if conn == nil {
			return
		}
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			default:
				log.Debug().Msg("Monitor falling behind, dropping line")
			}
		}
	}()

	// Batch lines to the TUI at a fixed rate
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-dc.done:
				return
			case <-readerDone:
				dc.flush(lines)
				return
			case <-ticker.C:
				dc.flush(lines)
			}
		}
	}()

	<-readerDone

	select {
	case <-dc.done:
		return false
	default:
		return true
	}
}

// flush sends every queued line as one batch
func (dc *daemonConn) flush(lines <-chan string) {
	var batch monitorBatchMsg
	for {
		select {
		case line := <-lines:
			batch.lines = append(batch.lines, line)
		default:
			if len(batch.lines) > 0 {
				dc.p.Send(batch)
			}
			return
		}
	}
}

// reconnect dials again with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (dc *daemonConn) reconnect() bool {
	if conn := dc.getConn(); conn != nil {
		conn.Close()
	}
	dc.setConn(nil)

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-dc.done:
			return false
		case <-time.After(backoff):
		}

		conn, err := dialDaemon(dc.addr)
		if err == nil {
			dc.setConn(conn)
			dc.p.Send(reconnectedMsg{addr: dc.addr})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
