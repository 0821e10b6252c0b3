// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/gateway"
	"github.com/Thermoquad/x10gate/pkg/server"
)

var (
	daemonAddr string
	sendWait   time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <command>...",
	Short: "Send one command line to a running daemon",
	Long: `Connect to a running daemon, send the arguments as one command line and
print every line received until the connection has been idle for --wait.

Examples:
  x10gate send pl a1 on
  x10gate send rf b2 dim
  x10gate send rftopl a,c`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addDaemonAddrFlag(sendCmd)
	sendCmd.Flags().DurationVarP(&sendWait, "wait", "w", time.Second, "Idle time before disconnecting")
}

// addDaemonAddrFlag registers the shared --addr flag
func addDaemonAddrFlag(c *cobra.Command) {
	c.Flags().StringVarP(&daemonAddr, "addr", "a", "localhost"+server.DefaultAddr, "Daemon address (host:port)")
}

// dialDaemon connects to the daemon's line protocol port
func dialDaemon(addr string) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return conn, nil
}

// stripTimestamp removes the daemon's timestamp prefix from a line
func stripTimestamp(line string) string {
	n := len(gateway.TimestampLayout)
	if len(line) < n {
		return line
	}
	if _, err := time.Parse(gateway.TimestampLayout, line[:n]); err != nil {
		return line
	}
	return line[n:]
}

func runSend(cmd *cobra.Command, args []string) error {
	conn, err := dialDaemon(daemonAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	line := strings.Join(args, " ")
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	return readUntilIdle(conn, sendWait, func(l string) bool {
		fmt.Fprintln(os.Stdout, l)
		return false
	})
}

// readUntilIdle passes each received line to fn until fn returns true, the
// connection stays quiet for idle, or it closes
func readUntilIdle(conn net.Conn, idle time.Duration, fn func(string) bool) error {
	r := bufio.NewReader(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(idle))
		l, err := r.ReadString('\n')
		if l != "" {
			if fn(strings.TrimRight(l, "\r\n")) {
				return nil
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}
