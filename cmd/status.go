// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusTimeout int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the device status report of a running daemon",
	Long: `Send "st" to a running daemon and print its status report.

The report lists the selected units per house, the last known on/off state of
every addressed unit and each security sensor seen, and ends with an
"End status" marker.

Exit codes:
  0 - Report received
  1 - No end-of-report marker before timeout
  2 - Connection error`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	addDaemonAddrFlag(statusCmd)
	statusCmd.Flags().IntVar(&statusTimeout, "timeout", 5, "Timeout in seconds for the report")
}

// statusSummary counts what a status report lists
type statusSummary struct {
	houses  int
	sensors int
	done    bool
}

// add records one report line and returns true at the end marker
func (s *statusSummary) add(line string) bool {
	switch {
	case line == "End status":
		s.done = true
	case strings.HasPrefix(line, "Sensor addr:"):
		s.sensors++
	case strings.HasPrefix(line, "House "):
		s.houses++
	}
	return s.done
}

func runStatus(cmd *cobra.Command, args []string) error {
	conn, err := dialDaemon(daemonAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("x10gate - Device Status\n")
	fmt.Printf("Daemon: %s\n", daemonAddr)
	fmt.Printf("Timeout: %d seconds\n\n", statusTimeout)

	if _, err := fmt.Fprintf(conn, "st\n"); err != nil {
		fmt.Printf("SEND FAILED: %v\n", err)
		os.Exit(2)
	}

	var summary statusSummary
	deadline := time.Now().Add(time.Duration(statusTimeout) * time.Second)
	conn.SetDeadline(deadline)
	err = readUntilIdle(conn, time.Until(deadline), func(line string) bool {
		text := stripTimestamp(line)
		// Rx/Tx broadcasts from other clients can interleave with the report
		if strings.HasPrefix(text, "Rx ") || strings.HasPrefix(text, "Tx ") {
			return false
		}
		fmt.Println(text)
		return summary.add(text)
	})
	if err != nil {
		fmt.Printf("READ FAILED: %v\n", err)
		os.Exit(2)
	}

	if !summary.done {
		fmt.Printf("\nTIMEOUT: No end-of-report marker received in %ds\n", statusTimeout)
		os.Exit(1)
	}

	fmt.Printf("\n--- Status summary ---\n")
	fmt.Printf("House lines: %d\n", summary.houses)
	fmt.Printf("Security sensors: %d\n", summary.sensors)
	return nil
}
