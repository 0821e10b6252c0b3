// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/transport"
	"github.com/Thermoquad/x10gate/pkg/x10"
)

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Test raw controller link stability",
	Long: `Test the controller link without transmitting anything.

This command opens the serial port or WebSocket and just waits, logging each
transfer received and any error encountered. Useful for debugging connection
stability issues on long-running bridges.

Exit codes:
  0 - Test completed normally
  1 - Test failed
  2 - Connection error`,
	RunE: runLinkCheck,
}

var linkCheckDuration int

func init() {
	rootCmd.AddCommand(linkCheckCmd)
	linkCheckCmd.Flags().IntVar(&linkCheckDuration, "duration", 30, "Test duration in seconds")
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	link, err := OpenLink()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()

	duration := time.Duration(linkCheckDuration) * time.Second
	fmt.Printf("x10gate - Link Stability Test\n")
	fmt.Printf("Connection: %s (%s)\n", link, deviceModel())
	fmt.Printf("Duration: %v\n\n", duration)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()
	go closeOnDone(ctx, link)

	frames := make(chan []byte, 100)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- transport.Pump(ctx, link, frames) }()

	start := time.Now()
	transfers := 0
	acks := 0
	bytesReceived := 0

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	fmt.Printf("Listening for transfers...\n\n")

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				if err := <-pumpErr; err != nil {
					fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
					printLinkCheckResults(time.Since(start), transfers, acks, bytesReceived)
					fmt.Printf("Result: FAILED (connection error)\n")
					os.Exit(1)
				}
				printLinkCheckResults(time.Since(start), transfers, acks, bytesReceived)
				fmt.Printf("Result: PASSED (connection stable)\n")
				return nil
			}
			transfers++
			bytesReceived += len(frame)
			if len(frame) == 1 {
				acks++
			}
			fmt.Printf("[%s] Received %d bytes: %s\n",
				time.Now().Format("15:04:05.000"), len(frame), x10.Hexdump(frame))

		case <-heartbeat.C:
			remaining := time.Until(start.Add(duration)).Seconds()
			if remaining > 0 {
				fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
					time.Now().Format("15:04:05.000"), remaining)
			}
		}
	}
}

func printLinkCheckResults(elapsed time.Duration, transfers, acks, bytesReceived int) {
	fmt.Printf("\n--- Test Results ---\n")
	fmt.Printf("Duration: %v\n", elapsed.Round(time.Second))
	fmt.Printf("Transfers received: %d (%d acks)\n", transfers, acks)
	fmt.Printf("Bytes received: %d\n", bytesReceived)
}
