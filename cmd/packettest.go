// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid X10 frame",
	Long: `Wait for a valid X10 frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
power-line or RF frame that decodes cleanly. Acknowledgments, clock requests
and frames failing their checksum or parity check are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Press a remote button or switch a module while the test runs.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	link, err := OpenLink()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()

	fmt.Printf("x10gate - Packet Test\n")
	fmt.Printf("Connection: %s (%s)\n", link, deviceModel())
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid X10 frame...\n\n")

	dec := x10.NewDecoder(deviceModel())

	eventChan := make(chan *x10.Event, 1)
	errChan := make(chan error, 1)

	go func() {
		rejected := 0
		for {
			frame, err := link.ReadFrame()
			if err != nil {
				errChan <- err
				return
			}
			if len(frame) == 1 {
				continue
			}

			ev, decodeErr := dec.Decode(frame)
			if decodeErr != nil {
				rejected++
				continue
			}
			if ev != nil {
				if rejected > 0 {
					fmt.Printf("(skipped %d invalid frames)\n", rejected)
				}
				eventChan <- ev
				return
			}
		}
	}()

	select {
	case ev := <-eventChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Event: %s\n", ev)
		fmt.Printf("  Kind: %s\n", ev.Kind)
		fmt.Printf("  Bus: %s\n", ev.Bus())
		fmt.Printf("  Frame: %s\n", x10.Hexdump(ev.Frame))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
