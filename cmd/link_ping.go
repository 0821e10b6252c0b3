// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/transport"
	"github.com/Thermoquad/x10gate/pkg/x10"
)

var errLinkLost = errors.New("link lost")

var (
	linkPingTimeout int
	linkPingCount   int
	linkPingCommand string
)

var linkPingCmd = &cobra.Command{
	Use:   "link_ping",
	Short: "Test the controller link by sending a frame and waiting for its ack",
	Long: `Send a command to the controller and wait for the one-byte acknowledgment.

The controller acknowledges every transfer it accepts, so the time to the ack
measures the round trip through the link. The default command is
"PL P16 STATUS_REQUEST" on a CM15A and "RF P16 OFF" on a CM19A; use
--command to pick one that is harmless on your installation.

This is useful for verifying:
  - The serial port or WebSocket bridge is passing transfers both ways
  - HTTP Basic authentication works
  - The controller is initialized and accepting frames

Exit codes:
  0 - All pings acknowledged
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runLinkPing,
}

func init() {
	rootCmd.AddCommand(linkPingCmd)
	linkPingCmd.Flags().IntVar(&linkPingTimeout, "timeout", 2, "Timeout in seconds for each ack")
	linkPingCmd.Flags().IntVar(&linkPingCount, "count", 3, "Number of pings to send")
	linkPingCmd.Flags().StringVar(&linkPingCommand, "command", "", "Command line to send")
}

// pingFrames encodes the ping command into controller transfers
func pingFrames(m x10.Model, line string) ([][]byte, error) {
	if line == "" {
		line = "PL P16 STATUS_REQUEST"
		if m == x10.ModelCM19A {
			line = "RF P16 OFF"
		}
	}
	cmd, err := x10.ParseCommand(line)
	if err != nil {
		return nil, err
	}
	frames, err := x10.NewEncoder(m).Encode(cmd)
	if err != nil {
		return nil, err
	}
	wire := make([][]byte, len(frames))
	for i, f := range frames {
		wire[i] = f.Wire
	}
	return wire, nil
}

func runLinkPing(cmd *cobra.Command, args []string) error {
	frames, err := pingFrames(deviceModel(), linkPingCommand)
	if err != nil {
		return err
	}

	link, err := OpenLink()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()

	fmt.Printf("x10gate - Link Ping Test\n")
	fmt.Printf("Connection: %s (%s)\n", link, deviceModel())
	fmt.Printf("Timeout: %d seconds per ack\n", linkPingTimeout)
	fmt.Printf("Count: %d pings of %d frame(s)\n\n", linkPingCount, len(frames))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inbound := make(chan []byte, 16)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- transport.Pump(ctx, link, inbound) }()

	successCount := 0
	failCount := 0
	timeout := time.Duration(linkPingTimeout) * time.Second

	for i := 1; i <= linkPingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, linkPingCount)

		startTime := time.Now()
		if err := awaitAcks(link, frames, inbound, pumpErr, timeout); err != nil {
			fmt.Printf("%v\n", err)
			failCount++
			if errors.Is(err, errLinkLost) {
				linkPingCount = i
				break
			}
		} else {
			fmt.Printf("ACK, rtt=%v\n", time.Since(startTime).Round(time.Millisecond))
			successCount++
		}

		// Power-line frames take about a second on the wire
		if i < linkPingCount {
			time.Sleep(500 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d acknowledged, %.0f%% loss\n",
		linkPingCount, successCount, float64(failCount)/float64(linkPingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// awaitAcks writes each frame and waits for its ack, skipping any other
// inbound traffic
func awaitAcks(link transport.Link, frames [][]byte, inbound <-chan []byte, pumpErr <-chan error, timeout time.Duration) error {
	for _, frame := range frames {
		if err := link.WriteFrame(frame); err != nil {
			return fmt.Errorf("SEND FAILED: %w", err)
		}

		deadline := time.After(timeout)
	wait:
		for {
			select {
			case in, ok := <-inbound:
				if !ok {
					return fmt.Errorf("READ FAILED: %w: %v", errLinkLost, <-pumpErr)
				}
				if len(in) == 1 {
					break wait
				}
			case <-deadline:
				return fmt.Errorf("TIMEOUT (no ack in %v)", timeout)
			}
		}
	}
	return nil
}
