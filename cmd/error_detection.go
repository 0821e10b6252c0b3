// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/transport"
	"github.com/Thermoquad/x10gate/pkg/x10"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and errors",
	Long: `Track frame errors and decode statistics on the controller link.

This command decodes each transfer and detects:
  - RF checksum errors (complement byte mismatch)
  - RF security parity errors
  - Length errors (power-line length byte mismatch, runts, oversize)
  - Unsupported frame types and unknown camera commands
  - Statistics and trends (frame rate, error rate, acknowledgments)

By default, only errors are displayed. Use --show-all to display valid frames too.
Nothing is transmitted, so the controller is observed without being driven.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	link, err := OpenLink()
	if err != nil {
		return err
	}
	defer link.Close()

	if useTUI {
		return runTUIMode(link)
	}
	return runTextMode(link)
}

// decodeTransfer decodes one inbound transfer the way the gateway does
func decodeTransfer(dec *x10.Decoder, frame []byte) frameMsg {
	if len(frame) == 1 {
		return frameMsg{frame: frame, ack: true}
	}
	ev, err := dec.Decode(frame)
	return frameMsg{frame: frame, event: ev, err: err}
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(frame []byte, err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %s\n", timestamp, describeDecodeError(err))
	fmt.Printf("  Frame: %s\n", x10.Hexdump(frame))
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(link transport.Link) error {
	dec := x10.NewDecoder(deviceModel())

	m := initialModel(link.String(), deviceModel(), showAll)
	p := tea.NewProgram(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan []byte, 16)
	go func() {
		err := transport.Pump(ctx, link, frames)
		if err != nil {
			p.Send(linkClosedMsg{err: err})
		}
	}()
	go func() {
		for frame := range frames {
			p.Send(decodeTransfer(dec, frame))
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(link transport.Link) error {
	fmt.Printf("x10gate - Error Detection Mode\n")
	fmt.Printf("Connection: %s (%s)\n", link, deviceModel())
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	dec := x10.NewDecoder(deviceModel())
	stats := x10.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	ctx := signalContext()
	frames := make(chan []byte, 16)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- transport.Pump(ctx, link, frames) }()
	go closeOnDone(ctx, link)

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				fmt.Println()
				fmt.Print(stats.String())
				return <-pumpErr
			}
			msg := decodeTransfer(dec, frame)
			if msg.ack {
				stats.RecordAck()
				continue
			}
			stats.Update(msg.event, msg.err)

			switch {
			case msg.err != nil:
				printDecodeError(frame, msg.err)
			case msg.event != nil && showAll:
				fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), msg.event)
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
