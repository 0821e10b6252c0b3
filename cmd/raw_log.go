// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/gateway"
	"github.com/Thermoquad/x10gate/pkg/transport"
	"github.com/Thermoquad/x10gate/pkg/x10"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded frames in human-readable format",
	Long: `Continuously decode and display X10 frames as they arrive.

Each frame is printed as the same timestamped line the daemon sends to its
clients. Nothing is transmitted and no device state is kept. Run with
--log-level debug to also see a hexdump of every transfer.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	link, err := OpenLink()
	if err != nil {
		return err
	}
	defer link.Close()

	fmt.Printf("x10gate - Raw Frame Log\n")
	fmt.Printf("Connection: %s (%s)\n", link, deviceModel())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	dec := x10.NewDecoder(deviceModel())

	for {
		frame, err := link.ReadFrame()
		if err != nil {
			if errors.Is(err, transport.ErrConnectionClosed) {
				log.Info().Msg("Connection closed")
				return nil
			}
			return err
		}

		for _, line := range rawLogLines(dec, frame) {
			fmt.Println(time.Now().Format(gateway.TimestampLayout) + line)
		}
	}
}

// rawLogLines returns the lines printed for one transfer
func rawLogLines(dec *x10.Decoder, frame []byte) []string {
	if len(frame) == 1 {
		log.Debug().Hex("frame", frame).Msg("Ack")
		return nil
	}

	ev, err := dec.Decode(frame)
	if err != nil {
		var de *x10.DecodeError
		if errors.As(err, &de) && de.Reported() {
			return de.Lines()
		}
		log.Warn().Err(err).Hex("frame", frame).Msg("Rejected frame")
		return nil
	}
	if ev == nil {
		log.Debug().Hex("frame", frame).Msg("Ignored frame")
		return nil
	}
	return []string{ev.String()}
}
