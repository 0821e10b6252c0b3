// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex bytes]",
	Short: "Decode captured frames without a controller",
	Long: `Decode one frame given as hex bytes on the command line, or one frame per
line from standard input when no arguments are given.

Frames are the raw controller transfers, starting with the 0x5A (power-line)
or 0x5D (RF) marker. Use --cm19a for frames captured from a CM19A.

Examples:
  x10gate decode 5D 20 60 9F 00 FF
  x10gate decode --cm19a 20 60 9F 00 FF
  printf '5A 02 00 66\n5D 20 60 9F 00 FF\n' | x10gate decode`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	dec := x10.NewDecoder(deviceModel())

	if len(args) > 0 {
		lines, err := decodeHex(dec, strings.Join(args, " "))
		if err != nil {
			return err
		}
		printLines(lines)
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		lines, err := decodeHex(dec, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			continue
		}
		printLines(lines)
	}
	return scanner.Err()
}

// decodeHex decodes one hex-encoded frame into output lines
func decodeHex(dec *x10.Decoder, text string) ([]string, error) {
	frame, err := x10.ParseHex(text)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", text, err)
	}
	if len(frame) == 0 {
		return nil, nil
	}
	if len(frame) == 1 {
		return []string{"Ack " + x10.Hexdump(frame)}, nil
	}

	ev, err := dec.Decode(frame)
	if err != nil {
		var de *x10.DecodeError
		if errors.As(err, &de) {
			return append([]string{fmt.Sprintf("Rejected %s frame", de.Bus)}, de.Lines()...), nil
		}
		return nil, err
	}
	if ev == nil {
		return []string{"Ignored " + x10.Hexdump(frame)}, nil
	}
	return []string{ev.String()}, nil
}

func printLines(lines []string) {
	for _, l := range lines {
		fmt.Println(l)
	}
}
