// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/x10gate/pkg/transport"
	"github.com/Thermoquad/x10gate/pkg/x10"
)

// PasswordEnv holds the WebSocket password when set
const PasswordEnv = "X10GATE_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenLink opens the controller link described by the loaded configuration
func OpenLink() (transport.Link, error) {
	opts := cfg.TransportOptions()
	if opts.URL != "" && opts.Username != "" && opts.Password == "" {
		pw, err := GetPassword()
		if err != nil {
			return nil, err
		}
		opts.Password = pw
	}
	if opts.URL == "" && opts.Port == "" {
		return nil, fmt.Errorf("either --port or --url must be specified")
	}
	return transport.Open(opts)
}

// closeOnDone closes the link when ctx ends, releasing a blocked ReadFrame
func closeOnDone(ctx context.Context, link transport.Link) {
	<-ctx.Done()
	link.Close()
}

// deviceModel returns the configured controller model
func deviceModel() x10.Model {
	m, err := x10.ParseModel(cfg.Device.Model)
	if err != nil {
		// Validated in loadSettings
		return x10.ModelCM15A
	}
	return m
}
