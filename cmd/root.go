// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/config"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
	cm19a      bool

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// cfg is loaded before any command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "x10gate",
	Short: "X10 CM15A/CM19A gateway",
	Long: `x10gate - A gateway daemon and toolkit for X10 CM15A and CM19A controllers.

The serve command exposes the controller to line-oriented TCP clients and,
optionally, an MQTT broker. The remaining commands help diagnose the
controller link and exercise the frame codec.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings are read from --config (or x10gate.yaml when present); flags given
on the command line override the file.

For WebSocket authentication, the password is read from the X10GATE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default x10gate.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().BoolVar(&cm19a, "cm19a", false, "Controller is an RF-only CM19A")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadSettings reads the configuration file, applies flag overrides and
// configures logging
func loadSettings(cmd *cobra.Command, args []string) error {
	var err error
	switch {
	case configPath != "":
		cfg, err = config.Load(configPath)
	case fileExists(config.DefaultPath):
		configPath = config.DefaultPath
		cfg, err = config.Load(configPath)
	default:
		cfg = config.Default()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-json") && logJSON {
		cfg.Log.Format = "json"
	}
	if flags.Changed("cm19a") && cm19a {
		cfg.Device.Model = "cm19a"
	}
	if flags.Changed("port") {
		cfg.Device.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Device.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Device.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Device.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Device.NoSSLVerify = wsNoSSLVerify
	}

	setupLogging(cfg.Log)
	if configPath != "" {
		log.Debug().Str("config", configPath).Msg("Configuration loaded")
	}
	return cfg.Validate()
}

func setupLogging(lc config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if lc.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    !lc.Colors,
		})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
