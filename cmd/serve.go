// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/x10gate/pkg/broker"
	"github.com/Thermoquad/x10gate/pkg/gateway"
	"github.com/Thermoquad/x10gate/pkg/server"
	"github.com/Thermoquad/x10gate/pkg/transport"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway daemon",
	Long: `Open the controller link and serve line clients over TCP.

Every decoded frame is reported to all clients as a timestamped line. Lines
received from a client are parsed as commands (PL, RF, PT, ST, RFTOPL,
RFTORF) and answered on that client's connection. When mqtt.enabled is set,
broadcast lines are also published to <topic_prefix>/events and commands are
read from <topic_prefix>/commands.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "TCP listen address (default :1099)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen = serveListen
	}

	gc, err := cfg.GatewayConfig()
	if err != nil {
		return err
	}

	link, err := OpenLink()
	if err != nil {
		return err
	}
	defer link.Close()
	log.Info().Str("link", link.String()).Str("model", gc.Model.String()).Msg("Controller link open")

	gw, err := gateway.New(link, gc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(signalContext())
	defer cancel()

	errs := make(chan error, 3)

	srv := server.New(gw, server.Config{
		Addr:         cfg.Server.Listen,
		MaxClients:   cfg.Server.MaxClients,
		LineLimit:    cfg.Server.LineLimit,
		ClientBuffer: cfg.Server.ClientBuffer,
	})
	gw.AddSink(srv)
	go func() {
		if err := srv.Run(ctx); err != nil {
			errs <- err
			cancel()
		}
	}()

	if cfg.MQTT.Enabled {
		bridge := broker.New(gw, broker.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
			Retain:      cfg.MQTT.Retain,
			Payload:     cfg.MQTT.Payload,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
		})
		gw.AddSink(bridge)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				errs <- err
				cancel()
			}
		}()
	}

	frames := make(chan []byte, 16)
	go func() {
		if err := transport.Pump(ctx, link, frames); err != nil {
			log.Error().Err(err).Msg("Controller link failed")
		}
	}()

	if cfg.Device.Init {
		if err := gw.Initialize(); err != nil {
			return err
		}
	}

	runErr := gw.Run(ctx, frames)
	cancel()
	// Unblocks the pump's pending read
	link.Close()

	select {
	case err := <-errs:
		return err
	default:
	}
	if runErr != nil {
		return runErr
	}
	log.Info().Msg("Gateway stopped")
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
