// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package broker bridges the gateway to an MQTT broker. Broadcast output is
// published to <prefix>/events and command lines are read from
// <prefix>/commands.
package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/Thermoquad/x10gate/pkg/gateway"
	"github.com/Thermoquad/x10gate/pkg/x10"
)

// Payload formats
const (
	PayloadText = "text"
	PayloadCBOR = "cbor"
)

// Topic suffixes
const (
	EventsTopic   = "events"
	CommandsTopic = "commands"
)

const (
	connectTimeout = 10 * time.Second
	quiesceMillis  = 250
)

// Submitter accepts command lines
type Submitter interface {
	Submit(ctx context.Context, origin, line string) error
}

// Config configures the bridge
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	Payload     string
	Username    string
	Password    string
}

// Bridge publishes gateway output and submits received commands. It is a
// gateway.Sink.
type Bridge struct {
	cfg    Config
	gw     Submitter
	client paho.Client
	origin string
	ctx    context.Context
}

// New creates an unconnected bridge
func New(gw Submitter, cfg Config) *Bridge {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "x10gate"
	}
	if cfg.Payload == "" {
		cfg.Payload = PayloadText
	}
	b := &Bridge{
		cfg:    cfg,
		gw:     gw,
		origin: "mqtt:" + cfg.ClientID,
		ctx:    context.Background(),
	}

	opts := paho.NewClientOptions().AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c paho.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("Connected to MQTT broker")
		// Subscriptions do not survive a clean-session reconnect
		token := c.Subscribe(b.Topic(CommandsTopic), cfg.QoS, b.handleCommand)
		go func() {
			if token.Wait() && token.Error() != nil {
				log.Error().Err(token.Error()).Str("topic", b.Topic(CommandsTopic)).Msg("MQTT subscribe failed")
			}
		}()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})
	b.client = paho.NewClient(opts)
	return b
}

// Topic returns the full topic for a suffix
func (b *Bridge) Topic(suffix string) string {
	return b.cfg.TopicPrefix + "/" + suffix
}

// Origin is the client id used for commands received from the broker
func (b *Bridge) Origin() string {
	return b.origin
}

// Run connects and stays connected until ctx is cancelled
func (b *Bridge) Run(ctx context.Context) error {
	b.ctx = ctx

	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn().Str("broker", b.cfg.Broker).Msg("MQTT connect timed out, retrying in background")
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", b.cfg.Broker, err)
	}

	<-ctx.Done()
	b.client.Disconnect(quiesceMillis)
	log.Info().Msg("Disconnected from MQTT broker")
	return nil
}

// Deliver implements gateway.Sink. Broadcasts and replies to broker
// commands are published; replies to TCP clients are not.
func (b *Bridge) Deliver(msg gateway.Message) {
	if msg.To != gateway.Broadcast && msg.To != b.origin {
		return
	}

	payload, err := b.encode(msg)
	if err != nil {
		log.Error().Err(err).Str("text", msg.Text).Msg("Failed to encode MQTT payload")
		return
	}

	topic := b.Topic(EventsTopic)
	token := b.client.Publish(topic, b.cfg.QoS, b.cfg.Retain, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

func (b *Bridge) encode(msg gateway.Message) ([]byte, error) {
	if b.cfg.Payload != PayloadCBOR {
		return []byte(msg.Line()), nil
	}
	if msg.Event != nil {
		return x10.EncodeEventCBOR(msg.Event, msg.Text, msg.Time)
	}
	return x10.EncodeTextCBOR(msg.Text, msg.Time)
}

// handleCommand submits every line of a command message
func (b *Bridge) handleCommand(_ paho.Client, m paho.Message) {
	lines, err := b.decode(m.Payload())
	if err != nil {
		log.Warn().Err(err).Str("topic", m.Topic()).Msg("Ignoring MQTT command")
		return
	}
	for _, line := range lines {
		log.Debug().Str("topic", m.Topic()).Str("line", line).Msg("MQTT command")
		if err := b.gw.Submit(b.ctx, b.origin, line); err != nil {
			return
		}
	}
}

func (b *Bridge) decode(payload []byte) ([]string, error) {
	if b.cfg.Payload == PayloadCBOR {
		line, err := x10.CommandFromCBOR(payload)
		if err != nil {
			return nil, err
		}
		return []string{line}, nil
	}

	var lines []string
	for _, l := range strings.Split(string(payload), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}
