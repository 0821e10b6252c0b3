// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the daemon configuration from YAML
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/x10gate/pkg/gateway"
	"github.com/Thermoquad/x10gate/pkg/outqueue"
	"github.com/Thermoquad/x10gate/pkg/transport"
	"github.com/Thermoquad/x10gate/pkg/x10"
)

// DefaultPath is read when no --config flag is given and the file exists
const DefaultPath = "x10gate.yaml"

// Config represents the daemon configuration
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Device DeviceConfig `yaml:"device"`
	Server ServerConfig `yaml:"server"`
	Queue  QueueConfig  `yaml:"queue"`
	Bridge BridgeConfig `yaml:"bridge"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	Colors bool   `yaml:"colors"`
}

// DeviceConfig selects the controller and the link to it
type DeviceConfig struct {
	Model       string   `yaml:"model"` // cm15a or cm19a
	Port        string   `yaml:"port"`
	Baud        int      `yaml:"baud"`
	URL         string   `yaml:"url"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	NoSSLVerify bool     `yaml:"no_ssl_verify"`
	FrameGap    Duration `yaml:"frame_gap"`
	Init        bool     `yaml:"init"` // queue the controller init sequence at start
}

// ServerConfig contains TCP line server settings
type ServerConfig struct {
	Listen       string `yaml:"listen"`
	MaxClients   int    `yaml:"max_clients"`
	LineLimit    int    `yaml:"line_limit"`
	ClientBuffer int    `yaml:"client_buffer"` // outbound lines buffered per client
}

// QueueConfig contains output queue settings
type QueueConfig struct {
	Capacity   int      `yaml:"capacity"`
	AckTimeout Duration `yaml:"ack_timeout"`
}

// BridgeConfig contains the start-up repeat/bridge policy
type BridgeConfig struct {
	RfToPl string `yaml:"rf_to_pl"` // house list, "*" for all
	RfToRf uint16 `yaml:"rf_to_rf"`
}

// MQTTConfig contains broker bridge settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
	Payload     string `yaml:"payload"` // text or cbor
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{
		Device: DeviceConfig{Init: true},
		Bridge: BridgeConfig{RfToPl: "*"},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration YAML, expanding ${VAR} and ${VAR:default}
// references first
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	// Unmarshal over the defaults so omitted booleans and house lists keep
	// their default values
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.Device.Model == "" {
		c.Device.Model = "cm15a"
	}
	if c.Device.Baud == 0 {
		c.Device.Baud = 115200
	}
	if c.Device.FrameGap == 0 {
		c.Device.FrameGap = Duration(transport.DefaultFrameGap)
	}

	if c.Server.Listen == "" {
		c.Server.Listen = ":1099"
	}
	if c.Server.MaxClients <= 0 {
		c.Server.MaxClients = 16
	}
	if c.Server.LineLimit <= 0 {
		c.Server.LineLimit = gateway.DefaultLineLimit
	}
	if c.Server.ClientBuffer <= 0 {
		c.Server.ClientBuffer = 256
	}

	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = outqueue.DefaultCapacity
	}
	if c.Queue.AckTimeout == 0 {
		c.Queue.AckTimeout = Duration(outqueue.DefaultAckTimeout)
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "x10gate-" + uuid.New().String()[:8]
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "x10gate"
	}
	if c.MQTT.Payload == "" {
		c.MQTT.Payload = "text"
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	var errs []error

	if _, err := x10.ParseModel(c.Device.Model); err != nil {
		errs = append(errs, fmt.Errorf("device.model: %w", err))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be console or json, got %q", c.Log.Format))
	}
	if c.Queue.Capacity < 2 {
		errs = append(errs, fmt.Errorf("queue.capacity: must be at least 2, got %d", c.Queue.Capacity))
	}
	if _, err := x10.ParseHouseList(c.Bridge.RfToPl); err != nil {
		errs = append(errs, fmt.Errorf("bridge.rf_to_pl: %w", err))
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker: required when mqtt is enabled"))
		}
		if c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt.qos: must be 0, 1 or 2, got %d", c.MQTT.QoS))
		}
		if c.MQTT.Payload != "text" && c.MQTT.Payload != "cbor" {
			errs = append(errs, fmt.Errorf("mqtt.payload: must be text or cbor, got %q", c.MQTT.Payload))
		}
	}

	return errors.Join(errs...)
}

// GatewayConfig converts the settings the gateway loop needs
func (c *Config) GatewayConfig() (gateway.Config, error) {
	model, err := x10.ParseModel(c.Device.Model)
	if err != nil {
		return gateway.Config{}, err
	}
	houses, err := x10.ParseHouseList(c.Bridge.RfToPl)
	if err != nil {
		return gateway.Config{}, err
	}

	gc := gateway.DefaultConfig()
	gc.Model = model
	gc.QueueCapacity = c.Queue.Capacity
	gc.AckTimeout = c.Queue.AckTimeout.Duration()
	gc.RfToPl = houses
	gc.RfToRf = c.Bridge.RfToRf
	return gc, nil
}

// TransportOptions converts the device link settings
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		Port:          c.Device.Port,
		BaudRate:      c.Device.Baud,
		FrameGap:      c.Device.FrameGap.Duration(),
		URL:           c.Device.URL,
		Username:      c.Device.Username,
		Password:      c.Device.Password,
		SkipSSLVerify: c.Device.NoSSLVerify,
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := strings.TrimSpace(parts[1])
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
