// Package config loads the application configuration from YAML. The
// loaded value is constructed once in main and passed by reference to
// every component that needs it; there is no global instance.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vaultecki/py-positioning-stuff/internal/resilience"
)

type Config struct {
	Network    NetworkConfig    `yaml:"network"`
	GPS        GPSConfig        `yaml:"gps"`
	Storage    StorageConfig    `yaml:"storage"`
	Web        WebConfig        `yaml:"web"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type NetworkConfig struct {
	// UDPAddress/UDPPort is the default send destination.
	UDPAddress string `yaml:"udp_address"`
	UDPPort    int    `yaml:"udp_port"`
	// ReceivePort is the listen port of the receiver.
	ReceivePort  int           `yaml:"receive_port"`
	BufferSize   int           `yaml:"buffer_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type GPSConfig struct {
	MaxStoredPositions   int           `yaml:"max_stored_positions"`
	TimeBetweenPositions time.Duration `yaml:"time_between_positions"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Addr   string `yaml:"addr"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type ResilienceConfig struct {
	Retry   resilience.RetryConfig   `yaml:"retry"`
	Breaker resilience.BreakerConfig `yaml:"breaker"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			UDPAddress:   "127.0.0.1",
			UDPPort:      19711,
			ReceivePort:  19710,
			BufferSize:   4096,
			PollInterval: 250 * time.Millisecond,
		},
		GPS: GPSConfig{
			MaxStoredPositions:   1000,
			TimeBetweenPositions: 1 * time.Second,
		},
		Storage: StorageConfig{Dir: "data"},
		Web:     WebConfig{Enable: true, Addr: ":8080"},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "gpsnode",
			Topic:    "gps/position",
		},
		Resilience: ResilienceConfig{
			Retry:   resilience.DefaultRetryConfig(),
			Breaker: resilience.DefaultBreakerConfig(),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path, fills defaults and validates. A
// missing file is not an error: the defaults are returned.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Network.UDPPort <= 0 || cfg.Network.UDPPort > 65535 {
		return Config{}, fmt.Errorf("network.udp_port %d out of range", cfg.Network.UDPPort)
	}
	if cfg.Network.ReceivePort <= 0 || cfg.Network.ReceivePort > 65535 {
		return Config{}, fmt.Errorf("network.receive_port %d out of range", cfg.Network.ReceivePort)
	}
	if cfg.Network.BufferSize <= 0 {
		cfg.Network.BufferSize = 4096
	}
	if cfg.Network.PollInterval <= 0 {
		cfg.Network.PollInterval = 250 * time.Millisecond
	}
	if cfg.GPS.MaxStoredPositions <= 0 {
		cfg.GPS.MaxStoredPositions = 1000
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data"
	}
	if cfg.Web.Enable && cfg.Web.Addr == "" {
		cfg.Web.Addr = ":8080"
	}
	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "gpsnode"
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "gps/position"
		}
	}

	return cfg, nil
}

// SendDest returns the configured default send destination as
// host:port.
func (c Config) SendDest() string {
	return fmt.Sprintf("%s:%d", c.Network.UDPAddress, c.Network.UDPPort)
}
