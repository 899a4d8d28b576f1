// Package mqttpub forwards fixes to an MQTT broker.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vaultecki/py-positioning-stuff/internal/track"
)

// Config selects the broker and topic for published fixes.
type Config struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Publisher sends each fix as a retained JSON message. It implements
// track.Sink so it can be registered on a store.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// New connects to the broker. The returned publisher holds the
// connection until Close.
func New(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker address is required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "gpsnode"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(mqtt.Client) {
		log.Printf("[mqtt] connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("[mqtt] connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}

	return &Publisher{client: client, topic: cfg.Topic}, nil
}

// OnFix publishes the fix as retained JSON at QoS 0. Marshal or
// publish failures are logged, not returned; the sink contract has no
// error path.
func (p *Publisher) OnFix(fix track.Fix) {
	payload, err := json.Marshal(fix)
	if err != nil {
		log.Printf("[mqtt] marshal fix: %v", err)
		return
	}
	token := p.client.Publish(p.topic, 0, true, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("[mqtt] publish: %v", err)
		}
	}()
}

// Close disconnects from the broker, allowing a short drain for
// in-flight messages.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
