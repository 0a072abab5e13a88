package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/saaga0h/floorplan-dashboard/pkg/config"
)

const (
	publishTimeout    = 2 * time.Second
	connectTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // ms
)

// publisherClient publishes playback frames and keeps a retained
// availability message on the status topic. The broker publishes the
// offline status as the last will if the process dies.
type publisherClient struct {
	client      pahomqtt.Client
	broker      string
	statusTopic string
	logger      *slog.Logger
}

// NewClient creates a publishing MQTT client for the configured broker.
// Connect must be called before publishing.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	p := &publisherClient{
		broker:      cfg.MQTTAddress(),
		statusTopic: StatusTopic(cfg.FrameTopic),
		logger:      logger,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(p.broker).
		SetClientID(clientID(cfg)).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30*time.Second).
		SetWill(p.statusTopic, StatusOffline, 1, true)

	if cfg.MQTTUser != "" {
		opts.SetUsername(cfg.MQTTUser)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	// Connect errors surface to the caller, which owns the retry policy
	opts.SetConnectRetry(false)

	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		logger.Info("Connected to MQTT broker", "broker", p.broker)
		c.Publish(p.statusTopic, 1, true, StatusOnline)
	})
	opts.SetConnectionLostHandler(func(c pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost, frames dropped until reconnect", "error", err)
	})
	opts.SetReconnectingHandler(func(c pahomqtt.Client, opts *pahomqtt.ClientOptions) {
		logger.Info("MQTT reconnecting", "broker", p.broker)
	})

	p.client = pahomqtt.NewClient(opts)
	return p
}

func clientID(cfg *config.Config) string {
	if cfg.MQTTClientID != "" {
		return cfg.MQTTClientID
	}
	return fmt.Sprintf("%s-publisher-%d", cfg.ServiceName, time.Now().Unix())
}

// Connect establishes a connection to the MQTT broker
func (p *publisherClient) Connect(ctx context.Context) error {
	p.logger.Info("Connecting to MQTT broker", "broker", p.broker)

	token := p.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker %s: %w", p.broker, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection to %s cancelled: %w", p.broker, ctx.Err())
	}
}

// Disconnect marks the publisher offline and closes the connection. A clean
// disconnect does not trigger the last will.
func (p *publisherClient) Disconnect() {
	if p.client.IsConnected() {
		p.client.Publish(p.statusTopic, 1, true, StatusOffline).WaitTimeout(publishTimeout)
	}
	p.logger.Info("Disconnecting from MQTT broker")
	p.client.Disconnect(disconnectQuiesce)
}

// Publish publishes a message, waiting at most publishTimeout for the
// broker to acknowledge
func (p *publisherClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("failed to publish to topic %s: timed out after %s", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	p.logger.Debug("Published message", "topic", topic, "size", len(payload))
	return nil
}

// IsConnected returns whether the client is currently connected
func (p *publisherClient) IsConnected() bool {
	return p.client.IsConnected()
}
