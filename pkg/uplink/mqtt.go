package uplink

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

// reasonNoSubscribers is the PUBACK reason code for a message the broker
// accepted but had nobody to deliver to.
const reasonNoSubscribers = 16

// MQTTPublisher publishes enveloped records to one topic.
type MQTTPublisher struct {
	cm    *autopaho.ConnectionManager
	topic string
}

// NewMQTTPublisher starts a managed connection to the broker at cfg.URL
// (e.g. mqtt://station:1883). Reconnection is automatic.
func NewMQTTPublisher(ctx context.Context, cfg Config) (*MQTTPublisher, error) {
	serverURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse broker URL: %w", err)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt uplink requires a topic")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "rover-" + uuid.NewString()
	}

	logger := log.Component("uplink")
	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		ReconnectBackoff:              autopaho.NewConstantBackoff(5 * time.Second),
		ConnectUsername:               cfg.Username,
		ConnectPassword:               []byte(cfg.Password),
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			logger.Info("mqtt connection up", "broker", serverURL.Host)
		},
		OnConnectError: func(err error) {
			logger.Warn("mqtt connect failed", "broker", serverURL.Host, "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID:      clientID,
			OnClientError: func(err error) { logger.Error("mqtt client error", "error", err) },
		},
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	return &MQTTPublisher{cm: cm, topic: cfg.Topic}, nil
}

// PublishEvent publishes an event envelope.
func (p *MQTTPublisher) PublishEvent(ctx context.Context, e protocol.RoverEvent) error {
	return p.publish(ctx, protocol.TypeEvent, e)
}

// PublishHeartbeat publishes a heartbeat envelope.
func (p *MQTTPublisher) PublishHeartbeat(ctx context.Context, hb protocol.Heartbeat) error {
	return p.publish(ctx, protocol.TypeHeartbeat, hb)
}

func (p *MQTTPublisher) publish(ctx context.Context, t protocol.MessageType, v any) error {
	msg, err := protocol.NewMessage(t, v)
	if err != nil {
		return err
	}
	payload, err := msg.Bytes()
	if err != nil {
		return err
	}

	if err := p.cm.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("broker unavailable: %w", err)
	}
	pr, err := p.cm.Publish(ctx, &paho.Publish{
		QoS:     1,
		Topic:   p.topic,
		Payload: payload,
	})
	if err != nil {
		return err
	}
	if pr != nil && pr.ReasonCode != 0 && pr.ReasonCode != reasonNoSubscribers {
		return fmt.Errorf("publish rejected with reason code %d", pr.ReasonCode)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close(ctx context.Context) error {
	return p.cm.Disconnect(ctx)
}
