package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/logging"
)

type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
	CommandTopic(id string) string
	StatusTopic(id string, key string) string
	BridgeTopic() string
}

var _ Publisher = (*MQTTClient)(nil)

type StatusEmitter struct {
	pub             Publisher
	discovery       bool
	discoveryPrefix string
}

// NewMqttStatusEmitter publishes retained status documents through pub.
// Home Assistant discovery configs are only sent when discoveryPrefix is set.
func NewMqttStatusEmitter(pub Publisher, discoveryPrefix string) *StatusEmitter {
	return &StatusEmitter{
		pub:             pub,
		discovery:       discoveryPrefix != "",
		discoveryPrefix: discoveryPrefix,
	}
}

func (e *StatusEmitter) EmitStatus(ctx context.Context, id string, statusKey string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := encode(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", id, statusKey, err)
	}

	topic := e.pub.StatusTopic(id, statusKey)
	logging.Debug("Publishing %s %s", topic, payload)
	return e.pub.Publish(topic, true, payload)
}

// Announce publishes the Home Assistant discovery config for a robot.
func (e *StatusEmitter) Announce(ctx context.Context, a Announcement) error {
	if !e.discovery {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newDiscoveryConfig(e.pub, a)
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode discovery config %s: %w", a.ID, err)
	}

	topic := discoveryTopic(e.discoveryPrefix, a)
	logging.Info("Announcing %s on %s", a.ID, topic)
	return e.pub.Publish(topic, true, payload)
}

func encode(data interface{}) ([]byte, error) {
	switch v := data.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
