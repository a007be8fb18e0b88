package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dchest/uniuri"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/logging"
	pm "github.com/eclipse/paho.mqtt.golang"
)

const (
	bridgeOnline  = "online"
	bridgeOffline = "offline"
	publishWait   = 10 * time.Second
)

type Options struct {
	Username string
	Password string
}

type MQTTClient struct {
	client pm.Client
	prefix string

	handler CommandHandler
}

// NewMQTTClient prepares a client for the broker at uri. All topics live
// under prefix.
func NewMQTTClient(uri *url.URL, prefix string, o Options) *MQTTClient {
	mc := &MQTTClient{prefix: strings.TrimSuffix(prefix, "/")}

	opts := pm.NewClientOptions().
		AddBroker(brokerURL(uri)).
		SetClientID("myvacbot_mqtt_" + uniuri.New()).
		SetAutoReconnect(true).
		SetWill(mc.BridgeTopic(), bridgeOffline, 1, true).
		SetOnConnectHandler(mc.onConnect).
		SetConnectionLostHandler(onConnectionLostHandler)

	username, password := o.Username, o.Password
	if username == "" && uri.User != nil {
		username = uri.User.Username()
		password, _ = uri.User.Password()
	}
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}

	mc.client = pm.NewClient(opts)
	return mc
}

func (mc *MQTTClient) Prefix() string {
	return mc.prefix
}

func (mc *MQTTClient) BridgeTopic() string {
	return mc.prefix + "/bridge/state"
}

func (mc *MQTTClient) CommandTopic(id string) string {
	return mc.prefix + "/set/" + id
}

func (mc *MQTTClient) StatusTopic(id string, key string) string {
	return mc.prefix + "/status/" + id + "/" + key
}

func (mc *MQTTClient) subscribeTopic() string {
	return mc.prefix + "/set/#"
}

// Publish sends payload with QoS 1 and waits for the broker to accept it.
func (mc *MQTTClient) Publish(topic string, retained bool, payload []byte) error {
	token := mc.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishWait) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Connect connects to the broker and routes commands to h. Subscriptions are
// renewed on every reconnect.
func (mc *MQTTClient) Connect(h CommandHandler) error {
	mc.handler = h
	if token := mc.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to MQTT: %w", token.Error())
	}
	return nil
}

func (mc *MQTTClient) Disconnect() {
	logging.Info("Disconnecting from MQTT")

	if err := mc.Publish(mc.BridgeTopic(), true, []byte(bridgeOffline)); err != nil {
		logging.Warn("Unable to publish bridge state: %s", err)
	}

	if token := mc.client.Unsubscribe(mc.subscribeTopic()); token.Wait() && token.Error() != nil {
		logging.Warn("Unable to unsubscribe from %s: %s", mc.subscribeTopic(), token.Error())
	}

	mc.client.Disconnect(250)
}

func (mc *MQTTClient) onConnect(c pm.Client) {
	logging.Info("Connected to MQTT")

	topic := mc.subscribeTopic()
	if token := c.Subscribe(topic, 1, mc.messageHandler(mc.handler)); token.Wait() && token.Error() != nil {
		logging.Error("Unable to subscribe to %s: %s", topic, token.Error())
		return
	}
	logging.Info("Subscribed to %s", topic)

	if token := c.Publish(mc.BridgeTopic(), 1, true, bridgeOnline); token.Wait() && token.Error() != nil {
		logging.Warn("Unable to publish bridge state: %s", token.Error())
	}
}

func (mc *MQTTClient) messageHandler(h CommandHandler) pm.MessageHandler {
	prefix := strings.Replace(mc.subscribeTopic(), "#", "", 1)

	return func(client pm.Client, msg pm.Message) {
		topic := msg.Topic()
		if !strings.HasPrefix(topic, prefix) {
			return
		}
		id := strings.Replace(topic, prefix, "", 1)
		if id == "" || strings.Contains(id, "/") {
			logging.Warn("Ignoring command on %s", topic)
			return
		}

		payload, err := parsePayload(msg.Payload())
		if err != nil {
			logging.Warn("Error parsing command: %s %v", err, string(msg.Payload()))
			return
		}
		logging.Debug("Received message on topic %s: %s", id, payload.String())

		if h == nil {
			return
		}
		go func() {
			if err := h.HandleCommand(id, payload); err != nil {
				logging.Warn("Command %s for %s failed: %s", payload.Command, id, err)
			}
		}()
	}
}

// parsePayload accepts a bare command word, a JSON command object, or either
// of those wrapped in a JSON string.
func parsePayload(raw []byte) (*Command, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}

	var payload Command
	if err := json.Unmarshal(data, &payload); err == nil {
		return validCommand(&payload)
	}

	var passOne string
	if err := json.Unmarshal(data, &passOne); err == nil {
		return parsePayload([]byte(passOne))
	}

	word := string(data)
	if strings.ContainsAny(word, " \t\r\n{}[]\"") {
		return nil, fmt.Errorf("invalid command %q", word)
	}
	return &Command{Command: word}, nil
}

func validCommand(c *Command) (*Command, error) {
	c.Command = strings.TrimSpace(c.Command)
	if c.Command == "" {
		return nil, errors.New("missing command")
	}
	return c, nil
}

func brokerURL(uri *url.URL) string {
	u := *uri
	u.User = nil
	return u.String()
}

func onConnectionLostHandler(c pm.Client, err error) {
	logging.Warn("Lost connection to MQTT, reconnecting: %s", err)
}
