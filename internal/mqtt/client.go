package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"solar_controller/internal/config"
	"solar_controller/internal/logger"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // ms
	defaultKeepAlive         = 60 * time.Second
	maxReconnectInterval     = 30 * time.Second

	payloadOnline  = "true"
	payloadOffline = "false"
)

var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrPublishFailed    = errors.New("mqtt publish failed")
	ErrSubscribeFailed  = errors.New("mqtt subscribe failed")
)

// MessageHandler receives the topic and raw payload of an inbound message.
type MessageHandler func(topic string, payload []byte)

// Client is a paho connection that replays its subscriptions after every
// reconnect and keeps a retained online flag for the bridge.
type Client struct {
	conn   pahomqtt.Client
	qos    byte
	topics Topics
	log    *logger.Logger

	mu   sync.RWMutex
	subs map[string]MessageHandler
}

// Connect dials the broker and blocks until the first session is up.
// Later drops are handled by paho's auto-reconnect.
func Connect(cfg config.MQTTConfig, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		qos:    byte(cfg.QoS),
		topics: NewTopics(cfg.TopicPrefix),
		log:    log,
		subs:   make(map[string]MessageHandler),
	}

	opts := buildClientOptions(cfg)
	opts.SetWill(c.topics.Online(), payloadOffline, c.qos, true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.log.Warnw("mqtt_connection_lost", "err", err)
	})

	c.conn = pahomqtt.NewClient(opts)
	token := c.conn.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: %s: timeout after %s", ErrConnectionFailed, cfg.Broker, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.Broker, err)
	}
	return c, nil
}

func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	return opts
}

// onConnect runs on the first connect and after every reconnect.
func (c *Client) onConnect(conn pahomqtt.Client) {
	c.log.Infow("mqtt_connected")
	conn.Publish(c.topics.Online(), c.qos, true, payloadOnline)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for topic, h := range c.subs {
		token := conn.Subscribe(topic, c.qos, c.wrapHandler(h))
		if !token.WaitTimeout(defaultConnectTimeout) || token.Error() != nil {
			c.log.Warnw("mqtt_resubscribe_failed", "topic", topic, "err", token.Error())
		}
	}
}

// Publish sends payload to topic at the configured QoS.
func (c *Client) Publish(topic string, retained bool, payload []byte) error {
	token := c.conn.Publish(topic, c.qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s: timeout", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// Subscribe registers h for topic (wildcards allowed) and remembers it for reconnects.
func (c *Client) Subscribe(topic string, h MessageHandler) error {
	token := c.conn.Subscribe(topic, c.qos, c.wrapHandler(h))
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: %s: timeout", ErrSubscribeFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.mu.Lock()
	c.subs[topic] = h
	c.mu.Unlock()
	return nil
}

// Close marks the bridge offline and disconnects.
func (c *Client) Close() {
	if c.conn.IsConnected() {
		token := c.conn.Publish(c.topics.Online(), c.qos, true, payloadOffline)
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.conn.Disconnect(defaultDisconnectQuiesce)
}

// wrapHandler adapts h to paho and keeps a panicking handler from taking
// down paho's router goroutine.
func (c *Client) wrapHandler(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Errorw("mqtt_handler_panic", "topic", msg.Topic(), "panic", r)
			}
		}()
		h(msg.Topic(), msg.Payload())
	}
}
