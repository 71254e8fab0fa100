package broadcast

import (
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/logger"
)

// publisher is the subset of mqtt.Client used by the bridge.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTBridge republishes events to <prefix>/<type> on an MQTT broker.
// Publishing happens on its own goroutine; when the queue is full events are
// dropped rather than failing delivery, so the bridge is never unsubscribed
// for being slow.
type MQTTBridge struct {
	client mqtt.Client
	pub    publisher
	prefix string
	queue  chan Message
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// ConnectMQTT connects to the configured broker and returns a running bridge.
func ConnectMQTT(cfg config.MQTTConfig) (*MQTTBridge, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected to MQTT broker", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("lost MQTT connection", "broker", cfg.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(constants.MQTTConnectTimeout) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, err)
	}

	b := newMQTTBridge(client, cfg.TopicPrefix, constants.MQTTQueueBuffer)
	b.client = client
	return b, nil
}

func newMQTTBridge(pub publisher, prefix string, buffer int) *MQTTBridge {
	b := &MQTTBridge{
		pub:    pub,
		prefix: prefix,
		queue:  make(chan Message, buffer),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Topic returns the topic an event type is published on.
func (b *MQTTBridge) Topic(eventType string) string {
	if b.prefix == "" {
		return eventType
	}
	return b.prefix + "/" + eventType
}

func (b *MQTTBridge) Deliver(msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrSlowSubscriber
	}
	select {
	case b.queue <- msg:
	default:
		b.dropped++
		logger.Debug("mqtt: queue full, dropping event", "type", msg.Event.Type)
	}
	return nil
}

// Dropped returns the number of events discarded because the queue was full.
func (b *MQTTBridge) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close stops the publisher after draining queued events and disconnects.
func (b *MQTTBridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	<-b.done
	if b.client != nil {
		b.client.Disconnect(250)
	}
}

func (b *MQTTBridge) run() {
	defer close(b.done)
	for msg := range b.queue {
		topic := b.Topic(msg.Event.Type)
		token := b.pub.Publish(topic, 0, false, msg.Payload)
		if !token.WaitTimeout(constants.MQTTPublishTimeout) {
			logger.Warn("mqtt: publish timeout", "topic", topic)
			continue
		}
		if err := token.Error(); err != nil {
			logger.Warn("mqtt: publish failed", "topic", topic, "error", err)
		}
	}
}
