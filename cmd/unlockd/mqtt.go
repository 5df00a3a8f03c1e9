package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
)

const (
	mqttOperationTimeout  = 5 * time.Second
	mqttDisconnectQuiesce = 250 // ms
)

// MessageHandler is called for each message on a subscribed topic. It runs
// on a paho goroutine and must not block.
type MessageHandler func(topic string, payload []byte) error

// messageBus is the slice of the bus the device collaborators need.
type messageBus interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler MessageHandler) (unsubscribe func(), err error)
}

// Bus wraps a paho client. Subscriptions are tracked and restored after
// a reconnect.
type Bus struct {
	client pahomqtt.Client
	qos    byte
	logger *slog.Logger

	subMu sync.RWMutex
	subs  map[string]MessageHandler
}

// ConnectBus connects to the broker, retrying with exponential backoff
// until cfg.ConnectTimeoutMS elapses or ctx is canceled.
func ConnectBus(ctx context.Context, cfg MQTTConfig, logger *slog.Logger) (*Bus, error) {
	b := &Bus{
		qos:    byte(cfg.QoS),
		logger: logger,
		subs:   make(map[string]MessageHandler),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectTimeout(mqttOperationTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		b.restoreSubscriptions()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
	})

	b.client = pahomqtt.NewClient(opts)

	connect := func() error {
		tok := b.client.Connect()
		if !tok.WaitTimeout(mqttOperationTimeout) {
			return fmt.Errorf("%w: connect timeout", ErrNotConnected)
		}
		if err := tok.Error(); err != nil {
			if errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) || errors.Is(err, packets.ErrorRefusedNotAuthorised) {
				return backoff.Permanent(fmt.Errorf("%w: %w", ErrNotConnected, err))
			}
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond
	notify := func(err error, next time.Duration) {
		logger.Warn("mqtt connect failed, retrying", "broker", cfg.Broker, "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(expBackoff, ctx), notify); err != nil {
		return nil, err
	}

	logger.Info("mqtt connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return b, nil
}

func (b *Bus) restoreSubscriptions() {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	for topic, h := range b.subs {
		b.client.Subscribe(topic, b.qos, b.wrap(h))
	}
}

func (b *Bus) wrap(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("mqtt handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := h(msg.Topic(), msg.Payload()); err != nil {
			b.logger.Warn("mqtt handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}

// Publish sends payload and waits for the broker to accept it.
func (b *Bus) Publish(topic string, payload []byte, retained bool) error {
	if !b.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	tok := b.client.Publish(topic, b.qos, retained, payload)
	if !tok.WaitTimeout(mqttOperationTimeout) {
		return fmt.Errorf("%w: %s: timeout", ErrPublishFailed, topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// Subscribe registers handler for topic and returns its unsubscribe.
func (b *Bus) Subscribe(topic string, handler MessageHandler) (func(), error) {
	if !b.client.IsConnectionOpen() {
		return nil, ErrNotConnected
	}

	b.subMu.Lock()
	b.subs[topic] = handler
	b.subMu.Unlock()

	tok := b.client.Subscribe(topic, b.qos, b.wrap(handler))
	if !tok.WaitTimeout(mqttOperationTimeout) || tok.Error() != nil {
		b.subMu.Lock()
		delete(b.subs, topic)
		b.subMu.Unlock()
		if err := tok.Error(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}
		return nil, fmt.Errorf("%w: %s: timeout", ErrSubscribeFailed, topic)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, topic)
			b.subMu.Unlock()
			b.client.Unsubscribe(topic).WaitTimeout(mqttOperationTimeout)
		})
	}, nil
}

// Close disconnects from the broker.
func (b *Bus) Close() {
	b.client.Disconnect(mqttDisconnectQuiesce)
}

// busTopics builds topic names under a common prefix.
type busTopics string

func (p busTopics) RingerState() string { return string(p) + "/ringer/state" }
func (p busTopics) RingerSet() string   { return string(p) + "/ringer/set" }
func (p busTopics) Launch() string      { return string(p) + "/launch" }
