package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"solar_controller/internal/config"
	"solar_controller/internal/logger"
	"solar_controller/internal/service"
)

const (
	commandTimeout         = 5 * time.Second
	defaultPublishInterval = 10 * time.Second
)

var errBadPayload = errors.New("bad payload")

// Broker is the part of Client the bridge needs.
type Broker interface {
	Publish(topic string, retained bool, payload []byte) error
	Subscribe(topic string, h MessageHandler) error
}

// Rig is what the bridge reads from and writes to.
type Rig interface {
	service.Control
	service.Monitoring
}

// Bridge mirrors the channel registry onto retained topics and forwards
// set commands back to the controller.
type Bridge struct {
	broker   Broker
	rig      Rig
	topics   Topics
	interval time.Duration
	log      *logger.Logger
}

func NewBridge(broker Broker, rig Rig, cfg config.MQTTConfig, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	interval := cfg.PublishInterval
	if interval <= 0 {
		interval = defaultPublishInterval
	}
	return &Bridge{
		broker:   broker,
		rig:      rig,
		topics:   NewTopics(cfg.TopicPrefix),
		interval: interval,
		log:      log,
	}
}

// Run subscribes to command topics, then publishes a snapshot every interval
// until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.broker.Subscribe(b.topics.SetFilter(KindRelay), b.handleSet); err != nil {
		return err
	}
	if err := b.broker.Subscribe(b.topics.SetFilter(KindPWM), b.handleSet); err != nil {
		return err
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		if err := b.Publish(); err != nil {
			b.log.Warnw("mqtt_publish_failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Publish sends every named channel and the status record once.
func (b *Bridge) Publish() error {
	snap := b.rig.Snapshot()

	var errs []error
	for _, t := range snap.Temperature {
		errs = append(errs, b.publishChannel(KindTemperature, t.Name, t))
	}
	for _, r := range snap.Relay {
		errs = append(errs, b.publishChannel(KindRelay, r.Name, r))
	}
	for _, p := range snap.PWM {
		errs = append(errs, b.publishChannel(KindPWM, p.Name, p))
	}
	for _, a := range snap.Analog {
		errs = append(errs, b.publishChannel(KindAnalog, a.Name, a))
	}
	errs = append(errs, b.publishJSON(b.topics.Status(), b.rig.Status()))
	return errors.Join(errs...)
}

// publishChannel skips names that cannot form a single topic level.
func (b *Bridge) publishChannel(kind, name string, v any) error {
	if !validLevel(name) {
		b.log.Debugw("mqtt_channel_skipped", "kind", kind, "name", name)
		return nil
	}
	return b.publishJSON(b.topics.Channel(kind, name), v)
}

func (b *Bridge) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	return b.broker.Publish(topic, true, payload)
}

func (b *Bridge) handleSet(topic string, payload []byte) {
	kind, name, ok := b.topics.ParseSet(topic)
	if !ok {
		b.log.Debugw("mqtt_command_dropped", "topic", topic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch kind {
	case KindRelay:
		var on bool
		if on, err = parseSwitch(payload); err == nil {
			err = b.rig.SetRelay(ctx, name, on)
		}
	case KindPWM:
		var duty float64
		if duty, err = parseDuty(payload); err == nil {
			err = b.rig.SetPWM(ctx, name, duty)
		}
	default:
		err = fmt.Errorf("kind %q is read-only", kind)
	}
	if err != nil {
		b.log.Warnw("mqtt_command_rejected", "topic", topic, "payload", string(payload), "err", err)
	}
}

func parseSwitch(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "true", "1", "on":
		return true, nil
	case "false", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a switch value", errBadPayload, payload)
}

func parseDuty(payload []byte) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errBadPayload, payload)
	}
	return v, nil
}
