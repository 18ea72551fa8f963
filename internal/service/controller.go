package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"solar_controller/internal/config"
	"solar_controller/internal/logger"
	"solar_controller/internal/models"
	"solar_controller/internal/protocol"
	"solar_controller/internal/queue"
	"solar_controller/internal/registry"
	"solar_controller/internal/repository"
	"solar_controller/internal/transport"
)

var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrInvalidValue   = errors.New("invalid value")
)

// Controller is the facade over the rig: it owns the registry, the command
// queue and the serial link, and exposes reads and fire-and-forget writes.
type Controller struct {
	reg      *registry.Registry
	queue    *queue.Queue
	link     *transport.Link
	dispatch *Dispatcher
	events   *EventLogService
	health   repository.HealthRepo
	log      *logger.Logger
}

// NewController builds the registry from cfg and wires it to a link opened by open.
// Nothing touches the port until Start.
func NewController(cfg config.Config, repos *repository.Repository, open transport.Opener, log *logger.Logger) (*Controller, error) {
	if log == nil {
		log = logger.Nop()
	}
	if repos == nil {
		repos = &repository.Repository{}
	}

	reg, err := registry.FromConfig(cfg, time.Now())
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	events := NewEventLogService(repos.EventRepo, log)
	q := queue.New()
	d := NewDispatcher(reg, events, repos.HealthRepo, log)

	c := &Controller{
		reg:      reg,
		queue:    q,
		link:     transport.NewLink(open, q, d, log),
		dispatch: d,
		events:   events,
		health:   repos.HealthRepo,
		log:      log,
	}
	c.link.OnDown(c.linkDown)
	return c, nil
}

// Start restores the last known MCU reset, starts the link and asks the
// firmware for its current probe and relay state.
func (c *Controller) Start(ctx context.Context) error {
	if c.health != nil {
		h, err := c.health.Load(ctx)
		if err != nil {
			return fmt.Errorf("load mcu health: %w", err)
		}
		if !h.ResetTime.IsZero() {
			_ = c.reg.Update(func(ch *registry.Channels) error {
				ch.Health.MCU = h
				return nil
			})
		}
	}

	c.queue.Push(protocol.Query(protocol.TagTemperature))
	c.queue.Push(protocol.Query(protocol.TagRelay))
	c.link.Start(ctx)
	return nil
}

// Done is closed once the link goroutine has exited.
func (c *Controller) Done() <-chan struct{} { return c.link.Done() }

func (c *Controller) linkDown(f transport.Failure) {
	c.events.Record(context.Background(), models.EventLinkDown, f.Message, nil)
}

// SetRelay enqueues a switch command for every relay called name.
func (c *Controller) SetRelay(ctx context.Context, name string, on bool) error {
	indices := c.reg.RelayIndices(name)
	if len(indices) == 0 {
		return fmt.Errorf("relay %q: %w", name, ErrUnknownChannel)
	}
	for _, i := range indices {
		c.queue.Push(protocol.FormatRelay(i, on))
	}

	c.log.Infow("relay_command", "name", name, "on", on, "indices", indices)
	c.events.Record(ctx, models.EventCommand, fmt.Sprintf("relay %s -> %t", name, on),
		map[string]any{"channel": name, "kind": "relay", "value": on, "indices": indices})
	return nil
}

// SetPWM enqueues a duty cycle (percent, clamped to 0..100) for every PWM output
// called name, converted to each output's device range.
func (c *Controller) SetPWM(ctx context.Context, name string, percent float64) error {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return fmt.Errorf("pwm %q value %v: %w", name, percent, ErrInvalidValue)
	}
	outputs := c.reg.PWMOutputs(name)
	if len(outputs) == 0 {
		return fmt.Errorf("pwm %q: %w", name, ErrUnknownChannel)
	}

	percent = models.Clamp(percent, models.PercentRange.Lo, models.PercentRange.Hi)
	indices := make([]int, 0, len(outputs))
	for _, o := range outputs {
		c.queue.Push(protocol.FormatPWM(o.Index, o.Output.DeviceValue(percent)))
		indices = append(indices, o.Index)
	}

	c.log.Infow("pwm_command", "name", name, "percent", percent, "indices", indices)
	c.events.Record(ctx, models.EventCommand, fmt.Sprintf("pwm %s -> %.2f%%", name, percent),
		map[string]any{"channel": name, "kind": "pwm", "value": percent, "indices": indices})
	return nil
}

// Snapshot returns a deep copy of every channel and the health record.
func (c *Controller) Snapshot() models.Snapshot { return c.reg.Snapshot() }
