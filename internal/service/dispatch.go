package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"solar_controller/internal/logger"
	"solar_controller/internal/models"
	"solar_controller/internal/protocol"
	"solar_controller/internal/registry"
	"solar_controller/internal/repository"
)

// outcome is what a handler asks the dispatcher to do once the registry lock is released.
type outcome struct {
	event  *models.ChannelEvent
	health *models.MCUHealth
}

type handlerFunc func(ch *registry.Channels, msg protocol.Message, now time.Time) (outcome, error)

// handlers maps every inbound tag to its registry effect.
var handlers = map[protocol.Tag]handlerFunc{
	protocol.TagTemperature:      handleTemperature,
	protocol.TagThermometerState: handleThermometerState,
	protocol.TagThermometerID:    handleThermometerID,
	protocol.TagRelay:            handleRelay,
	protocol.TagPWM:              handlePWM,
	protocol.TagAnalog:           handleAnalog,
	protocol.TagAnalogReference:  handleAnalogReference,
	protocol.TagBoot:             handleBoot,
}

// Dispatcher applies inbound protocol lines to the registry. It runs on the
// link goroutine and is the registry's only writer.
type Dispatcher struct {
	reg    *registry.Registry
	events *EventLogService
	health repository.HealthRepo
	log    *logger.Logger
	now    func() time.Time
}

func NewDispatcher(reg *registry.Registry, events *EventLogService, health repository.HealthRepo, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{reg: reg, events: events, health: health, log: log, now: time.Now}
}

// HandleLine parses and applies one inbound line. Malformed lines and unknown
// tags are dropped; bad values are logged, recorded and skipped.
func (d *Dispatcher) HandleLine(ctx context.Context, line string) {
	msg, err := protocol.Parse(line)
	if err != nil {
		d.log.Debugw("serial_line_dropped", "line", line, "err", err)
		return
	}
	h, ok := handlers[msg.Tag]
	if !ok {
		d.log.Debugw("serial_line_dropped", "line", line, "err", protocol.ErrUnknownTag)
		return
	}

	now := d.now()
	var out outcome
	err = d.reg.Update(func(ch *registry.Channels) error {
		var herr error
		out, herr = h(ch, msg, now)
		return herr
	})
	if err != nil {
		d.log.Warnw("serial_line_rejected", "line", line, "err", err)
		d.events.Record(ctx, models.EventProtocolError, fmt.Sprintf("rejected %q: %v", line, err), map[string]any{"line": line})
		return
	}

	if out.health != nil && d.health != nil {
		if err := d.health.Save(ctx, *out.health); err != nil {
			d.log.Warnw("mcu_health_save_failed", "err", err)
		}
	}
	if out.event != nil {
		d.events.Record(ctx, out.event.Type, out.event.Description, out.event.Metadata)
	}
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse value %q: not a finite number", s)
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", s, err)
	}
	return v, nil
}

func handleTemperature(ch *registry.Channels, msg protocol.Message, now time.Time) (outcome, error) {
	idx := msg.Index
	v, err := parseFloat(msg.Value)
	if err != nil {
		return outcome{}, err
	}
	ch.Thermometers.At(idx).SetValue(v, now)
	return outcome{}, nil
}

func handleThermometerState(ch *registry.Channels, msg protocol.Message, now time.Time) (outcome, error) {
	idx := msg.Index
	raw, err := parseInt(msg.Value)
	if err != nil {
		return outcome{}, err
	}
	return outcome{}, ch.Thermometers.At(idx).SetState(raw, now)
}

func handleThermometerID(ch *registry.Channels, msg protocol.Message, _ time.Time) (outcome, error) {
	idx := msg.Index
	ch.Thermometers.At(idx).SetID(msg.Value)
	return outcome{}, nil
}

func handleRelay(ch *registry.Channels, msg protocol.Message, now time.Time) (outcome, error) {
	idx := msg.Index
	raw, err := parseInt(msg.Value)
	if err != nil {
		return outcome{}, err
	}
	ch.Relays.At(idx).Update(raw, now)
	return outcome{}, nil
}

func handlePWM(ch *registry.Channels, msg protocol.Message, now time.Time) (outcome, error) {
	idx := msg.Index
	v, err := parseFloat(msg.Value)
	if err != nil {
		return outcome{}, err
	}
	ch.PWMs.At(idx).SetDeviceValue(v, now)
	return outcome{}, nil
}

func handleAnalog(ch *registry.Channels, msg protocol.Message, now time.Time) (outcome, error) {
	idx := msg.Index
	v, err := parseFloat(msg.Value)
	if err != nil {
		return outcome{}, err
	}
	ch.Analogs.At(idx).SetValue(v, now)
	return outcome{}, nil
}

// handleAnalogReference derives volts-per-percent from a reference reading:
// the index carries the reference in millivolts, the value its raw percent.
// Only analog inputs that already exist are calibrated.
func handleAnalogReference(ch *registry.Channels, msg protocol.Message, _ time.Time) (outcome, error) {
	reading, err := parseFloat(msg.Value)
	if err != nil {
		return outcome{}, err
	}
	if reading == 0 {
		return outcome{}, fmt.Errorf("calibration reading for %d mV is zero", msg.Index)
	}
	factor := (float64(msg.Index) / 1000) / reading
	for _, a := range ch.Analogs.Items() {
		a.Calibrate(factor)
	}
	return outcome{event: &models.ChannelEvent{
		Type:        models.EventCalibration,
		Description: fmt.Sprintf("analog calibration %.6g V/%%", factor),
		Metadata: map[string]any{
			"reference_mv": msg.Index,
			"reading":      reading,
			"factor":       factor,
			"channels":     ch.Analogs.Len(),
		},
	}}, nil
}

func handleBoot(ch *registry.Channels, msg protocol.Message, now time.Time) (outcome, error) {
	mask, err := parseInt(msg.Value)
	if err != nil {
		return outcome{}, err
	}
	ch.Health.MCU = models.MCUHealth{
		ResetSources: models.DecodeResetSources(mask),
		ResetTime:    now,
	}
	h := ch.Health.Clone().MCU
	return outcome{
		health: &h,
		event: &models.ChannelEvent{
			Type:        models.EventMCUReset,
			Description: fmt.Sprintf("mcu reset (mask %d)", mask),
			Metadata:    map[string]any{"reset-source": h.ResetSources},
		},
	}, nil
}
