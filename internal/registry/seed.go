package registry

import (
	"time"

	"solar_controller/internal/config"
	"solar_controller/internal/models"
)

// FromConfig builds a registry holding every configured channel at its index.
// Gaps between configured indices are filled with default records.
func FromConfig(cfg config.Config, now time.Time) (*Registry, error) {
	r := New(now)

	temps, err := cfg.Temperature.Entries()
	if err != nil {
		return nil, err
	}
	relays, err := cfg.Relay.Entries()
	if err != nil {
		return nil, err
	}
	pwms, err := cfg.PWM.Entries()
	if err != nil {
		return nil, err
	}
	analogs, err := cfg.Analog.Entries()
	if err != nil {
		return nil, err
	}

	for _, e := range temps {
		r.ch.Thermometers.Set(e.Index, models.NewThermometer(e.Name, e.FriendlyName))
	}
	for _, e := range relays {
		r.ch.Relays.Set(e.Index, models.NewRelay(e.Name, e.FriendlyName, e.RelayStates()))
	}
	for _, e := range pwms {
		lo, hi := e.Range()
		r.ch.PWMs.Set(e.Index, models.NewPWMOutput(e.Name, e.FriendlyName, lo, hi))
	}
	for _, e := range analogs {
		r.ch.Analogs.Set(e.Index, models.NewAnalogInput(e.Name, e.FriendlyName))
	}
	return r, nil
}
