package models

import (
	"errors"
	"fmt"
	"time"
)

// ThermometerState is the connection state reported by the probe bus.
type ThermometerState int

const (
	ThermometerDisconnected ThermometerState = iota
	ThermometerInitializing
	ThermometerConnected
)

var ErrInvalidState = errors.New("invalid thermometer state")

var thermometerStateNames = [...]string{
	ThermometerDisconnected: "DISCONNECTED",
	ThermometerInitializing: "INITIALIZING",
	ThermometerConnected:    "CONNECTED",
}

// DecodeThermometerState maps the raw TSTATE value onto a state.
func DecodeThermometerState(raw int) (ThermometerState, error) {
	if raw < int(ThermometerDisconnected) || raw > int(ThermometerConnected) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidState, raw)
	}
	return ThermometerState(raw), nil
}

func (s ThermometerState) String() string {
	if s < ThermometerDisconnected || s > ThermometerConnected {
		return fmt.Sprintf("ThermometerState(%d)", int(s))
	}
	return thermometerStateNames[s]
}

// MarshalText encodes the state by name.
func (s ThermometerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *ThermometerState) UnmarshalText(b []byte) error {
	for i, name := range thermometerStateNames {
		if name == string(b) {
			*s = ThermometerState(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidState, b)
}

// Thermometer is one temperature probe.
//
// A DISCONNECTED probe always reads 0.0 and has no id.
type Thermometer struct {
	Channel
	Value float64          `json:"value"`
	State ThermometerState `json:"state"`
	ID    string           `json:"id"`
	Unit  string           `json:"unit"`
}

func NewThermometer(name, friendlyName string) *Thermometer {
	return &Thermometer{Channel: newChannel(name, friendlyName), Unit: "°C"}
}

// SetValue stores a new reading.
func (t *Thermometer) SetValue(v float64, now time.Time) {
	t.Value = v
	t.touch(now)
}

// SetState applies a raw TSTATE value. Out-of-range values leave the record
// untouched. Disconnecting zeroes the reading, which counts as an update.
func (t *Thermometer) SetState(raw int, now time.Time) error {
	st, err := DecodeThermometerState(raw)
	if err != nil {
		return err
	}
	t.State = st
	if st == ThermometerDisconnected {
		t.Value = 0
		t.ID = ""
		t.touch(now)
	}
	return nil
}

func (t *Thermometer) SetID(id string) { t.ID = id }
