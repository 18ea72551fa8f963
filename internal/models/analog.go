package models

import "time"

// AnalogInput is one ADC channel. Voltage stays nil until a calibration event arrives.
type AnalogInput struct {
	Channel
	Value   float64  `json:"value"`
	Voltage *float64 `json:"voltage"`
	Unit    string   `json:"unit"`

	calibration *float64
}

func NewAnalogInput(name, friendlyName string) *AnalogInput {
	return &AnalogInput{Channel: newChannel(name, friendlyName), Unit: "%"}
}

// SetValue stores a raw reading (percent of reference).
func (a *AnalogInput) SetValue(v float64, now time.Time) {
	a.Value = v
	a.touch(now)
	a.updateVoltage()
}

// Calibrate sets the volts-per-percent factor.
func (a *AnalogInput) Calibrate(factor float64) {
	a.calibration = &factor
	a.updateVoltage()
}

// Calibration returns the factor and whether one has been applied.
func (a *AnalogInput) Calibration() (float64, bool) {
	if a.calibration == nil {
		return 0, false
	}
	return *a.calibration, true
}

func (a *AnalogInput) updateVoltage() {
	if a.calibration == nil {
		a.Voltage = nil
		return
	}
	v := a.Value * *a.calibration
	a.Voltage = &v
}

// Clone returns a copy that shares no pointers with a.
func (a *AnalogInput) Clone() AnalogInput {
	c := *a
	if a.Voltage != nil {
		v := *a.Voltage
		c.Voltage = &v
	}
	if a.calibration != nil {
		f := *a.calibration
		c.calibration = &f
	}
	return c
}
