package models

import "time"

// PWMOutput is one pulse-width modulated output.
//
// Value is always kept in percent; Min and Max describe the range the firmware speaks.
type PWMOutput struct {
	Channel
	Value    float64 `json:"value"`
	Override bool    `json:"override"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Unit     string  `json:"unit"`
}

func NewPWMOutput(name, friendlyName string, lo, hi float64) *PWMOutput {
	return &PWMOutput{Channel: newChannel(name, friendlyName), Min: lo, Max: hi, Unit: "%"}
}

func (p *PWMOutput) deviceRange() Range { return Range{Lo: p.Min, Hi: p.Max} }

// SetDeviceValue stores a value reported by the firmware in device units.
func (p *PWMOutput) SetDeviceValue(v float64, now time.Time) {
	p.Value = Rescale(v, p.deviceRange(), PercentRange)
	p.touch(now)
}

// DeviceValue converts a percentage into the firmware's range.
func (p *PWMOutput) DeviceValue(percent float64) float64 {
	return Rescale(percent, PercentRange, p.deviceRange())
}
