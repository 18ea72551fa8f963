package models

import (
	"slices"
	"time"
)

// Reset cause names, most significant MCUSR bit first.
var resetSources = [...]string{"watchdog", "brown-out", "external", "power-on"}

// DecodeResetSources lists the reset causes set in the 4-bit MCUSR mask.
func DecodeResetSources(mask int) []string {
	out := []string{}
	for i, name := range resetSources {
		bit := len(resetSources) - 1 - i
		if mask>>bit&1 == 1 {
			out = append(out, name)
		}
	}
	return out
}

// MCUHealth describes the last microcontroller reset.
type MCUHealth struct {
	ResetSources []string  `json:"reset-source"`
	ResetTime    time.Time `json:"reset-time"`
}

// Health is the process-wide health record.
type Health struct {
	MCU MCUHealth `json:"mcu"`
}

// NewHealth returns the record used before the MCU has reported a boot.
func NewHealth(now time.Time) Health {
	return Health{MCU: MCUHealth{ResetSources: []string{}, ResetTime: now}}
}

// Clone returns a copy that does not share the reset source slice.
func (h Health) Clone() Health {
	h.MCU.ResetSources = slices.Clone(h.MCU.ResetSources)
	return h
}
