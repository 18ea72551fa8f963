package models

import "time"

const (
	relayStateBit    = 0b01
	relayOverrideBit = 0b10
)

// RelayStates is the label table used for friendly_state.
type RelayStates struct {
	On  string `json:"true"`
	Off string `json:"false"`
}

// DefaultRelayStates is used when a relay has no configured labels.
var DefaultRelayStates = RelayStates{On: "on", Off: "off"}

func (s RelayStates) Label(on bool) string {
	if on {
		return s.On
	}
	return s.Off
}

// Relay is one switched output.
type Relay struct {
	Channel
	State         bool        `json:"state"`
	Override      bool        `json:"override"`
	FriendlyState string      `json:"friendly_state"`
	States        RelayStates `json:"states"`
}

func NewRelay(name, friendlyName string, states *RelayStates) *Relay {
	r := &Relay{Channel: newChannel(name, friendlyName), States: DefaultRelayStates}
	if states != nil {
		r.States = *states
	}
	r.FriendlyState = r.States.Label(false)
	return r
}

// Update applies a raw R value: bit 0 is the output state, bit 1 the override flag.
func (r *Relay) Update(raw int, now time.Time) {
	r.State = raw&relayStateBit != 0
	r.Override = raw&relayOverrideBit != 0
	r.FriendlyState = r.States.Label(r.State)
	r.touch(now)
}
