package registry

import (
	"fmt"
	"sync"
	"time"

	"solar_controller/internal/models"
)

// Channels is the mutable channel model. It is only reachable through Registry.Update.
type Channels struct {
	Thermometers *List[*models.Thermometer]
	Relays       *List[*models.Relay]
	PWMs         *List[*models.PWMOutput]
	Analogs      *List[*models.AnalogInput]
	Health       models.Health
}

// Registry guards the channel model with a single-writer/multi-reader lock.
// The serial worker mutates through Update; everybody else reads snapshots.
type Registry struct {
	mu sync.RWMutex
	ch Channels
}

// New returns an empty registry whose lists grow with default filler records.
func New(now time.Time) *Registry {
	return &Registry{ch: Channels{
		Thermometers: NewList(thermometerFiller),
		Relays:       NewList(relayFiller),
		PWMs:         NewList(pwmFiller),
		Analogs:      NewList(analogFiller),
		Health:       models.NewHealth(now),
	}}
}

func thermometerFiller(i int) *models.Thermometer {
	return models.NewThermometer(fmt.Sprintf("PROBE_%d", i), fmt.Sprintf("PROBE %d", i))
}

func relayFiller(i int) *models.Relay {
	return models.NewRelay(fmt.Sprintf("RELAY_%d", i), fmt.Sprintf("RELAY %d", i), nil)
}

func pwmFiller(i int) *models.PWMOutput {
	return models.NewPWMOutput(fmt.Sprintf("PWM_%d", i), fmt.Sprintf("PWM %d", i), models.PercentRange.Lo, models.PercentRange.Hi)
}

func analogFiller(i int) *models.AnalogInput {
	return models.NewAnalogInput(fmt.Sprintf("ANALOG_%d", i), fmt.Sprintf("ANALOG %d", i))
}

// Update runs fn with exclusive access to the channel model.
func (r *Registry) Update(fn func(ch *Channels) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&r.ch)
}

// Snapshot returns a deep copy of the whole model.
func (r *Registry) Snapshot() models.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := models.Snapshot{
		Temperature: make([]models.Thermometer, 0, r.ch.Thermometers.Len()),
		Relay:       make([]models.Relay, 0, r.ch.Relays.Len()),
		PWM:         make([]models.PWMOutput, 0, r.ch.PWMs.Len()),
		Analog:      make([]models.AnalogInput, 0, r.ch.Analogs.Len()),
		Health:      r.ch.Health.Clone(),
	}
	for _, t := range r.ch.Thermometers.Items() {
		s.Temperature = append(s.Temperature, *t)
	}
	for _, rl := range r.ch.Relays.Items() {
		s.Relay = append(s.Relay, *rl)
	}
	for _, p := range r.ch.PWMs.Items() {
		s.PWM = append(s.PWM, *p)
	}
	for _, a := range r.ch.Analogs.Items() {
		s.Analog = append(s.Analog, a.Clone())
	}
	return s
}

// Health returns a copy of the health record.
func (r *Registry) Health() models.Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ch.Health.Clone()
}

// RelayIndices returns the index of every relay called name.
func (r *Registry) RelayIndices(name string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ch.Relays.Indices(name)
}

// IndexedPWM is a copy of a PWM output together with its wire index.
type IndexedPWM struct {
	Index  int
	Output models.PWMOutput
}

// PWMOutputs returns copies of every PWM output called name.
func (r *Registry) PWMOutputs(name string) []IndexedPWM {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []IndexedPWM
	for _, i := range r.ch.PWMs.Indices(name) {
		out = append(out, IndexedPWM{Index: i, Output: *r.ch.PWMs.At(i)})
	}
	return out
}
