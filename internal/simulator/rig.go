package simulator

import "math"

// ----------- Simulation constants -----------
const (
	AmbientC          = 20.0 // ambient temperature °C
	CollectorStagnC   = 95.0 // collector stagnation temperature °C
	SolarGainCPerSec  = 0.8  // collector warm-up rate at full sun, °C per second
	TransferPerSec    = 0.05 // share of the collector/tank difference moved per second while pumping
	TankLossPerSec    = 0.002
	PipeLossPerSec    = 0.01
	DefaultIrradiance = 60.0 // % of full sun, reported on analog input 0
)

// Channel roles on the emulated rig.
const (
	probeCollector = 0
	probeTank      = 1
	relayPump      = 0
)

// Rig is the physical state of the emulated installation.
type Rig struct {
	Temps      []float64
	Relays     []int
	PWM        []float64
	Analog     []float64
	Irradiance float64
}

// NewRig returns a rig at ambient temperature with everything switched off.
func NewRig(probes, relays, pwms, analogs int) *Rig {
	r := &Rig{
		Temps:      make([]float64, max(probes, 2)),
		Relays:     make([]int, max(relays, 1)),
		PWM:        make([]float64, pwms),
		Analog:     make([]float64, max(analogs, 1)),
		Irradiance: DefaultIrradiance,
	}
	for i := range r.Temps {
		r.Temps[i] = AmbientC
	}
	r.Analog[0] = r.Irradiance
	return r
}

// PumpOn reports whether the circulation pump relay is closed.
func (r *Rig) PumpOn() bool { return r.Relays[relayPump]&1 == 1 }

// Step advances the rig by elapsed seconds.
func (r *Rig) Step(elapsed float64) {
	if elapsed <= 0 {
		return
	}
	r.heatCollector(elapsed)
	if r.PumpOn() {
		r.circulate(elapsed)
	}
	r.loseHeat(elapsed)
	r.Analog[0] = r.Irradiance
}

// heatCollector warms the collector toward stagnation, slowing as it gets hotter.
func (r *Rig) heatCollector(elapsed float64) {
	c := r.Temps[probeCollector]
	headroom := (CollectorStagnC - c) / (CollectorStagnC - AmbientC)
	if headroom <= 0 {
		return
	}
	gain := SolarGainCPerSec * (r.Irradiance / 100) * headroom * elapsed
	r.Temps[probeCollector] = math.Min(c+gain, CollectorStagnC)
}

// circulate moves heat from the collector into the tank.
func (r *Rig) circulate(elapsed float64) {
	c, t := r.Temps[probeCollector], r.Temps[probeTank]
	if c <= t {
		return
	}
	share := math.Min(TransferPerSec*elapsed, 0.5)
	q := (c - t) * share
	r.Temps[probeCollector] = c - q
	r.Temps[probeTank] = t + q
}

// loseHeat drifts every probe toward ambient.
func (r *Rig) loseHeat(elapsed float64) {
	for i, temp := range r.Temps {
		rate := PipeLossPerSec
		if i == probeTank {
			rate = TankLossPerSec
		}
		r.Temps[i] = temp - (temp-AmbientC)*math.Min(rate*elapsed, 1)
	}
}
