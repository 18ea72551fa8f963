package models

// Snapshot is a point-in-time copy of every channel and the health record.
// It shares no memory with the live registry.
type Snapshot struct {
	Temperature []Thermometer `json:"temperature"`
	Relay       []Relay       `json:"relay"`
	PWM         []PWMOutput   `json:"pwm"`
	Analog      []AnalogInput `json:"analog"`
	Health      Health        `json:"health"`
}
