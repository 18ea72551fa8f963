package service

import "solar_controller/internal/models"

// LinkStatus reports whether the serial worker is running and why it stopped.
type LinkStatus struct {
	Alive bool   `json:"alive"`
	Msg   string `json:"msg"`
	Trace string `json:"trace,omitempty"`
}

// Status is the process health reported on /status.
type Status struct {
	SerialLink LinkStatus       `json:"serial_link"`
	MCU        models.MCUHealth `json:"mcu"`
}

// Status combines link liveness with the last MCU reset.
func (c *Controller) Status() Status {
	f := c.link.Failure()
	return Status{
		SerialLink: LinkStatus{Alive: c.link.Alive(), Msg: f.Message, Trace: f.Trace},
		MCU:        c.reg.Health().MCU,
	}
}
