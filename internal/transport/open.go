package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"go.bug.st/serial"

	"solar_controller/internal/config"
	"solar_controller/internal/logger"
	"solar_controller/internal/simulator"
)

// Port URL schemes besides plain device paths.
const (
	SocketScheme    = "socket://"
	SimulatorScheme = "sim://"
)

// allow tests to override the serial driver
var openPort = func(name string, mode *serial.Mode) (serial.Port, error) { return serial.Open(name, mode) }

// NewOpener returns an Opener for cfg.Serial.Port: a serial device path,
// socket://host:port for a TCP serial bridge, or sim:// for the built-in rig emulator.
func NewOpener(cfg config.Config, log *logger.Logger) Opener {
	port := strings.TrimSpace(cfg.Serial.Port)
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		switch {
		case strings.HasPrefix(port, SocketScheme):
			var d net.Dialer
			addr := strings.TrimPrefix(port, SocketScheme)
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, fmt.Errorf("dial %s: %w", addr, err)
			}
			return conn, nil
		case strings.HasPrefix(port, SimulatorScheme):
			return simulator.Open(ctx, simulatorOptions(cfg), log)
		default:
			return openSerial(port, cfg.Serial.BaudRate)
		}
	}
}

func openSerial(name string, baud int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := openPort(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	// reads block in the reader goroutine; readiness comes from the channel it feeds
	if err := p.SetReadTimeout(serial.NoTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout on %q: %w", name, err)
	}
	return p, nil
}

func simulatorOptions(cfg config.Config) simulator.Options {
	return simulator.Options{
		Probes:  span(cfg.Temperature),
		Relays:  span(cfg.Relay),
		PWMs:    span(cfg.PWM),
		Analogs: span(cfg.Analog),
		Tick:    cfg.Simulator.Tick,
	}
}

// span returns one past the highest configured index.
func span(m config.ChannelMap) int {
	entries, err := m.Entries()
	if err != nil || len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1].Index + 1
}
