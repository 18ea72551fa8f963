package simulator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"solar_controller/internal/logger"
	"solar_controller/internal/protocol"
)

const (
	defaultTick = time.Second

	// reference calibration announced at boot: 5000 mV at 100 %
	referenceMillivolts = 5000
	referencePercent    = 100

	// power-on in the MCUSR mask
	bootResetMask = 1
)

// Options sizes the emulated rig.
type Options struct {
	Probes  int
	Relays  int
	PWMs    int
	Analogs int
	Tick    time.Duration
}

// Simulator emulates the rig firmware on the far end of an in-memory connection.
type Simulator struct {
	rig  *Rig
	tick time.Duration
	log  *logger.Logger
}

func New(opts Options, log *logger.Logger) *Simulator {
	if log == nil {
		log = logger.Nop()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	return &Simulator{
		rig:  NewRig(opts.Probes, opts.Relays, opts.PWMs, opts.Analogs),
		tick: tick,
		log:  log,
	}
}

// Open starts the emulated firmware and returns the host side of the link.
// The firmware stops when ctx is cancelled or the returned connection is closed.
func Open(ctx context.Context, opts Options, log *logger.Logger) (io.ReadWriteCloser, error) {
	host, device := net.Pipe()
	s := New(opts, log)
	go func() {
		defer device.Close()
		s.Run(ctx, device)
	}()
	return host, nil
}

// Run speaks the wire protocol on conn until ctx is cancelled or conn fails.
func (s *Simulator) Run(ctx context.Context, conn io.ReadWriter) {
	cmds := make(chan string, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(cmds)
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			select {
			case cmds <- strings.TrimSpace(sc.Text()):
			case <-done:
				return
			}
		}
	}()

	w := bufio.NewWriter(conn)
	if err := s.boot(w); err != nil {
		return
	}

	t := time.NewTicker(s.tick)
	defer t.Stop()
	last := time.Now()
	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			err = s.handleCommand(w, cmd)
		case now := <-t.C:
			s.rig.Step(now.Sub(last).Seconds())
			last = now
			err = s.report(w)
		}
		if err != nil {
			s.log.Debugw("simulator_write_failed", "err", err)
			return
		}
	}
}

// boot announces a power-on reset, brings every probe up and calibrates the ADC.
func (s *Simulator) boot(w *bufio.Writer) error {
	send(w, protocol.TagBoot, 0, strconv.Itoa(bootResetMask))
	for i := range s.rig.Temps {
		send(w, protocol.TagThermometerState, i, "1")
		send(w, protocol.TagThermometerID, i, fmt.Sprintf("28-%012x", 0x5a1000+i))
		send(w, protocol.TagThermometerState, i, "2")
	}
	send(w, protocol.TagAnalogReference, referenceMillivolts, strconv.Itoa(referencePercent))
	return w.Flush()
}

func (s *Simulator) report(w *bufio.Writer) error {
	s.writeTemperatures(w)
	for i, v := range s.rig.Analog {
		send(w, protocol.TagAnalog, i, strconv.FormatFloat(v, 'f', 1, 64))
	}
	return w.Flush()
}

func (s *Simulator) writeTemperatures(w *bufio.Writer) {
	for i, v := range s.rig.Temps {
		send(w, protocol.TagTemperature, i, strconv.FormatFloat(v, 'f', 2, 64))
	}
}

func (s *Simulator) writeRelays(w *bufio.Writer) {
	for i, v := range s.rig.Relays {
		send(w, protocol.TagRelay, i, strconv.Itoa(v))
	}
}

// handleCommand applies a host command and echoes the resulting state.
func (s *Simulator) handleCommand(w *bufio.Writer, cmd string) error {
	switch cmd {
	case protocol.Query(protocol.TagTemperature):
		s.writeTemperatures(w)
		return w.Flush()
	case protocol.Query(protocol.TagRelay):
		s.writeRelays(w)
		return w.Flush()
	}

	msg, err := protocol.Parse(cmd)
	if err != nil {
		s.log.Debugw("simulator_command_ignored", "line", cmd, "err", err)
		return nil
	}
	switch msg.Tag {
	case protocol.TagRelay:
		v, err := strconv.Atoi(msg.Value)
		if err != nil || msg.Index >= len(s.rig.Relays) {
			return nil
		}
		s.rig.Relays[msg.Index] = v & 1
		send(w, protocol.TagRelay, msg.Index, strconv.Itoa(s.rig.Relays[msg.Index]))
	case protocol.TagPWM:
		v, err := strconv.ParseFloat(msg.Value, 64)
		if err != nil || msg.Index >= len(s.rig.PWM) {
			return nil
		}
		s.rig.PWM[msg.Index] = v
		send(w, protocol.TagPWM, msg.Index, strconv.FormatFloat(v, 'f', 2, 64))
	default:
		return nil
	}
	return w.Flush()
}

func send(w *bufio.Writer, tag protocol.Tag, idx int, value string) {
	_, _ = fmt.Fprintf(w, "%s:%d=%s\n", tag, idx, value)
}
