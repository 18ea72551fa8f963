package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"go.uber.org/atomic"

	"solar_controller/internal/logger"
	"solar_controller/internal/queue"
)

// readChunk is the size of a single read from the port.
const readChunk = 64

// Opener opens the connection to the rig.
type Opener func(ctx context.Context) (io.ReadWriteCloser, error)

// LineHandler consumes complete inbound lines. It runs on the link goroutine.
type LineHandler interface {
	HandleLine(ctx context.Context, line string)
}

// Failure describes why the link goroutine stopped.
type Failure struct {
	Message string `json:"msg"`
	Trace   string `json:"trace,omitempty"`
}

// Link owns the connection to the rig. One goroutine reads inbound lines and
// drains the command queue; it is the only writer to the connection.
//
// Any error or panic stops the goroutine for good. The failure is recorded
// and reported through Alive/Failure; nothing is propagated to other goroutines.
type Link struct {
	open    Opener
	queue   *queue.Queue
	handler LineHandler
	log     *logger.Logger
	onDown  func(Failure)

	alive   atomic.Bool
	started atomic.Bool
	message atomic.String
	trace   atomic.String
	done    chan struct{}
}

func NewLink(open Opener, q *queue.Queue, h LineHandler, log *logger.Logger) *Link {
	if log == nil {
		log = logger.Nop()
	}
	return &Link{
		open:    open,
		queue:   q,
		handler: h,
		log:     log,
		done:    make(chan struct{}),
	}
}

// OnDown registers fn to run once when the link dies. Must be called before Start.
func (l *Link) OnDown(fn func(Failure)) { l.onDown = fn }

// Start launches the link goroutine. Cancelling ctx closes the connection
// without recording a failure. Only the first call has any effect.
func (l *Link) Start(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	l.alive.Store(true)
	go l.work(ctx)
}

// Alive reports whether the link goroutine is running.
func (l *Link) Alive() bool { return l.alive.Load() }

// Failure returns the recorded failure; the zero value if none.
func (l *Link) Failure() Failure {
	return Failure{Message: l.message.Load(), Trace: l.trace.Load()}
}

// Done is closed when the link goroutine has exited.
func (l *Link) Done() <-chan struct{} { return l.done }

func (l *Link) work(ctx context.Context) {
	defer close(l.done)
	defer l.alive.Store(false)
	defer func() {
		if r := recover(); r != nil {
			l.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	err := l.run(ctx)
	if err != nil && ctx.Err() == nil {
		l.fail(err)
		return
	}
	l.log.Infow("serial_link_stopped")
}

func (l *Link) fail(err error) {
	f := Failure{Message: err.Error(), Trace: string(debug.Stack())}
	l.message.Store(f.Message)
	l.trace.Store(f.Trace)
	l.alive.Store(false)
	l.log.Errorw("serial_link_down", "err", err)
	if l.onDown != nil {
		l.onDown(f)
	}
}

func (l *Link) run(ctx context.Context) error {
	conn, err := l.open(ctx)
	if err != nil {
		return fmt.Errorf("open link: %w", err)
	}
	stop := make(chan struct{})
	defer func() {
		close(stop)
		_ = conn.Close()
	}()
	l.log.Infow("serial_link_up")

	reads := make(chan []byte)
	readErr := make(chan error, 1)
	go readLoop(conn, reads, readErr, stop)

	var lines LineBuffer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case chunk := <-reads:
			for _, line := range lines.Feed(chunk) {
				l.handler.HandleLine(ctx, line)
			}

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return errors.New("read: connection closed by peer")
			}
			return fmt.Errorf("read: %w", err)

		case <-l.queue.Ready():
			line, ok := l.queue.Pop()
			if !ok {
				continue
			}
			if _, err := io.WriteString(conn, line+"\n"); err != nil {
				return fmt.Errorf("write %q: %w", line, err)
			}
			l.log.Debugw("serial_line_sent", "line", line)
		}
	}
}

// readLoop turns blocking reads into channel sends so run can select on them.
func readLoop(r io.Reader, out chan<- []byte, errc chan<- error, stop <-chan struct{}) {
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- chunk:
			case <-stop:
				return
			}
		}
		if err != nil {
			errc <- err
			return
		}
	}
}
