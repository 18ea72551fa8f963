package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"solar_controller/internal/config"
	"solar_controller/internal/queue"
)

// ---- LineBuffer ----

func TestLineBuffer_Feed(t *testing.T) {
	var b LineBuffer
	if got := b.Feed([]byte("T:0=2")); len(got) != 0 {
		t.Fatalf("partial line returned: %v", got)
	}
	got := b.Feed([]byte("1.5\r\nR:1=3\n\n  \nA:0="))
	if len(got) != 2 || got[0] != "T:0=21.5" || got[1] != "R:1=3" {
		t.Fatalf("got %q", got)
	}
	if b.Pending() != len("A:0=") {
		t.Fatalf("pending=%d", b.Pending())
	}
	got = b.Feed([]byte("7\n"))
	if len(got) != 1 || got[0] != "A:0=7" {
		t.Fatalf("got %q", got)
	}
}

func TestLineBuffer_DropsRunawayInput(t *testing.T) {
	var b LineBuffer
	b.Feed([]byte(strings.Repeat("x", maxPendingBytes+1)))
	if b.Pending() != 0 {
		t.Fatalf("runaway input kept: %d bytes", b.Pending())
	}
	got := b.Feed([]byte("T:0=1\n"))
	if len(got) != 1 || got[0] != "T:0=1" {
		t.Fatalf("did not resynchronise: %q", got)
	}
}

// ---- Link ----

type recordingHandler struct {
	mu    sync.Mutex
	lines []string
	seen  chan string
	panic string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(chan string, 16)}
}

func (h *recordingHandler) HandleLine(_ context.Context, line string) {
	if h.panic != "" && line == h.panic {
		panic("boom on " + line)
	}
	h.mu.Lock()
	h.lines = append(h.lines, line)
	h.mu.Unlock()
	h.seen <- line
}

func pipeOpener(conn net.Conn) Opener {
	return func(context.Context) (io.ReadWriteCloser, error) { return conn, nil }
}

func waitDone(t *testing.T, l *Link) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("link goroutine did not exit")
	}
}

func TestLink_DispatchesLinesAndWritesCommands(t *testing.T) {
	host, device := net.Pipe()
	defer device.Close()

	q := queue.New()
	h := newRecordingHandler()
	l := NewLink(pipeOpener(host), q, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)
	if !l.Alive() {
		t.Fatalf("link not alive after Start")
	}

	go func() { _, _ = device.Write([]byte("T:0=21.5\nR:1=")) }()
	select {
	case line := <-h.seen:
		if line != "T:0=21.5" {
			t.Fatalf("got %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("line not dispatched")
	}

	q.Push("R:0=1")
	q.Push("P:1=12.50")
	_ = device.SetReadDeadline(time.Now().Add(2 * time.Second))
	sc := bufio.NewScanner(device)
	for _, want := range []string{"R:0=1", "P:1=12.50"} {
		if !sc.Scan() {
			t.Fatalf("expected %q on the wire: %v", want, sc.Err())
		}
		if sc.Text() != want {
			t.Fatalf("wire got %q, want %q", sc.Text(), want)
		}
	}

	cancel()
	waitDone(t, l)
	if l.Alive() {
		t.Fatalf("link alive after cancel")
	}
	if f := l.Failure(); f.Message != "" {
		t.Fatalf("cancel recorded a failure: %+v", f)
	}
}

func TestLink_PeerCloseKillsLink(t *testing.T) {
	host, device := net.Pipe()
	l := NewLink(pipeOpener(host), queue.New(), newRecordingHandler(), nil)

	var down []Failure
	var mu sync.Mutex
	l.OnDown(func(f Failure) {
		mu.Lock()
		down = append(down, f)
		mu.Unlock()
	})

	l.Start(context.Background())
	_ = device.Close()
	waitDone(t, l)

	if l.Alive() {
		t.Fatalf("link alive after peer close")
	}
	f := l.Failure()
	if !strings.Contains(f.Message, "closed") || f.Trace == "" {
		t.Fatalf("unexpected failure: %+v", f)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(down) != 1 {
		t.Fatalf("OnDown called %d times", len(down))
	}
}

func TestLink_HandlerPanicIsContained(t *testing.T) {
	host, device := net.Pipe()
	defer device.Close()

	h := newRecordingHandler()
	h.panic = "B:0=9"
	l := NewLink(pipeOpener(host), queue.New(), h, nil)
	l.Start(context.Background())

	go func() { _, _ = device.Write([]byte("B:0=9\n")) }()
	waitDone(t, l)

	f := l.Failure()
	if !strings.Contains(f.Message, "boom on B:0=9") || !strings.Contains(f.Trace, "goroutine") {
		t.Fatalf("panic not recorded: %+v", f)
	}
}

func TestLink_OpenError(t *testing.T) {
	openErr := errors.New("no such device")
	l := NewLink(func(context.Context) (io.ReadWriteCloser, error) { return nil, openErr }, queue.New(), newRecordingHandler(), nil)
	l.Start(context.Background())
	waitDone(t, l)

	if l.Alive() || !strings.Contains(l.Failure().Message, "no such device") {
		t.Fatalf("alive=%v failure=%+v", l.Alive(), l.Failure())
	}
}

func TestLink_StartTwiceIsNoop(t *testing.T) {
	host, device := net.Pipe()
	defer device.Close()
	opens := 0
	l := NewLink(func(context.Context) (io.ReadWriteCloser, error) {
		opens++
		return host, nil
	}, queue.New(), newRecordingHandler(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	l.Start(ctx)
	cancel()
	waitDone(t, l)
	if opens != 1 {
		t.Fatalf("opened %d times", opens)
	}
}

// ---- Opener ----

func TestNewOpener_Socket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan string, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		line, _ := bufio.NewReader(c).ReadString('\n')
		accepted <- line
	}()

	open := NewOpener(config.Config{Serial: config.SerialConfig{Port: SocketScheme + ln.Addr().String()}}, nil)
	conn, err := open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	_, _ = io.WriteString(conn, "R?\n")

	select {
	case got := <-accepted:
		if got != "R?\n" {
			t.Fatalf("got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("nothing received")
	}
}

func TestNewOpener_Simulator(t *testing.T) {
	cfg := config.Config{
		Serial: config.SerialConfig{Port: SimulatorScheme},
		Relay:  config.ChannelMap{"2": {Name: "AUX"}},
	}
	if got := simulatorOptions(cfg).Relays; got != 3 {
		t.Fatalf("relay span=%d, want 3", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn, err := NewOpener(cfg, nil)(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil || line != "B:0=1\n" {
		t.Fatalf("first line %q, err %v", line, err)
	}
}
