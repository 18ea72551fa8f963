package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"solar_controller/internal/service"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000
)

// wsEnvelope wraps every message pushed to a websocket client.
type wsEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// the dashboard is served from other origins on the LAN
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// snapshotFeed turns the registry into snapshot frames and drops frames
// identical to the one last sent.
type snapshotFeed struct {
	source service.Monitoring
	last   []byte
}

// next returns the frame to send, or nil when nothing changed.
func (f *snapshotFeed) next() ([]byte, error) {
	frame, err := json.Marshal(wsEnvelope{Type: "snapshot", Data: f.source.Snapshot()})
	if err != nil {
		return nil, err
	}
	if bytes.Equal(frame, f.last) {
		return nil, nil
	}
	f.last = frame
	return frame, nil
}

// @Summary      Snapshot stream
// @Description  Upgrades to a websocket, sends {"type":"snapshot","data":{...}} at once, then again whenever the snapshot changes. Changes are checked every interval (default 1s, max 10s).
// @Tags         channels
// @Param        interval     query  string  false  "Go duration, e.g. 500ms"
// @Param        interval_ms  query  int     false  "Interval in milliseconds"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logWS("ws_upgrade_failed", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go h.startReader(conn, closed)

	feed := &snapshotFeed{source: h.services.Monitoring}
	poll := time.NewTicker(interval)
	defer poll.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		frame, err := feed.next()
		if err != nil {
			h.logWS("ws_encode_failed", err)
			return
		}
		if frame != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logWS("ws_write_failed", err)
				return
			}
		}

		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logWS("ws_ping_failed", err)
				return
			}
		case <-poll.C:
		}
	}
}

func (h *Handler) logWS(msg string, err error) {
	if h.log != nil {
		h.log.Debugw(msg, "err", err)
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 within bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}

// startReader drains incoming frames so control messages are handled and
// a closed client is noticed.
func (h *Handler) startReader(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.logWS("ws_read_closed", err)
			return
		}
	}
}
