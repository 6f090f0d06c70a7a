package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arkitektio/rekuest-next/errors"
)

// Conn is one live control-plane WebSocket connection: a thin wrapper
// over *websocket.Conn that serializes writes (gorilla forbids
// concurrent WriteMessage calls on the same connection) and tracks
// PONG liveness for the keepalive loop.
type Conn struct {
	ws      *websocket.Conn
	cfg     Config
	metrics *Metrics

	writeMu sync.Mutex

	pongMu   sync.Mutex
	lastPong time.Time
}

// Dial opens the control-plane WebSocket connection at cfg.URL.
func Dial(cfg Config) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.Dial(cfg.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial")
	}
	c := &Conn{ws: ws, cfg: cfg, metrics: NewMetrics(), lastPong: time.Now()}
	ws.SetPongHandler(func(string) error {
		c.pongMu.Lock()
		c.lastPong = time.Now()
		c.pongMu.Unlock()
		c.metrics.RecordPong(0)
		return nil
	})
	return c, nil
}

// Close tears down the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// Send writes one text frame carrying an encoded wire message.
func (c *Conn) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return errors.Wrap(err, "transport: set write deadline")
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Recv blocks for the next inbound text frame.
func (c *Conn) Recv() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(err, "transport: read")
	}
	return data, nil
}

// Ping sends a low-level WebSocket PING control frame (distinct from the
// app-level wire.Ping/Pong messages exchanged over the same connection)
// and records it in Metrics.
func (c *Conn) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.metrics.RecordPing()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// TimedOut reports whether no PONG (app-level or control-frame) has been
// observed within cfg.PongTimeout.
func (c *Conn) TimedOut() bool {
	c.pongMu.Lock()
	defer c.pongMu.Unlock()
	return time.Since(c.lastPong) > c.cfg.PongTimeout
}

// NotePong records an app-level wire.Pong reply as keepalive evidence,
// letting the agent's PING/PONG exchange double as the liveness signal
// instead of relying solely on WebSocket control frames.
func (c *Conn) NotePong(sentAt time.Time) {
	c.pongMu.Lock()
	c.lastPong = time.Now()
	c.pongMu.Unlock()
	if !sentAt.IsZero() {
		c.metrics.RecordPong(time.Since(sentAt))
	} else {
		c.metrics.RecordPong(0)
	}
}

// Metrics returns the connection's keepalive metrics.
func (c *Conn) Metrics() *Metrics { return c.metrics }
