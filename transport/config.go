// Package transport drives the agent's single control-plane WebSocket
// connection: dialing, framing reads/writes, a PING/PONG keepalive loop,
// and reconnect-with-backoff. Grounded on the teacher's
// `plugin/grpc/websocket_keepalive.go` (`KeepaliveHandler`/
// `KeepaliveMetrics`/`ConnectWithRetry`, read in full) for the keepalive
// and backoff shape, and `server/wslogs/transport.go`'s callback-routed
// `SendFunc` idiom for decoupling "I have a message to send" from the
// connection's own lifecycle.
package transport

import "time"

// Config mirrors teranos-QNTX's KeepaliveConfig, renamed to this
// module's domain: one control-plane connection per Agent rather than
// one per log-streaming client.
type Config struct {
	URL string

	PingInterval      time.Duration
	PongTimeout       time.Duration
	ReconnectAttempts int
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
}

// DefaultConfig mirrors DefaultKeepaliveConfig's values.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		PingInterval:      30 * time.Second,
		PongTimeout:       60 * time.Second,
		ReconnectAttempts: 0, // 0 means unlimited, unlike the teacher's fixed budget
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  30 * time.Second,
	}
}
