package transport

import (
	"context"
	"math"
	"time"

	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/logger"
)

// Keepalive drives a periodic PING loop against a Conn, ported from the
// teacher's KeepaliveHandler.Start/keepaliveLoop: a ticker at
// cfg.PingInterval, a CheckTimeout-style PongTimeout check that only
// warns (the caller decides whether to reconnect), and clean shutdown on
// ctx cancellation.
type Keepalive struct {
	conn *Conn
	cfg  Config
}

// NewKeepalive builds a Keepalive for conn.
func NewKeepalive(conn *Conn, cfg Config) *Keepalive {
	return &Keepalive{conn: conn, cfg: cfg}
}

// Run blocks, sending a PING every cfg.PingInterval, until ctx is done.
func (k *Keepalive) Run(ctx context.Context) {
	ticker := time.NewTicker(k.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if k.conn.TimedOut() {
				logger.Warnw("transport: pong timeout, connection may be stale",
					logger.FieldDurationMS, k.cfg.PongTimeout.Milliseconds())
			}
			if err := k.conn.Ping(); err != nil {
				logger.Warnw("transport: ping failed", logger.FieldError, err.Error())
			}
		}
	}
}

// DialWithBackoff retries Dial with exponential backoff (base *
// 2^attempt, capped at cfg.ReconnectMaxWait), mirroring the teacher's
// ConnectWithRetry. A zero cfg.ReconnectAttempts means retry forever
// until ctx is cancelled, unlike the teacher's fixed attempt budget,
// since an Agent's reconnect loop runs for the process lifetime rather
// than once per RPC call.
func DialWithBackoff(ctx context.Context, cfg Config, metrics *Metrics) (*Conn, error) {
	var lastErr error
	for attempt := 0; cfg.ReconnectAttempts == 0 || attempt < cfg.ReconnectAttempts; attempt++ {
		if attempt > 0 {
			metrics.RecordReconnect()
		}

		conn, err := Dial(cfg)
		if err == nil {
			metrics.ResetConnectionStart()
			return conn, nil
		}
		lastErr = err
		logger.Warnw("transport: connection attempt failed",
			logger.FieldCount, attempt+1, logger.FieldError, err.Error())

		backoff := time.Duration(float64(cfg.ReconnectBaseWait) * math.Pow(2, float64(attempt)))
		if cfg.ReconnectMaxWait > 0 && backoff > cfg.ReconnectMaxWait {
			backoff = cfg.ReconnectMaxWait
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, errors.Wrapf(lastErr, "transport: failed after %d reconnect attempts", cfg.ReconnectAttempts)
}
