package transport

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/arkitektio/rekuest-next/errors"
)

// Sender fans outbound wire-encoded payloads through a single rate
// limiter and a bounded queue, giving the Agent's many concurrent Actor
// goroutines (each emitting Events) a shared backpressure point rather
// than each hammering Conn.Send directly. Grounded on SPEC_FULL's
// "Metrics/backoff" component: golang.org/x/time/rate stands in for the
// teacher's own hand-rolled sliding-window budget.Limiter (see
// `pulse/budget/limiter.go`) since this module's outbound path is a
// steady token-bucket rate, not a calls-per-minute audit budget.
type Sender struct {
	conn    *Conn
	limiter *rate.Limiter
	queue   chan []byte
}

// NewSender builds a Sender over conn, allowing burst outbound messages
// up to ratePerSec/sec with a queue depth of highWaterMark before Enqueue
// blocks.
func NewSender(conn *Conn, ratePerSec float64, highWaterMark int) *Sender {
	return &Sender{
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1),
		queue:   make(chan []byte, highWaterMark),
	}
}

// Enqueue submits payload for sending, blocking if the queue is at its
// high-water-mark or ctx is done first.
func (s *Sender) Enqueue(ctx context.Context, payload []byte) error {
	select {
	case s.queue <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueDepth reports how many payloads are currently buffered, for
// backpressure/health reporting.
func (s *Sender) QueueDepth() int {
	return len(s.queue)
}

// Run drains the queue, rate-limiting writes to conn, until ctx is done
// or the queue is closed.
func (s *Sender) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-s.queue:
			if !ok {
				return nil
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := s.conn.Send(payload); err != nil {
				return errors.Wrap(err, "transport: sender send")
			}
		}
	}
}

// Close stops accepting new payloads; Run drains the remainder and
// returns once the queue is empty and closed.
func (s *Sender) Close() {
	close(s.queue)
}
