package jobs

import (
	"context"
	"errors"
	"time"

	"crmcore/internal/gateway"
)

// Heartbeat appends a liveness line on every run. With a gateway
// client configured, the line carries the probe outcome; a failing
// probe degrades the suffix but never fails the job.
type Heartbeat struct {
	book   Logbook
	client gateway.Client
	nowFn  func() time.Time
}

// NewHeartbeat builds the heartbeat job. The client may be nil.
func NewHeartbeat(book Logbook, client gateway.Client) *Heartbeat {
	return &Heartbeat{book: book, client: client, nowFn: time.Now}
}

// SetNowFunc overrides the clock, for tests.
func (h *Heartbeat) SetNowFunc(now func() time.Time) { h.nowFn = now }

// Run appends one heartbeat line.
func (h *Heartbeat) Run(ctx context.Context) error {
	line := stamp(h.nowFn()) + " CRM is alive"
	if h.client != nil {
		line += " | gateway " + h.probe(ctx)
	}
	return h.book.Append(line)
}

func (h *Heartbeat) probe(ctx context.Context) string {
	_, err := h.client.Hello(ctx)
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, gateway.ErrUnreachable):
		return "UNREACHABLE"
	default:
		return "ERROR"
	}
}
