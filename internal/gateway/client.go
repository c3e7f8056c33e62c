// Package gateway holds the query gateway contract consumed by the
// scheduled jobs, with an HTTP consumer and an in-process adapter.
package gateway

import (
	"context"
	"errors"
	"time"

	"crmcore/internal/core"
	"crmcore/pkg/domain"
)

// ErrUnreachable marks transport-level failures where the gateway could
// not be contacted at all, as opposed to a reachable gateway returning
// an error response.
var ErrUnreachable = errors.New("gateway unreachable")

// Client is the surface the jobs depend on.
type Client interface {
	// Hello is a liveness probe and returns the gateway's greeting.
	Hello(ctx context.Context) (string, error)
	// Aggregate returns store-wide counts and total revenue.
	Aggregate(ctx context.Context) (core.AggregateReport, error)
	// RecentOrders lists orders placed at or after since.
	RecentOrders(ctx context.Context, since time.Time) ([]domain.Order, error)
}
