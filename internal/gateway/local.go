package gateway

import (
	"context"
	"time"

	"crmcore/internal/core"
	"crmcore/internal/filter"
	"crmcore/pkg/domain"
)

// Local adapts the in-process service to the Client contract so the
// job runner works without a deployed gateway.
type Local struct {
	service *core.Service
}

// NewLocal wraps the service in a gateway client.
func NewLocal(service *core.Service) *Local {
	return &Local{service: service}
}

var _ Client = (*Local)(nil)

// Hello always succeeds in process.
func (l *Local) Hello(context.Context) (string, error) {
	return "crm gateway: ok", nil
}

// Aggregate delegates to the service's consistent-snapshot aggregate.
func (l *Local) Aggregate(ctx context.Context) (core.AggregateReport, error) {
	return l.service.Aggregate(ctx)
}

// RecentOrders runs the placed-from order filter over one snapshot.
func (l *Local) RecentOrders(ctx context.Context, since time.Time) ([]domain.Order, error) {
	var orders []domain.Order
	err := l.service.Store().View(ctx, func(view domain.TransactionView) error {
		q, err := filter.OrderQuery(view, filter.Orders{PlacedFrom: &since}, filter.Ordering{Field: "order_date"})
		if err != nil {
			return err
		}
		for order := range q.Sequence() {
			orders = append(orders, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
