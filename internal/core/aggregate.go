package core

import (
	"context"

	"crmcore/pkg/domain"

	"github.com/shopspring/decimal"
)

// AggregateReport summarizes the whole store for operational reporting.
type AggregateReport struct {
	Customers int             `json:"customers"`
	Orders    int             `json:"orders"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Aggregate computes total customer count, total order count, and total
// revenue as the exact decimal sum of order totals, all from one consistent
// snapshot.
func (s *Service) Aggregate(ctx context.Context) (AggregateReport, error) {
	report := AggregateReport{Revenue: decimal.Zero}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		report.Customers = len(view.ListCustomers())
		orders := view.ListOrders()
		report.Orders = len(orders)
		for _, order := range orders {
			report.Revenue = report.Revenue.Add(order.TotalAmount)
		}
		return nil
	})
	if err != nil {
		return AggregateReport{}, err
	}
	return report, nil
}
