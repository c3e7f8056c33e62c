package filter

import (
	"slices"
	"time"

	"crmcore/pkg/domain"

	"github.com/shopspring/decimal"
)

// Orders is the conjunctive criteria set for order queries. The related
// criteria resolve against the same view the orders are read from, so
// one query sees one consistent snapshot.
type Orders struct {
	TotalMin             *decimal.Decimal `json:"total_min,omitempty"`
	TotalMax             *decimal.Decimal `json:"total_max,omitempty"`
	PlacedFrom           *time.Time       `json:"placed_from,omitempty"`
	PlacedTo             *time.Time       `json:"placed_to,omitempty"`
	CustomerNameContains string           `json:"customer_name_contains,omitempty"`
	ProductNameContains  string           `json:"product_name_contains,omitempty"`
	ProductID            string           `json:"product_id,omitempty"`
}

// match evaluates the order against the criteria, resolving customer
// and product references through the view. An order with several
// matching members still matches exactly once.
func (o Orders) match(view domain.TransactionView, order domain.Order) bool {
	if o.TotalMin != nil && order.TotalAmount.Cmp(*o.TotalMin) < 0 {
		return false
	}
	if o.TotalMax != nil && order.TotalAmount.Cmp(*o.TotalMax) > 0 {
		return false
	}
	if o.PlacedFrom != nil && order.OrderDate.Before(*o.PlacedFrom) {
		return false
	}
	if o.PlacedTo != nil && order.OrderDate.After(*o.PlacedTo) {
		return false
	}
	if o.CustomerNameContains != "" {
		customer, ok := view.FindCustomer(order.CustomerID)
		if !ok || !containsFold(customer.Name, o.CustomerNameContains) {
			return false
		}
	}
	if o.ProductNameContains != "" && !o.anyProductNameMatches(view, order) {
		return false
	}
	if o.ProductID != "" && !slices.Contains(order.ProductIDs, o.ProductID) {
		return false
	}
	return true
}

func (o Orders) anyProductNameMatches(view domain.TransactionView, order domain.Order) bool {
	for _, id := range order.ProductIDs {
		product, ok := view.FindProduct(id)
		if ok && containsFold(product.Name, o.ProductNameContains) {
			return true
		}
	}
	return false
}

var orderOrderings = map[string]func(a, b domain.Order) int{
	"order_date":   func(a, b domain.Order) int { return a.OrderDate.Compare(b.OrderDate) },
	"total_amount": func(a, b domain.Order) int { return a.TotalAmount.Cmp(b.TotalAmount) },
	"created_at":   func(a, b domain.Order) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// OrderQuery compiles the criteria and ordering against a live view.
func OrderQuery(view domain.TransactionView, criteria Orders, order Ordering) (Query[domain.Order], error) {
	cmp, err := resolveOrdering(order, orderOrderings)
	if err != nil {
		return Query[domain.Order]{}, err
	}
	return Query[domain.Order]{
		source: view.ListOrders,
		match:  func(o domain.Order) bool { return criteria.match(view, o) },
		cmp:    cmp,
	}, nil
}
