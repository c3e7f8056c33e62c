package filter

import (
	"strings"

	"crmcore/pkg/domain"

	"github.com/shopspring/decimal"
)

// LowStockThreshold marks a product as running low.
const LowStockThreshold = 10

// Products is the conjunctive criteria set for product queries.
type Products struct {
	NameContains string           `json:"name_contains,omitempty"`
	PriceMin     *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax     *decimal.Decimal `json:"price_max,omitempty"`
	StockMin     *int             `json:"stock_min,omitempty"`
	StockMax     *int             `json:"stock_max,omitempty"`
	LowStock     bool             `json:"low_stock,omitempty"`
}

// Match reports whether every set criterion holds for the product.
func (p Products) Match(product domain.Product) bool {
	if !containsFold(product.Name, p.NameContains) {
		return false
	}
	if p.PriceMin != nil && product.Price.Cmp(*p.PriceMin) < 0 {
		return false
	}
	if p.PriceMax != nil && product.Price.Cmp(*p.PriceMax) > 0 {
		return false
	}
	if p.StockMin != nil && product.Stock < *p.StockMin {
		return false
	}
	if p.StockMax != nil && product.Stock > *p.StockMax {
		return false
	}
	if p.LowStock && product.Stock >= LowStockThreshold {
		return false
	}
	return true
}

var productOrderings = map[string]func(a, b domain.Product) int{
	"name":       func(a, b domain.Product) int { return strings.Compare(a.Name, b.Name) },
	"price":      func(a, b domain.Product) int { return a.Price.Cmp(b.Price) },
	"stock":      func(a, b domain.Product) int { return a.Stock - b.Stock },
	"created_at": func(a, b domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// ProductQuery compiles the criteria and ordering against a live view.
func ProductQuery(view domain.TransactionView, criteria Products, order Ordering) (Query[domain.Product], error) {
	cmp, err := resolveOrdering(order, productOrderings)
	if err != nil {
		return Query[domain.Product]{}, err
	}
	return Query[domain.Product]{
		source: view.ListProducts,
		match:  criteria.Match,
		cmp:    cmp,
	}, nil
}
