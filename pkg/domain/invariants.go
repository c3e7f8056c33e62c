package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRules returns the built-in invariant rules registered by every
// store unless the caller supplies its own engine. They guard the schema
// constraints at commit time, behind the validation engine's pre-checks.
func DefaultRules() []Rule {
	return []Rule{
		productBoundsRule{},
		orderMembershipRule{},
		customerEmailRule{},
	}
}

// NewDefaultRulesEngine constructs an engine with the built-in rules
// already registered.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	for _, rule := range DefaultRules() {
		engine.Register(rule)
	}
	return engine
}

type productBoundsRule struct{}

func (productBoundsRule) Name() string { return "product_bounds" }

func (productBoundsRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	res := Result{}
	for _, product := range view.ListProducts() {
		if product.Price.Cmp(decimal.Zero) <= 0 {
			res.Violations = append(res.Violations, Violation{
				Rule:     "product_bounds",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("product %s (%s) has non-positive price %s", product.Name, product.ID, product.Price),
				Entity:   EntityProduct,
				EntityID: product.ID,
			})
		}
		if product.Stock < 0 {
			res.Violations = append(res.Violations, Violation{
				Rule:     "product_bounds",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("product %s (%s) has negative stock %d", product.Name, product.ID, product.Stock),
				Entity:   EntityProduct,
				EntityID: product.ID,
			})
		}
	}
	return res, nil
}

type orderMembershipRule struct{}

func (orderMembershipRule) Name() string { return "order_membership" }

// Evaluate checks only the orders created or updated within the current
// transaction. Committed orders are never re-validated, so a product delete
// leaves orders referencing it intact.
func (orderMembershipRule) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	res := Result{}
	seen := make(map[string]struct{})
	for _, change := range changes {
		if change.Entity != EntityOrder || change.Action == ActionDelete {
			continue
		}
		touched, ok := change.After.(Order)
		if !ok {
			continue
		}
		if _, dup := seen[touched.ID]; dup {
			continue
		}
		seen[touched.ID] = struct{}{}
		order, ok := view.FindOrder(touched.ID)
		if !ok {
			continue
		}
		if len(order.ProductIDs) == 0 {
			res.Violations = append(res.Violations, Violation{
				Rule:     "order_membership",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("order %s has an empty product set", order.ID),
				Entity:   EntityOrder,
				EntityID: order.ID,
			})
			continue
		}
		if _, ok := view.FindCustomer(order.CustomerID); !ok {
			res.Violations = append(res.Violations, Violation{
				Rule:     "order_membership",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("order %s references missing customer %s", order.ID, order.CustomerID),
				Entity:   EntityOrder,
				EntityID: order.ID,
			})
		}
		for _, pid := range order.ProductIDs {
			if _, ok := view.FindProduct(pid); !ok {
				res.Violations = append(res.Violations, Violation{
					Rule:     "order_membership",
					Severity: SeverityBlock,
					Message:  fmt.Sprintf("order %s references missing product %s", order.ID, pid),
					Entity:   EntityOrder,
					EntityID: order.ID,
				})
			}
		}
	}
	return res, nil
}

type customerEmailRule struct{}

func (customerEmailRule) Name() string { return "customer_email_unique" }

func (customerEmailRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	seen := make(map[string]string)
	res := Result{}
	for _, customer := range view.ListCustomers() {
		if prev, ok := seen[customer.Email]; ok {
			res.Violations = append(res.Violations, Violation{
				Rule:     "customer_email_unique",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("customers %s and %s share email %s", prev, customer.ID, customer.Email),
				Entity:   EntityCustomer,
				EntityID: customer.ID,
			})
			continue
		}
		seen[customer.Email] = customer.ID
	}
	return res, nil
}
