package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeView struct {
	customers []Customer
	products  []Product
	orders    []Order
}

func (v fakeView) ListCustomers() []Customer { return v.customers }
func (v fakeView) ListProducts() []Product   { return v.products }
func (v fakeView) ListOrders() []Order       { return v.orders }

func (v fakeView) FindCustomer(id string) (Customer, bool) {
	for _, c := range v.customers {
		if c.ID == id {
			return c, true
		}
	}
	return Customer{}, false
}

func (v fakeView) FindProduct(id string) (Product, bool) {
	for _, p := range v.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func (v fakeView) FindOrder(id string) (Order, bool) {
	for _, o := range v.orders {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

func (v fakeView) FindCustomerByEmail(email string) (Customer, bool) {
	for _, c := range v.customers {
		if c.Email == email {
			return c, true
		}
	}
	return Customer{}, false
}

func TestResultMergeAndBlocking(t *testing.T) {
	var res Result
	res.Merge(Result{})
	if res.HasBlocking() {
		t.Fatalf("empty result must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "x", Severity: SeverityWarn}}})
	if res.HasBlocking() {
		t.Fatalf("warn severity must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "y", Severity: SeverityBlock}}})
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(res.Violations))
	}
}

func TestErrorKinds(t *testing.T) {
	var verr ValidationError
	err := error(ValidationError{Field: "phone", Message: "invalid format"})
	if !errors.As(err, &verr) || verr.Field != "phone" {
		t.Fatalf("validation error mismatch: %v", err)
	}
	if !strings.Contains(err.Error(), "phone") {
		t.Fatalf("expected field in message, got %q", err.Error())
	}

	dup := DuplicateKeyError{Entity: EntityCustomer, Field: "email", Value: "a@example.com"}
	if !strings.Contains(dup.Error(), "a@example.com") {
		t.Fatalf("duplicate key message: %q", dup.Error())
	}

	ref := ReferenceError{Entity: EntityProduct, IDs: []string{"p1", "p2"}}
	if !strings.Contains(ref.Error(), "p1, p2") {
		t.Fatalf("reference error must name ids: %q", ref.Error())
	}

	inner := errors.New("disk full")
	iv := IntegrityViolation{Op: "createOrder", Err: inner}
	if !errors.Is(iv, inner) {
		t.Fatalf("integrity violation must unwrap")
	}
}

func TestProductBoundsRule(t *testing.T) {
	view := fakeView{products: []Product{
		{Base: Base{ID: "ok"}, Name: "Laptop", Price: decimal.RequireFromString("1999.99"), Stock: 3},
		{Base: Base{ID: "bad-price"}, Name: "Freebie", Price: decimal.Zero, Stock: 1},
		{Base: Base{ID: "bad-stock"}, Name: "Ghost", Price: decimal.NewFromInt(5), Stock: -1},
	}}
	res, err := productBoundsRule{}.Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || !res.HasBlocking() {
		t.Fatalf("expected 2 blocking violations, got %+v", res.Violations)
	}
}

func TestOrderMembershipRule(t *testing.T) {
	view := fakeView{
		customers: []Customer{{Base: Base{ID: "c1"}, Name: "Alice", Email: "alice@example.com"}},
		products:  []Product{{Base: Base{ID: "p1"}, Name: "Laptop", Price: decimal.NewFromInt(1), Stock: 1}},
		orders: []Order{
			{Base: Base{ID: "o1"}, CustomerID: "c1", ProductIDs: []string{"p1"}},
			{Base: Base{ID: "o2"}, CustomerID: "c1", ProductIDs: nil},
			{Base: Base{ID: "o3"}, CustomerID: "missing", ProductIDs: []string{"p1", "ghost"}},
		},
	}
	changes := []Change{
		{Entity: EntityOrder, Action: ActionCreate, After: view.orders[0]},
		{Entity: EntityOrder, Action: ActionCreate, After: view.orders[1]},
		{Entity: EntityOrder, Action: ActionUpdate, After: view.orders[2]},
	}
	res, err := orderMembershipRule{}.Evaluate(context.Background(), view, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 3 {
		t.Fatalf("expected 3 violations, got %+v", res.Violations)
	}

	// Orders outside the change set are not re-validated, even when their
	// references dangle.
	res, err = orderMembershipRule{}.Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("untouched orders must not be checked, got %+v", res.Violations)
	}
}

func TestCustomerEmailRule(t *testing.T) {
	view := fakeView{customers: []Customer{
		{Base: Base{ID: "c1"}, Email: "a@example.com"},
		{Base: Base{ID: "c2"}, Email: "b@example.com"},
		{Base: Base{ID: "c3"}, Email: "a@example.com"},
	}}
	res, err := customerEmailRule{}.Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 || !res.HasBlocking() {
		t.Fatalf("expected one blocking violation, got %+v", res.Violations)
	}
}

func TestRulesEngineAggregates(t *testing.T) {
	engine := NewDefaultRulesEngine()
	view := fakeView{
		products: []Product{{Base: Base{ID: "p"}, Price: decimal.Zero}},
		orders:   []Order{{Base: Base{ID: "o"}, CustomerID: "nobody"}},
	}
	changes := []Change{{Entity: EntityOrder, Action: ActionCreate, After: view.orders[0]}}
	res, err := engine.Evaluate(context.Background(), view, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking aggregate result")
	}
}
