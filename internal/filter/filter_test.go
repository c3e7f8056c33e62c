package filter

import (
	"strings"
	"testing"
	"time"

	"crmcore/pkg/domain"

	"github.com/shopspring/decimal"
)

type staticView struct {
	customers []domain.Customer
	products  []domain.Product
	orders    []domain.Order
}

func (v staticView) ListCustomers() []domain.Customer { return v.customers }
func (v staticView) ListProducts() []domain.Product   { return v.products }
func (v staticView) ListOrders() []domain.Order       { return v.orders }

func (v staticView) FindCustomer(id string) (domain.Customer, bool) {
	for _, c := range v.customers {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Customer{}, false
}

func (v staticView) FindProduct(id string) (domain.Product, bool) {
	for _, p := range v.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (v staticView) FindOrder(id string) (domain.Order, bool) {
	for _, o := range v.orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (v staticView) FindCustomerByEmail(email string) (domain.Customer, bool) {
	for _, c := range v.customers {
		if c.Email == email {
			return c, true
		}
	}
	return domain.Customer{}, false
}

func at(day int) time.Time {
	return time.Date(2026, time.January, day, 10, 0, 0, 0, time.UTC)
}

func customer(id, name, email string, phone string, created time.Time) domain.Customer {
	c := domain.Customer{
		Base:  domain.Base{ID: id, CreatedAt: created, UpdatedAt: created},
		Name:  name,
		Email: email,
	}
	if phone != "" {
		c.Phone = &phone
	}
	return c
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int { return &n }

func testView() staticView {
	return staticView{
		customers: []domain.Customer{
			customer("c1", "Alice", "alice@example.com", "+1234567890", at(1)),
			customer("c2", "Bob", "bob@example.com", "", at(5)),
			customer("c3", "Natalia", "natalia@example.com", "+33123456789", at(9)),
		},
		products: []domain.Product{
			{Base: domain.Base{ID: "p1", CreatedAt: at(1)}, Name: "Laptop", Price: decimal.RequireFromString("1999.99"), Stock: 3},
			{Base: domain.Base{ID: "p2", CreatedAt: at(2)}, Name: "Monitor", Price: decimal.RequireFromString("599.00"), Stock: 25},
			{Base: domain.Base{ID: "p3", CreatedAt: at(3)}, Name: "Cable", Price: decimal.RequireFromString("9.50"), Stock: 9},
		},
		orders: []domain.Order{
			{Base: domain.Base{ID: "o1", CreatedAt: at(2)}, CustomerID: "c1", ProductIDs: []string{"p1", "p2"}, OrderDate: at(2), TotalAmount: decimal.RequireFromString("2598.99")},
			{Base: domain.Base{ID: "o2", CreatedAt: at(6)}, CustomerID: "c2", ProductIDs: []string{"p3", "p3"}, OrderDate: at(6), TotalAmount: decimal.RequireFromString("19.00")},
			{Base: domain.Base{ID: "o3", CreatedAt: at(8)}, CustomerID: "c3", ProductIDs: []string{"p2"}, OrderDate: at(8), TotalAmount: decimal.RequireFromString("599.00")},
		},
	}
}

func collectIDs[T any](t *testing.T, q Query[T], id func(T) string) []string {
	t.Helper()
	var out []string
	for item := range q.Sequence() {
		out = append(out, id(item))
	}
	return out
}

func customerID(c domain.Customer) string { return c.ID }
func productID(p domain.Product) string   { return p.ID }
func orderID(o domain.Order) string       { return o.ID }

func TestCustomerNameContainsIsCaseInsensitiveSubstring(t *testing.T) {
	view := testView()
	q, err := CustomerQuery(view, Customers{NameContains: "Ali"}, Ordering{Field: "name"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := collectIDs(t, q, customerID)
	// "Ali" hits Alice and Natalia, not Bob.
	if len(got) != 2 || got[0] != "c1" || got[1] != "c3" {
		t.Fatalf("got %v, want [c1 c3]", got)
	}
}

func TestCustomerCriteriaAreConjunctive(t *testing.T) {
	view := testView()
	from := at(4)
	q, err := CustomerQuery(view, Customers{NameContains: "ali", CreatedFrom: &from}, Ordering{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := collectIDs(t, q, customerID)
	if len(got) != 1 || got[0] != "c3" {
		t.Fatalf("got %v, want [c3]", got)
	}
}

func TestCustomerPhonePrefix(t *testing.T) {
	view := testView()
	q, err := CustomerQuery(view, Customers{PhonePrefix: "+1"}, Ordering{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := collectIDs(t, q, customerID)
	if len(got) != 1 || got[0] != "c1" {
		t.Fatalf("got %v, want [c1]", got)
	}
}

func TestProductLowerBoundOnlyRange(t *testing.T) {
	view := testView()
	q, err := ProductQuery(view, Products{PriceMin: price("100")}, Ordering{Field: "price", Direction: Descending})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := collectIDs(t, q, productID)
	if len(got) != 2 || got[0] != "p1" || got[1] != "p2" {
		t.Fatalf("got %v, want [p1 p2]", got)
	}
}

func TestProductStockRangeAndLowStock(t *testing.T) {
	view := testView()
	q, err := ProductQuery(view, Products{StockMin: intPtr(3), StockMax: intPtr(9)}, Ordering{Field: "stock"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := collectIDs(t, q, productID); len(got) != 2 || got[0] != "p1" || got[1] != "p3" {
		t.Fatalf("range got %v, want [p1 p3]", got)
	}

	q, err = ProductQuery(view, Products{LowStock: true}, Ordering{Field: "name"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := collectIDs(t, q, productID); len(got) != 2 || got[0] != "p3" || got[1] != "p1" {
		t.Fatalf("low stock got %v, want [p3 p1]", got)
	}
}

func TestOrderRelatedLookups(t *testing.T) {
	view := testView()

	q, err := OrderQuery(view, Orders{CustomerNameContains: "ali"}, Ordering{Field: "order_date"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := collectIDs(t, q, orderID); len(got) != 2 || got[0] != "o1" || got[1] != "o3" {
		t.Fatalf("customer name got %v, want [o1 o3]", got)
	}

	q, err = OrderQuery(view, Orders{ProductNameContains: "cable"}, Ordering{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	// o2 references the cable twice but matches once.
	if got := collectIDs(t, q, orderID); len(got) != 1 || got[0] != "o2" {
		t.Fatalf("product name got %v, want [o2]", got)
	}

	q, err = OrderQuery(view, Orders{ProductID: "p2"}, Ordering{Field: "total_amount", Direction: Descending})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := collectIDs(t, q, orderID); len(got) != 2 || got[0] != "o1" || got[1] != "o3" {
		t.Fatalf("product id got %v, want [o1 o3]", got)
	}
}

func TestOrderTotalAndDateRanges(t *testing.T) {
	view := testView()
	from, to := at(3), at(7)
	q, err := OrderQuery(view, Orders{TotalMin: price("10"), PlacedFrom: &from, PlacedTo: &to}, Ordering{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := collectIDs(t, q, orderID); len(got) != 1 || got[0] != "o2" {
		t.Fatalf("got %v, want [o2]", got)
	}
}

func TestOrderingWhitelistRejected(t *testing.T) {
	view := testView()
	if _, err := CustomerQuery(view, Customers{}, Ordering{Field: "password"}); err == nil {
		t.Fatalf("non-whitelisted field must be rejected")
	}
	_, err := ProductQuery(view, Products{}, Ordering{Field: "price", Direction: "sideways"})
	if err == nil || !strings.Contains(err.Error(), "direction") {
		t.Fatalf("bad direction must be rejected, got %v", err)
	}
}

func TestSequenceIsRestartableAndLazy(t *testing.T) {
	items := []int{1, 2, 3, 4}
	q := Query[int]{
		source: func() []int { return items },
		match:  func(n int) bool { return n%2 == 0 },
	}
	first := 0
	for range q.Sequence() {
		first++
	}
	// A mutation between consumptions is visible on restart.
	items = append(items, 6)
	second := 0
	for range q.Sequence() {
		second++
	}
	if first != 2 || second != 3 {
		t.Fatalf("counts = %d, %d; want 2, 3", first, second)
	}

	// Early break stops consumption without exhausting the source.
	for n := range q.Sequence() {
		if n == 2 {
			break
		}
	}
}

func TestCollectPaginatesWithCursors(t *testing.T) {
	view := testView()
	q, err := CustomerQuery(view, Customers{}, Ordering{Field: "name"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	pageOne, cursor, err := q.Collect(Page{Limit: 2})
	if err != nil {
		t.Fatalf("page one: %v", err)
	}
	if len(pageOne) != 2 || pageOne[0].Name != "Alice" || pageOne[1].Name != "Bob" {
		t.Fatalf("page one = %+v", pageOne)
	}
	if cursor == "" {
		t.Fatalf("expected a next cursor")
	}

	pageTwo, next, err := q.Collect(Page{Cursor: cursor, Limit: 2})
	if err != nil {
		t.Fatalf("page two: %v", err)
	}
	if len(pageTwo) != 1 || pageTwo[0].Name != "Natalia" {
		t.Fatalf("page two = %+v", pageTwo)
	}
	if next != "" {
		t.Fatalf("exhausted sequence must return no cursor, got %q", next)
	}
}

func TestCollectRejectsMalformedCursor(t *testing.T) {
	view := testView()
	q, err := CustomerQuery(view, Customers{}, Ordering{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, _, err := q.Collect(Page{Cursor: "not-base64!!"}); err == nil {
		t.Fatalf("malformed cursor must fail")
	}
	if _, _, err := q.Collect(Page{Cursor: EncodeCursor(0)[:2]}); err == nil {
		t.Fatalf("truncated cursor must fail")
	}
}

func TestCount(t *testing.T) {
	view := testView()
	q, err := OrderQuery(view, Orders{}, Ordering{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if q.Count() != 3 {
		t.Fatalf("count = %d, want 3", q.Count())
	}
}
