package filter

import (
	"strings"
	"time"

	"crmcore/pkg/domain"
)

// Customers is the conjunctive criteria set for customer queries.
// Zero-valued fields do not constrain the result.
type Customers struct {
	NameContains  string     `json:"name_contains,omitempty"`
	EmailContains string     `json:"email_contains,omitempty"`
	CreatedFrom   *time.Time `json:"created_from,omitempty"`
	CreatedTo     *time.Time `json:"created_to,omitempty"`
	PhonePrefix   string     `json:"phone_prefix,omitempty"`
}

// Match reports whether every set criterion holds for the customer.
func (c Customers) Match(customer domain.Customer) bool {
	if !containsFold(customer.Name, c.NameContains) {
		return false
	}
	if !containsFold(customer.Email, c.EmailContains) {
		return false
	}
	if c.CreatedFrom != nil && customer.CreatedAt.Before(*c.CreatedFrom) {
		return false
	}
	if c.CreatedTo != nil && customer.CreatedAt.After(*c.CreatedTo) {
		return false
	}
	if c.PhonePrefix != "" {
		if customer.Phone == nil || !strings.HasPrefix(*customer.Phone, c.PhonePrefix) {
			return false
		}
	}
	return true
}

var customerOrderings = map[string]func(a, b domain.Customer) int{
	"name":       func(a, b domain.Customer) int { return strings.Compare(a.Name, b.Name) },
	"email":      func(a, b domain.Customer) int { return strings.Compare(a.Email, b.Email) },
	"created_at": func(a, b domain.Customer) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// CustomerQuery compiles the criteria and ordering against a live view.
func CustomerQuery(view domain.TransactionView, criteria Customers, order Ordering) (Query[domain.Customer], error) {
	cmp, err := resolveOrdering(order, customerOrderings)
	if err != nil {
		return Query[domain.Customer]{}, err
	}
	return Query[domain.Customer]{
		source: view.ListCustomers,
		match:  criteria.Match,
		cmp:    cmp,
	}, nil
}
