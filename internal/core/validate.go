package core

import (
	"fmt"
	"regexp"

	"crmcore/pkg/domain"

	"github.com/shopspring/decimal"
)

// phonePattern is the canonical phone format: optional leading +, digits with
// interior digits/dashes/spaces, at least seven characters total.
var phonePattern = regexp.MustCompile(`^\+?\d[\d\-\s]{5,}\d$`)

// ValidatePhone accepts an absent phone; a present one must match the
// canonical pattern.
func ValidatePhone(phone *string) error {
	if phone == nil || *phone == "" {
		return nil
	}
	if !phonePattern.MatchString(*phone) {
		return domain.ValidationError{Field: "phone", Message: fmt.Sprintf("%q does not match the expected phone format", *phone)}
	}
	return nil
}

// ValidateEmailUnique checks the view for an existing customer with the exact
// (case-sensitive) email.
func ValidateEmailUnique(view domain.TransactionView, email string) error {
	if email == "" {
		return domain.ValidationError{Field: "email", Message: "email is required"}
	}
	if _, exists := view.FindCustomerByEmail(email); exists {
		return domain.DuplicateKeyError{Entity: domain.EntityCustomer, Field: "email", Value: email}
	}
	return nil
}

// ValidatePrice requires a strictly positive price.
func ValidatePrice(price decimal.Decimal) error {
	if price.Cmp(decimal.Zero) <= 0 {
		return domain.ValidationError{Field: "price", Message: "price must be positive"}
	}
	return nil
}

// ValidateStock requires a non-negative stock level.
func ValidateStock(stock int) error {
	if stock < 0 {
		return domain.ValidationError{Field: "stock", Message: "stock cannot be negative"}
	}
	return nil
}

// ValidateCustomerReference resolves a customer id against the view.
func ValidateCustomerReference(view domain.TransactionView, id string) error {
	if _, ok := view.FindCustomer(id); !ok {
		return domain.ReferenceError{Entity: domain.EntityCustomer, IDs: []string{id}}
	}
	return nil
}

// ValidateProductReferences resolves every product id against the view and
// reports all unresolved ids together.
func ValidateProductReferences(view domain.TransactionView, ids []string) error {
	var missing []string
	for _, id := range ids {
		if _, ok := view.FindProduct(id); !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return domain.ReferenceError{Entity: domain.EntityProduct, IDs: missing}
	}
	return nil
}
