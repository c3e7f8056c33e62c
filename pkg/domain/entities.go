// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by crmcore.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCustomer identifies a customer record.
	EntityCustomer EntityType = "customer"
	// EntityProduct identifies a product record.
	EntityProduct EntityType = "product"
	// EntityOrder identifies an order record.
	EntityOrder EntityType = "order"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Customer represents a person or organization placing orders.
// Email is globally unique with case-sensitive comparison; CreatedAt is
// written once at creation and never changes afterwards.
type Customer struct {
	Base
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// Product represents a sellable item. Price is strictly positive and
// Stock never drops below zero; stock only changes through explicit
// operations (order creation does not decrement it).
type Product struct {
	Base
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// Order links a customer to one or more products. The association set is
// exclusively owned by the order; TotalAmount is a snapshot of the sum of
// member prices taken at creation time and is never recomputed.
type Order struct {
	Base
	CustomerID  string          `json:"customer_id"`
	ProductIDs  []string        `json:"product_ids"`
	OrderDate   time.Time       `json:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
