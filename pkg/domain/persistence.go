package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateCustomer(Customer) (Customer, error)
	UpdateCustomer(id string, mutator func(*Customer) error) (Customer, error)
	DeleteCustomer(id string) error
	CreateProduct(Product) (Product, error)
	UpdateProduct(id string, mutator func(*Product) error) (Product, error)
	DeleteProduct(id string) error
	CreateOrder(Order) (Order, error)
	UpdateOrder(id string, mutator func(*Order) error) (Order, error)
	FindCustomer(id string) (Customer, bool)
	FindProduct(id string) (Product, bool)
	FindCustomerByEmail(email string) (Customer, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// validation.
type TransactionView interface {
	ListCustomers() []Customer
	ListProducts() []Product
	ListOrders() []Order
	FindCustomer(id string) (Customer, bool)
	FindProduct(id string) (Product, bool)
	FindOrder(id string) (Order, bool)
	FindCustomerByEmail(email string) (Customer, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCustomer(id string) (Customer, bool)
	ListCustomers() []Customer
	GetProduct(id string) (Product, bool)
	ListProducts() []Product
	GetOrder(id string) (Order, bool)
	ListOrders() []Order
	FindCustomerByEmail(email string) (Customer, bool)
}
