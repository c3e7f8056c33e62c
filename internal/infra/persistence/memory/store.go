// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sync"
	"time"

	"crmcore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Customer aliases domain.Customer for in-memory persistence operations.
	Customer = domain.Customer
	// Product aliases domain.Product.
	Product = domain.Product
	// Order aliases domain.Order.
	Order = domain.Order
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	customers map[string]Customer
	products  map[string]Product
	orders    map[string]Order
	// emails indexes customer IDs by email, mirroring a unique constraint.
	emails map[string]string
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Customers map[string]Customer `json:"customers"`
	Products  map[string]Product  `json:"products"`
	Orders    map[string]Order    `json:"orders"`
}

func newMemoryState() memoryState {
	return memoryState{
		customers: make(map[string]Customer),
		products:  make(map[string]Product),
		orders:    make(map[string]Order),
		emails:    make(map[string]string),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.customers {
		cloned.customers[k] = cloneCustomer(v)
	}
	for k, v := range s.products {
		cloned.products[k] = cloneProduct(v)
	}
	for k, v := range s.orders {
		cloned.orders[k] = cloneOrder(v)
	}
	for k, v := range s.emails {
		cloned.emails[k] = v
	}
	return cloned
}

func cloneCustomer(c Customer) Customer {
	cp := c
	if c.Phone != nil {
		phone := *c.Phone
		cp.Phone = &phone
	}
	return cp
}

func cloneProduct(p Product) Product { return p }

func cloneOrder(o Order) Order {
	cp := o
	cp.ProductIDs = append([]string(nil), o.ProductIDs...)
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
	newID  func() string
}

// NewStore constructs an in-memory store backed by the provided rules engine.
// A nil engine gets the built-in invariant rules.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewDefaultRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// RulesEngine exposes the engine evaluating invariants at commit.
func (s *Store) RulesEngine() *RulesEngine { return s.engine }

// NowFunc returns the clock used to stamp created records.
func (s *Store) NowFunc() func() time.Time { return s.nowFn }

// SetNowFunc overrides the store clock, primarily for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

// view exposes a read-only snapshot of the transactional state.
type view struct {
	state *memoryState
}

var _ TransactionView = view{}

func (v view) ListCustomers() []Customer {
	out := make([]Customer, 0, len(v.state.customers))
	for _, c := range v.state.customers {
		out = append(out, cloneCustomer(c))
	}
	return out
}

func (v view) ListProducts() []Product {
	out := make([]Product, 0, len(v.state.products))
	for _, p := range v.state.products {
		out = append(out, cloneProduct(p))
	}
	return out
}

func (v view) ListOrders() []Order {
	out := make([]Order, 0, len(v.state.orders))
	for _, o := range v.state.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

func (v view) FindCustomer(id string) (Customer, bool) {
	c, ok := v.state.customers[id]
	if !ok {
		return Customer{}, false
	}
	return cloneCustomer(c), true
}

func (v view) FindProduct(id string) (Product, bool) {
	p, ok := v.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

func (v view) FindOrder(id string) (Order, bool) {
	o, ok := v.state.orders[id]
	if !ok {
		return Order{}, false
	}
	return cloneOrder(o), true
}

func (v view) FindCustomerByEmail(email string) (Customer, bool) {
	id, ok := v.state.emails[email]
	if !ok {
		return Customer{}, false
	}
	return v.FindCustomer(id)
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy is committed only when fn succeeds and no blocking rule violation
// is present; every other exit path leaves the committed state untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view of the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return view{state: &tx.state}
}

// CreateCustomer stores a new customer within the transaction, enforcing the
// unique-email index.
func (tx *transaction) CreateCustomer(c Customer) (Customer, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.customers[c.ID]; exists {
		return Customer{}, domain.DuplicateKeyError{Entity: domain.EntityCustomer, Field: "id", Value: c.ID}
	}
	if _, exists := tx.state.emails[c.Email]; exists {
		return Customer{}, domain.DuplicateKeyError{Entity: domain.EntityCustomer, Field: "email", Value: c.Email}
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.customers[c.ID] = cloneCustomer(c)
	tx.state.emails[c.Email] = c.ID
	tx.recordChange(Change{Entity: domain.EntityCustomer, Action: domain.ActionCreate, After: cloneCustomer(c)})
	return cloneCustomer(c), nil
}

// UpdateCustomer mutates a customer using the provided mutator function.
// CreatedAt is immutable; email changes keep the unique index consistent.
func (tx *transaction) UpdateCustomer(id string, mutator func(*Customer) error) (Customer, error) {
	current, ok := tx.state.customers[id]
	if !ok {
		return Customer{}, domain.NotFoundError{Entity: domain.EntityCustomer, ID: id}
	}
	before := cloneCustomer(current)
	if err := mutator(&current); err != nil {
		return Customer{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if current.Email != before.Email {
		if _, taken := tx.state.emails[current.Email]; taken {
			return Customer{}, domain.DuplicateKeyError{Entity: domain.EntityCustomer, Field: "email", Value: current.Email}
		}
		delete(tx.state.emails, before.Email)
		tx.state.emails[current.Email] = id
	}
	tx.state.customers[id] = cloneCustomer(current)
	tx.recordChange(Change{Entity: domain.EntityCustomer, Action: domain.ActionUpdate, Before: before, After: cloneCustomer(current)})
	return cloneCustomer(current), nil
}

// DeleteCustomer removes a customer and cascades to the orders it owns.
func (tx *transaction) DeleteCustomer(id string) error {
	current, ok := tx.state.customers[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityCustomer, ID: id}
	}
	for oid, order := range tx.state.orders {
		if order.CustomerID != id {
			continue
		}
		delete(tx.state.orders, oid)
		tx.recordChange(Change{Entity: domain.EntityOrder, Action: domain.ActionDelete, Before: cloneOrder(order)})
	}
	delete(tx.state.customers, id)
	delete(tx.state.emails, current.Email)
	tx.recordChange(Change{Entity: domain.EntityCustomer, Action: domain.ActionDelete, Before: cloneCustomer(current)})
	return nil
}

// CreateProduct stores a new product.
func (tx *transaction) CreateProduct(p Product) (Product, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.products[p.ID]; exists {
		return Product{}, domain.DuplicateKeyError{Entity: domain.EntityProduct, Field: "id", Value: p.ID}
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.products[p.ID] = cloneProduct(p)
	tx.recordChange(Change{Entity: domain.EntityProduct, Action: domain.ActionCreate, After: cloneProduct(p)})
	return cloneProduct(p), nil
}

// UpdateProduct mutates an existing product.
func (tx *transaction) UpdateProduct(id string, mutator func(*Product) error) (Product, error) {
	current, ok := tx.state.products[id]
	if !ok {
		return Product{}, domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
	}
	before := cloneProduct(current)
	if err := mutator(&current); err != nil {
		return Product{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.products[id] = cloneProduct(current)
	tx.recordChange(Change{Entity: domain.EntityProduct, Action: domain.ActionUpdate, Before: before, After: cloneProduct(current)})
	return cloneProduct(current), nil
}

// DeleteProduct removes a product. Orders referencing it are left intact;
// they reference, not own, the product.
func (tx *transaction) DeleteProduct(id string) error {
	current, ok := tx.state.products[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
	}
	delete(tx.state.products, id)
	tx.recordChange(Change{Entity: domain.EntityProduct, Action: domain.ActionDelete, Before: cloneProduct(current)})
	return nil
}

// CreateOrder stores an order together with its full association set.
func (tx *transaction) CreateOrder(o Order) (Order, error) {
	if o.ID == "" {
		o.ID = tx.store.newID()
	}
	if _, exists := tx.state.orders[o.ID]; exists {
		return Order{}, domain.DuplicateKeyError{Entity: domain.EntityOrder, Field: "id", Value: o.ID}
	}
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	if o.OrderDate.IsZero() {
		o.OrderDate = tx.now
	}
	tx.state.orders[o.ID] = cloneOrder(o)
	tx.recordChange(Change{Entity: domain.EntityOrder, Action: domain.ActionCreate, After: cloneOrder(o)})
	return cloneOrder(o), nil
}

// UpdateOrder mutates an existing order.
func (tx *transaction) UpdateOrder(id string, mutator func(*Order) error) (Order, error) {
	current, ok := tx.state.orders[id]
	if !ok {
		return Order{}, domain.NotFoundError{Entity: domain.EntityOrder, ID: id}
	}
	before := cloneOrder(current)
	if err := mutator(&current); err != nil {
		return Order{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.orders[id] = cloneOrder(current)
	tx.recordChange(Change{Entity: domain.EntityOrder, Action: domain.ActionUpdate, Before: before, After: cloneOrder(current)})
	return cloneOrder(current), nil
}

// FindCustomer retrieves a customer by ID from the transaction state.
func (tx *transaction) FindCustomer(id string) (Customer, bool) {
	return view{state: &tx.state}.FindCustomer(id)
}

// FindProduct retrieves a product by ID from the transaction state.
func (tx *transaction) FindProduct(id string) (Product, bool) {
	return view{state: &tx.state}.FindProduct(id)
}

// FindCustomerByEmail retrieves a customer by exact email match.
func (tx *transaction) FindCustomerByEmail(email string) (Customer, bool) {
	return view{state: &tx.state}.FindCustomerByEmail(email)
}

// Read helpers ---------------------------------------------------------------

// GetCustomer retrieves a customer by ID from committed state.
func (s *Store) GetCustomer(id string) (Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.customers[id]
	if !ok {
		return Customer{}, false
	}
	return cloneCustomer(c), true
}

// ListCustomers returns all customers from committed state.
func (s *Store) ListCustomers() []Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Customer, 0, len(s.state.customers))
	for _, c := range s.state.customers {
		out = append(out, cloneCustomer(c))
	}
	return out
}

// GetProduct retrieves a product by ID from committed state.
func (s *Store) GetProduct(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

// ListProducts returns all products from committed state.
func (s *Store) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.state.products))
	for _, p := range s.state.products {
		out = append(out, cloneProduct(p))
	}
	return out
}

// GetOrder retrieves an order by ID from committed state.
func (s *Store) GetOrder(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.orders[id]
	if !ok {
		return Order{}, false
	}
	return cloneOrder(o), true
}

// ListOrders returns all orders from committed state.
func (s *Store) ListOrders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.state.orders))
	for _, o := range s.state.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

// FindCustomerByEmail retrieves a customer by exact email from committed state.
func (s *Store) FindCustomerByEmail(email string) (Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.state.emails[email]
	if !ok {
		return Customer{}, false
	}
	c, ok := s.state.customers[id]
	if !ok {
		return Customer{}, false
	}
	return cloneCustomer(c), true
}

// ExportState returns a deep copy of the committed state for snapshotting
// backends.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Customers: make(map[string]Customer, len(s.state.customers)),
		Products:  make(map[string]Product, len(s.state.products)),
		Orders:    make(map[string]Order, len(s.state.orders)),
	}
	for k, v := range s.state.customers {
		snap.Customers[k] = cloneCustomer(v)
	}
	for k, v := range s.state.products {
		snap.Products[k] = cloneProduct(v)
	}
	for k, v := range s.state.orders {
		snap.Orders[k] = cloneOrder(v)
	}
	return snap
}

// ImportState replaces the committed state with the provided snapshot,
// rebuilding the unique-email index.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for k, v := range snap.Customers {
		state.customers[k] = cloneCustomer(v)
		state.emails[v.Email] = k
	}
	for k, v := range snap.Products {
		state.products[k] = cloneProduct(v)
	}
	for k, v := range snap.Orders {
		state.orders[k] = cloneOrder(v)
	}
	s.state = state
}
