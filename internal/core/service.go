// Package core implements the mutation executor: the transactional service
// that validates inputs and orchestrates entity store writes.
package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crmcore/pkg/domain"

	"github.com/shopspring/decimal"
)

// Service exposes the mutation operations over a persistent store. Each
// single-entity mutation runs inside one atomic transaction; bulk creation
// runs one independent transaction per input row.
type Service struct {
	store   domain.PersistentStore
	logger  *slog.Logger
	metrics MetricsRecorder
	nowFn   func() time.Time
}

// Option customizes service construction.
type Option func(*Service)

// WithLogger attaches a structured logger to the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches a metrics recorder observing every operation.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithNowFunc overrides the clock used for default order dates.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  slog.Default(),
		metrics: noopMetrics{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.logger.ErrorContext(ctx, "mutation failed", "operation", op, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "mutation applied", "operation", op)
}

// CreateCustomerInput carries the typed fields for CreateCustomer.
type CreateCustomerInput struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// CreateCustomer validates the phone format and writes exactly one customer
// row in a single atomic scope. A duplicate email surfaces as
// domain.DuplicateKeyError; no partial state survives any failure.
func (s *Service) CreateCustomer(ctx context.Context, in CreateCustomerInput) (domain.Customer, error) {
	start := s.nowFn()
	created, err := s.createCustomer(ctx, in)
	s.observe(ctx, "createCustomer", start, err)
	return created, err
}

func (s *Service) createCustomer(ctx context.Context, in CreateCustomerInput) (domain.Customer, error) {
	if err := ValidatePhone(in.Phone); err != nil {
		return domain.Customer{}, err
	}
	var created domain.Customer
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := ValidateEmailUnique(tx.Snapshot(), in.Email); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateCustomer(domain.Customer{Name: in.Name, Email: in.Email, Phone: in.Phone})
		return err
	})
	if err != nil {
		return domain.Customer{}, categorize("createCustomer", err)
	}
	return created, nil
}

// BulkRowError identifies a failed bulk row by its email.
type BulkRowError struct {
	Index   int    `json:"index"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// BulkCreateResult aggregates per-row outcomes of a bulk customer creation.
type BulkCreateResult struct {
	Created []domain.Customer `json:"created"`
	Errors  []BulkRowError    `json:"errors,omitempty"`
}

// BulkCreateCustomers validates and persists each row independently: a row
// failing validation or colliding on email is reported by its email and never
// blocks sibling rows. Each passing row commits in its own transaction scope,
// so a later write failure cannot roll back an earlier success.
func (s *Service) BulkCreateCustomers(ctx context.Context, rows []CreateCustomerInput) (BulkCreateResult, error) {
	start := s.nowFn()
	result := BulkCreateResult{}
	for i, row := range rows {
		created, err := s.createCustomer(ctx, row)
		if err != nil {
			result.Errors = append(result.Errors, BulkRowError{Index: i, Email: row.Email, Message: err.Error()})
			continue
		}
		result.Created = append(result.Created, created)
	}
	success := len(result.Errors) == 0
	s.metrics.Observe(ctx, "bulkCreateCustomers", success, time.Since(start))
	if success {
		s.logger.DebugContext(ctx, "mutation applied",
			"operation", "bulkCreateCustomers", "created", len(result.Created))
	} else {
		s.logger.WarnContext(ctx, "bulk creation completed with row errors",
			"operation", "bulkCreateCustomers", "created", len(result.Created), "failed", len(result.Errors))
	}
	return result, nil
}

// CreateProductInput carries the typed fields for CreateProduct.
type CreateProductInput struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// CreateProduct validates price and stock bounds, then writes the product in
// one atomic scope. Invalid input is terminal; no partial state.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	start := s.nowFn()
	created, err := s.createProduct(ctx, in)
	s.observe(ctx, "createProduct", start, err)
	return created, err
}

func (s *Service) createProduct(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	if err := ValidatePrice(in.Price); err != nil {
		return domain.Product{}, err
	}
	if err := ValidateStock(in.Stock); err != nil {
		return domain.Product{}, err
	}
	var created domain.Product
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProduct(domain.Product{Name: in.Name, Price: in.Price, Stock: in.Stock})
		return err
	})
	if err != nil {
		return domain.Product{}, categorize("createProduct", err)
	}
	return created, nil
}

// CreateOrderInput carries the typed fields for CreateOrder. OrderDate
// defaults to the current time when nil.
type CreateOrderInput struct {
	CustomerID string     `json:"customer_id"`
	ProductIDs []string   `json:"product_ids"`
	OrderDate  *time.Time `json:"order_date,omitempty"`
}

// CreateOrder resolves the customer and the full product set, computes the
// total as the exact decimal sum of current prices, and writes the order with
// its association set in one atomic scope. No order is ever visible with a
// partial product set or an uncomputed total.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	start := s.nowFn()
	created, err := s.createOrder(ctx, in)
	s.observe(ctx, "createOrder", start, err)
	return created, err
}

func (s *Service) createOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if len(in.ProductIDs) == 0 {
		return domain.Order{}, domain.ValidationError{Field: "product_ids", Message: "an order requires at least one product"}
	}
	var created domain.Order
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		snapshot := tx.Snapshot()
		if err := ValidateCustomerReference(snapshot, in.CustomerID); err != nil {
			return err
		}
		if err := ValidateProductReferences(snapshot, in.ProductIDs); err != nil {
			return err
		}
		total := decimal.Zero
		for _, id := range in.ProductIDs {
			product, _ := tx.FindProduct(id)
			total = total.Add(product.Price)
		}
		orderDate := s.nowFn()
		if in.OrderDate != nil {
			orderDate = *in.OrderDate
		}
		var err error
		created, err = tx.CreateOrder(domain.Order{
			CustomerID:  in.CustomerID,
			ProductIDs:  append([]string(nil), in.ProductIDs...),
			OrderDate:   orderDate,
			TotalAmount: total,
		})
		return err
	})
	if err != nil {
		return domain.Order{}, categorize("createOrder", err)
	}
	return created, nil
}

// ReplenishLowStock increments the stock of every product below the
// threshold by the given amount, each in its own transaction, and returns the
// updated products. The increment is additive, not clamping.
func (s *Service) ReplenishLowStock(ctx context.Context, threshold, amount int) ([]domain.Product, error) {
	start := s.nowFn()
	var updated []domain.Product
	var firstErr error
	for _, product := range s.store.ListProducts() {
		if product.Stock >= threshold {
			continue
		}
		var after domain.Product
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			after, err = tx.UpdateProduct(product.ID, func(p *domain.Product) error {
				p.Stock += amount
				return nil
			})
			return err
		})
		if err != nil {
			if firstErr == nil {
				firstErr = categorize("replenishLowStock", err)
			}
			continue
		}
		updated = append(updated, after)
	}
	s.observe(ctx, "replenishLowStock", start, firstErr)
	return updated, firstErr
}

// categorize maps uncategorized store failures to IntegrityViolation while
// passing the typed domain errors through untouched.
func categorize(op string, err error) error {
	var (
		validation domain.ValidationError
		duplicate  domain.DuplicateKeyError
		reference  domain.ReferenceError
		notFound   domain.NotFoundError
	)
	if errors.As(err, &validation) || errors.As(err, &duplicate) ||
		errors.As(err, &reference) || errors.As(err, &notFound) {
		return err
	}
	return domain.IntegrityViolation{Op: op, Err: err}
}
