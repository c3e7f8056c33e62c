package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Mutation operation names exposed to the query gateway transport.
const (
	OpCreateCustomer      = "createCustomer"
	OpBulkCreateCustomers = "bulkCreateCustomers"
	OpCreateProduct       = "createProduct"
	OpCreateOrder         = "createOrder"
)

// Handler executes one named mutation from a raw JSON input and returns its
// typed payload.
type Handler func(ctx context.Context, input json.RawMessage) (any, error)

// Dispatcher maps operation names to handlers. It is the contract the
// external transport honors: each handler decodes a typed input struct at
// the boundary before anything reaches the executor.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher builds the dispatch table over the supplied service.
func NewDispatcher(service *Service) *Dispatcher {
	return &Dispatcher{handlers: map[string]Handler{
		OpCreateCustomer: func(ctx context.Context, input json.RawMessage) (any, error) {
			var in CreateCustomerInput
			if err := decodeInput(input, &in); err != nil {
				return nil, err
			}
			return service.CreateCustomer(ctx, in)
		},
		OpBulkCreateCustomers: func(ctx context.Context, input json.RawMessage) (any, error) {
			var in []CreateCustomerInput
			if err := decodeInput(input, &in); err != nil {
				return nil, err
			}
			return service.BulkCreateCustomers(ctx, in)
		},
		OpCreateProduct: func(ctx context.Context, input json.RawMessage) (any, error) {
			var in CreateProductInput
			if err := decodeInput(input, &in); err != nil {
				return nil, err
			}
			return service.CreateProduct(ctx, in)
		},
		OpCreateOrder: func(ctx context.Context, input json.RawMessage) (any, error) {
			var in CreateOrderInput
			if err := decodeInput(input, &in); err != nil {
				return nil, err
			}
			return service.CreateOrder(ctx, in)
		},
	}}
}

// Operations lists the registered operation names in stable order.
func (d *Dispatcher) Operations() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the named operation. Unknown names are an error; operation
// results and typed failures pass through unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, operation string, input json.RawMessage) (any, error) {
	handler, ok := d.handlers[operation]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", operation)
	}
	return handler(ctx, input)
}

func decodeInput(input json.RawMessage, target any) error {
	if len(input) == 0 {
		return fmt.Errorf("missing input payload")
	}
	if err := json.Unmarshal(input, target); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}
