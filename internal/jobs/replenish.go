package jobs

import (
	"context"
	"fmt"
	"time"

	"crmcore/internal/core"
	"crmcore/internal/filter"
)

// defaultRestockAmount is added to each low product per run.
const defaultRestockAmount = 10

// Replenish tops up every product running low and records one line per
// restocked product. Each product commits independently, so one
// failure does not roll back the others.
type Replenish struct {
	service   *core.Service
	book      Logbook
	threshold int
	amount    int
	nowFn     func() time.Time
}

// NewReplenish builds the replenishment job with the standard
// threshold and restock amount.
func NewReplenish(service *core.Service, book Logbook) *Replenish {
	return &Replenish{
		service:   service,
		book:      book,
		threshold: filter.LowStockThreshold,
		amount:    defaultRestockAmount,
		nowFn:     time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (r *Replenish) SetNowFunc(now func() time.Time) { r.nowFn = now }

// Run restocks low products and logs the outcome.
func (r *Replenish) Run(ctx context.Context) error {
	updated, err := r.service.ReplenishLowStock(ctx, r.threshold, r.amount)
	ts := stamp(r.nowFn())
	if len(updated) == 0 && err == nil {
		if appendErr := r.book.Append(ts + " No low stock products found."); appendErr != nil {
			return appendErr
		}
		return nil
	}
	for _, product := range updated {
		line := fmt.Sprintf("%s Restocked %s, new stock: %d", ts, product.Name, product.Stock)
		if appendErr := r.book.Append(line); appendErr != nil {
			return appendErr
		}
	}
	return err
}
