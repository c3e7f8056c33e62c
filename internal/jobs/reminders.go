package jobs

import (
	"context"
	"fmt"
	"time"

	"crmcore/internal/gateway"
	"crmcore/pkg/domain"
)

// reminderWindow is how far back the reminders job looks for orders.
const reminderWindow = 7 * 24 * time.Hour

// CustomerLookup resolves the customer behind an order so the reminder
// line can carry their email. Any persistent store satisfies it.
type CustomerLookup interface {
	GetCustomer(id string) (domain.Customer, bool)
}

// OrderReminders appends one reminder line per order placed inside the
// lookback window.
type OrderReminders struct {
	client    gateway.Client
	customers CustomerLookup
	book      Logbook
	window    time.Duration
	nowFn     func() time.Time
}

// NewOrderReminders builds the reminders job.
func NewOrderReminders(client gateway.Client, customers CustomerLookup, book Logbook) *OrderReminders {
	return &OrderReminders{
		client:    client,
		customers: customers,
		book:      book,
		window:    reminderWindow,
		nowFn:     time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (o *OrderReminders) SetNowFunc(now func() time.Time) { o.nowFn = now }

// Run logs reminders for recent orders, then a completion line.
func (o *OrderReminders) Run(ctx context.Context) error {
	now := o.nowFn()
	orders, err := o.client.RecentOrders(ctx, now.Add(-o.window))
	if err != nil {
		return fmt.Errorf("recent orders: %w", err)
	}
	ts := now.Format(reportStampLayout)
	for _, order := range orders {
		email := ""
		if customer, ok := o.customers.GetCustomer(order.CustomerID); ok {
			email = customer.Email
		}
		line := fmt.Sprintf("%s - Reminder logged for Order ID: %s, Email: %s", ts, order.ID, email)
		if err := o.book.Append(line); err != nil {
			return err
		}
	}
	return o.book.Append(ts + " - Order reminders processed!")
}
