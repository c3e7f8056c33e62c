package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"crmcore/pkg/domain"

	"github.com/shopspring/decimal"
)

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindCustomer("missing"); ok {
			t.Fatalf("expected missing customer lookup")
		}
		created, err := tx.CreateCustomer(domain.Customer{Name: "Alice", Email: "alice@example.com"})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		if created.CreatedAt.IsZero() {
			t.Fatalf("expected creation timestamp")
		}
		view := tx.Snapshot()
		if len(view.ListCustomers()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListCustomers()) != 1 {
		t.Fatalf("expected persisted customer")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListCustomers()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListCustomers()) != 1 {
		t.Fatalf("expected restored state")
	}
	if _, ok := store.FindCustomerByEmail("alice@example.com"); !ok {
		t.Fatalf("expected email index rebuilt on import")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateCustomer(domain.Customer{Name: "Bob", Email: "bob@example.com"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected propagated error, got %v", err)
	}
	if len(store.ListCustomers()) != 0 {
		t.Fatalf("failed transaction must not commit")
	}
}

func TestUniqueEmailEnforced(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	mustCreateCustomer(t, store, "Carol", "carol@example.com")

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCustomer(domain.Customer{Name: "Impostor", Email: "carol@example.com"})
		return err
	})
	var dup domain.DuplicateKeyError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	if len(store.ListCustomers()) != 1 {
		t.Fatalf("duplicate must not create a row")
	}
}

func TestUpdateCustomerKeepsCreatedAtAndIndex(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	created := mustCreateCustomer(t, store, "Dora", "dora@example.com")

	store.SetNowFunc(func() time.Time { return created.CreatedAt.Add(time.Hour) })
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateCustomer(created.ID, func(c *domain.Customer) error {
			c.Email = "dora@new.example.com"
			c.CreatedAt = time.Time{} // must be ignored
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, ok := store.GetCustomer(created.ID)
	if !ok {
		t.Fatalf("customer vanished")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("CreatedAt must be immutable")
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("UpdatedAt must advance")
	}
	if _, ok := store.FindCustomerByEmail("dora@example.com"); ok {
		t.Fatalf("old email must leave the index")
	}
	if _, ok := store.FindCustomerByEmail("dora@new.example.com"); !ok {
		t.Fatalf("new email must enter the index")
	}
}

func TestDeleteCustomerCascadesToOrders(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	customer := mustCreateCustomer(t, store, "Eve", "eve@example.com")
	product := mustCreateProduct(t, store, "Laptop", "999.99", 2)

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateOrder(domain.Order{
			CustomerID:  customer.ID,
			ProductIDs:  []string{product.ID},
			TotalAmount: product.Price,
		})
		return err
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteCustomer(customer.ID)
	})
	if err != nil {
		t.Fatalf("delete customer: %v", err)
	}
	if len(store.ListOrders()) != 0 {
		t.Fatalf("customer deletion must cascade to orders")
	}

}

func TestDeleteProductLeavesOrdersIntact(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	customer := mustCreateCustomer(t, store, "Frank", "frank@example.com")
	product := mustCreateProduct(t, store, "Keyboard", "49.99", 5)

	var orderID string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		created, err := tx.CreateOrder(domain.Order{
			CustomerID:  customer.ID,
			ProductIDs:  []string{product.ID},
			TotalAmount: product.Price,
		})
		orderID = created.ID
		return err
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteProduct(product.ID)
	})
	if err != nil {
		t.Fatalf("delete referenced product: %v", err)
	}
	if _, ok := store.GetProduct(product.ID); ok {
		t.Fatalf("product must be gone")
	}
	order, ok := store.GetOrder(orderID)
	if !ok {
		t.Fatalf("product deletion must leave the order intact")
	}
	if len(order.ProductIDs) != 1 || order.ProductIDs[0] != product.ID {
		t.Fatalf("order must keep its association set, got %v", order.ProductIDs)
	}
}

func TestMembershipRuleBlocksOrderWithMissingProduct(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	customer := mustCreateCustomer(t, store, "Grace", "grace@example.com")

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateOrder(domain.Order{
			CustomerID:  customer.ID,
			ProductIDs:  []string{"ghost"},
			TotalAmount: decimal.NewFromInt(1),
		})
		return err
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation for missing product, got %v", err)
	}
	if len(store.ListOrders()) != 0 {
		t.Fatalf("blocked order must not commit")
	}
}

func TestBlockingRulePreventsCommit(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProduct(domain.Product{Name: "Broken", Price: decimal.Zero, Stock: 1})
		return err
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if len(store.ListProducts()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

func TestViewIsReadOnlySnapshot(t *testing.T) {
	store := NewStore(nil)
	mustCreateProduct(t, store, "Mouse", "19.99", 10)
	err := store.View(context.Background(), func(v domain.TransactionView) error {
		products := v.ListProducts()
		if len(products) != 1 {
			t.Fatalf("expected one product in view")
		}
		products[0].Stock = 999 // mutating the copy must not leak
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	p := store.ListProducts()[0]
	if p.Stock != 10 {
		t.Fatalf("view mutation leaked into committed state")
	}
}

func mustCreateCustomer(t *testing.T, store *Store, name, email string) domain.Customer {
	t.Helper()
	var created domain.Customer
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateCustomer(domain.Customer{Name: name, Email: email})
		return err
	})
	if err != nil {
		t.Fatalf("create customer %s: %v", email, err)
	}
	return created
}

func mustCreateProduct(t *testing.T, store *Store, name, price string, stock int) domain.Product {
	t.Helper()
	var created domain.Product
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProduct(domain.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock})
		return err
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return created
}
