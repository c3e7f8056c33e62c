package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"crmcore/internal/core"
	"crmcore/internal/gateway"
	blobmemory "crmcore/internal/infra/blob/memory"
	"crmcore/internal/infra/persistence/memory"
	"crmcore/pkg/domain"

	"github.com/shopspring/decimal"
)

// stubClient drives the jobs without a deployed gateway.
type stubClient struct {
	helloErr     error
	report       core.AggregateReport
	aggregateErr error
	orders       []domain.Order
	ordersErr    error
}

func (s *stubClient) Hello(context.Context) (string, error) {
	if s.helloErr != nil {
		return "", s.helloErr
	}
	return "ok", nil
}

func (s *stubClient) Aggregate(context.Context) (core.AggregateReport, error) {
	if s.aggregateErr != nil {
		return core.AggregateReport{}, s.aggregateErr
	}
	return s.report, nil
}

func (s *stubClient) RecentOrders(context.Context, time.Time) ([]domain.Order, error) {
	if s.ordersErr != nil {
		return nil, s.ordersErr
	}
	return s.orders, nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 9, 6, 0, 0, 0, time.UTC)
}

func TestHeartbeatLineFormat(t *testing.T) {
	cases := []struct {
		name   string
		client gateway.Client
		suffix string
	}{
		{"ok", &stubClient{}, " | gateway OK"},
		{"unreachable", &stubClient{helloErr: fmt.Errorf("%w: dial", gateway.ErrUnreachable)}, " | gateway UNREACHABLE"},
		{"error", &stubClient{helloErr: errors.New("bad response")}, " | gateway ERROR"},
		{"no probe", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			book := NewMemoryLogbook()
			hb := NewHeartbeat(book, tc.client)
			hb.SetNowFunc(fixedNow)
			if err := hb.Run(context.Background()); err != nil {
				t.Fatalf("run: %v", err)
			}
			lines := book.Lines()
			want := "09/03/2026-06:00:00 CRM is alive" + tc.suffix
			if len(lines) != 1 || lines[0] != want {
				t.Fatalf("lines = %v, want %q", lines, want)
			}
		})
	}
}

func TestReplenishLogsPerProduct(t *testing.T) {
	svc := core.NewService(memory.NewStore(nil))
	ctx := context.Background()
	if _, err := svc.CreateProduct(ctx, core.CreateProductInput{Name: "Cable", Price: decimal.NewFromInt(3), Stock: 5}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.CreateProduct(ctx, core.CreateProductInput{Name: "Dock", Price: decimal.NewFromInt(80), Stock: 40}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	book := NewMemoryLogbook()
	job := NewReplenish(svc, book)
	job.SetNowFunc(fixedNow)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := book.Lines()
	if len(lines) != 1 || lines[0] != "09/03/2026-06:00:00 Restocked Cable, new stock: 15" {
		t.Fatalf("lines = %v", lines)
	}

	// Nothing is low anymore, the next run records that instead.
	if err := job.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	lines = book.Lines()
	if len(lines) != 2 || lines[1] != "09/03/2026-06:00:00 No low stock products found." {
		t.Fatalf("lines = %v", lines)
	}
}

func TestWeeklyReportLineAndArtifact(t *testing.T) {
	client := &stubClient{report: core.AggregateReport{
		Customers: 3,
		Orders:    2,
		Revenue:   decimal.RequireFromString("2598.99"),
	}}
	book := NewMemoryLogbook()
	archive := blobmemory.New()
	job := NewWeeklyReport(client, book, archive)
	job.SetNowFunc(fixedNow)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := book.Lines()
	want := "2026-03-09 06:00:00 - Report: 3 customers, 2 orders, 2598.99 revenue"
	if len(lines) != 1 || lines[0] != want {
		t.Fatalf("lines = %v, want %q", lines, want)
	}

	// 2026-03-09 falls in ISO week 11.
	_, rc, err := archive.Get(context.Background(), "reports/2026/week-11.json")
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	var artifact struct {
		Report core.AggregateReport `json:"report"`
	}
	if err := json.Unmarshal(body, &artifact); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if artifact.Report.Customers != 3 || !artifact.Report.Revenue.Equal(decimal.RequireFromString("2598.99")) {
		t.Fatalf("artifact = %s", body)
	}
}

func TestWeeklyReportFailureHasNoSideEffects(t *testing.T) {
	book := NewMemoryLogbook()
	archive := blobmemory.New()
	job := NewWeeklyReport(&stubClient{aggregateErr: errors.New("gateway down")}, book, archive)
	job.SetNowFunc(fixedNow)

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}
	if len(book.Lines()) != 0 {
		t.Fatalf("no line may be appended on failure")
	}
	infos, _ := archive.List(context.Background(), "")
	if len(infos) != 0 {
		t.Fatalf("no artifact may be stored on failure")
	}
}

func TestOrderRemindersLogsRecentOrders(t *testing.T) {
	store := memory.NewStore(nil)
	svc := core.NewService(store)
	ctx := context.Background()
	customer, err := svc.CreateCustomer(ctx, core.CreateCustomerInput{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	client := &stubClient{orders: []domain.Order{
		{Base: domain.Base{ID: "o1"}, CustomerID: customer.ID},
		{Base: domain.Base{ID: "o2"}, CustomerID: "gone"},
	}}

	book := NewMemoryLogbook()
	job := NewOrderReminders(client, store, book)
	job.SetNowFunc(fixedNow)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := book.Lines()
	if len(lines) != 3 {
		t.Fatalf("lines = %v", lines)
	}
	if lines[0] != "2026-03-09 06:00:00 - Reminder logged for Order ID: o1, Email: alice@example.com" {
		t.Fatalf("line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Order ID: o2, Email: ") {
		t.Fatalf("line = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "Order reminders processed!") {
		t.Fatalf("line = %q", lines[2])
	}
}

func TestOrderRemindersSurfaceGatewayFailure(t *testing.T) {
	book := NewMemoryLogbook()
	job := NewOrderReminders(&stubClient{ordersErr: errors.New("gateway down")}, memory.NewStore(nil), book)
	job.SetNowFunc(fixedNow)
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}
	if len(book.Lines()) != 0 {
		t.Fatalf("no reminders may be logged on failure")
	}
}
