package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crmcore/internal/core"
	"crmcore/internal/gateway"
	"crmcore/internal/infra/blob"
)

// WeeklyReport aggregates store-wide counts and revenue through the
// gateway, appends one summary line, and archives a JSON artifact. Any
// failure aborts the run before the summary line is written, so a
// partial report never appears in the logbook.
type WeeklyReport struct {
	client  gateway.Client
	book    Logbook
	archive blob.Store
	nowFn   func() time.Time
}

// NewWeeklyReport builds the report job. The archive may be nil to
// skip artifact storage.
func NewWeeklyReport(client gateway.Client, book Logbook, archive blob.Store) *WeeklyReport {
	return &WeeklyReport{client: client, book: book, archive: archive, nowFn: time.Now}
}

// SetNowFunc overrides the clock, for tests.
func (w *WeeklyReport) SetNowFunc(now func() time.Time) { w.nowFn = now }

type reportArtifact struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Report      core.AggregateReport `json:"report"`
}

// Run produces one report.
func (w *WeeklyReport) Run(ctx context.Context) error {
	report, err := w.client.Aggregate(ctx)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	now := w.nowFn()

	if w.archive != nil {
		if err := w.archiveArtifact(ctx, now, report); err != nil {
			return fmt.Errorf("archive report: %w", err)
		}
	}

	line := fmt.Sprintf("%s - Report: %d customers, %d orders, %s revenue",
		now.Format(reportStampLayout), report.Customers, report.Orders, report.Revenue)
	return w.book.Append(line)
}

// archiveArtifact stores the report keyed by ISO week, so a rerun in
// the same week overwrites rather than duplicates.
func (w *WeeklyReport) archiveArtifact(ctx context.Context, now time.Time, report core.AggregateReport) error {
	payload, err := json.MarshalIndent(reportArtifact{GeneratedAt: now.UTC(), Report: report}, "", "  ")
	if err != nil {
		return err
	}
	year, week := now.ISOWeek()
	key := fmt.Sprintf("reports/%d/week-%02d.json", year, week)
	_, err = w.archive.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"period": fmt.Sprintf("%d-W%02d", year, week)},
	})
	return err
}
