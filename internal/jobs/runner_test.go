package jobs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileLogbookAppendsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm", "heartbeat.log")
	book, err := NewFileLogbook(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, line := range []string{"first", "second", "third"} {
		if err := book.Append(line); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "first\nsecond\nthird\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestFileLogbookRequiresPath(t *testing.T) {
	if _, err := NewFileLogbook(""); err == nil {
		t.Fatalf("empty path must fail")
	}
}

func TestMemoryLogbookCopiesLines(t *testing.T) {
	book := NewMemoryLogbook()
	_ = book.Append("a")
	lines := book.Lines()
	_ = book.Append("b")
	if len(lines) != 1 {
		t.Fatalf("snapshot grew: %v", lines)
	}
	if got := book.Lines(); len(got) != 2 || got[1] != "b" {
		t.Fatalf("lines = %v", got)
	}
}

func TestRunnerExecutesOnSchedule(t *testing.T) {
	runner := NewRunner(WithRunnerLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	var runs atomic.Int64
	err := runner.Register(Job{
		Name:     "tick",
		Schedule: Every(10 * time.Millisecond),
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	runner.Stop()
	if runs.Load() < 2 {
		t.Fatalf("expected at least two runs, got %d", runs.Load())
	}
}

func TestRunnerRegistrationValidation(t *testing.T) {
	runner := NewRunner()
	if err := runner.Register(Job{Name: "incomplete"}); err == nil {
		t.Fatalf("job without schedule and handler must be rejected")
	}
	if err := runner.Register(Job{Name: "ok", Schedule: Every(time.Hour), Run: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer runner.Stop()
	if err := runner.Register(Job{Name: "late", Schedule: Every(time.Hour), Run: func(context.Context) error { return nil }}); err == nil {
		t.Fatalf("registration after start must fail")
	}
	if err := runner.Start(context.Background()); err == nil {
		t.Fatalf("double start must fail")
	}
}

func TestExecuteSkipsOverlappingRun(t *testing.T) {
	runner := NewRunner()
	var runs atomic.Int64
	job := &registeredJob{Job: Job{
		Name: "slow",
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}}
	// Simulate an in-flight execution holding the run lock.
	job.running.Lock()
	runner.execute(context.Background(), job)
	if runs.Load() != 0 {
		t.Fatalf("overlapping occurrence must be skipped")
	}
	job.running.Unlock()
	runner.execute(context.Background(), job)
	if runs.Load() != 1 {
		t.Fatalf("free job must run, got %d", runs.Load())
	}
}

func TestExecuteContainsPanicsAndErrors(t *testing.T) {
	var buf strings.Builder
	runner := NewRunner(WithRunnerLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	panicking := &registeredJob{Job: Job{
		Name: "explode",
		Run:  func(context.Context) error { panic("boom") },
	}}
	runner.execute(context.Background(), panicking)

	failing := &registeredJob{Job: Job{
		Name: "fail",
		Run:  func(context.Context) error { return errors.New("nope") },
	}}
	runner.execute(context.Background(), failing)

	logged := buf.String()
	if !strings.Contains(logged, "job panicked") || !strings.Contains(logged, "boom") {
		t.Fatalf("panic not logged: %s", logged)
	}
	if !strings.Contains(logged, "job failed") {
		t.Fatalf("error not logged: %s", logged)
	}
}
