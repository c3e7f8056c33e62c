package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// stampLayout is the day-first timestamp the heartbeat and
// replenishment lines carry.
const stampLayout = "02/01/2006-15:04:05"

// reportStampLayout is the timestamp prefix on report and reminder lines.
const reportStampLayout = "2006-01-02 15:04:05"

// Logbook is an append-only sink for job output lines, newest last.
type Logbook interface {
	Append(line string) error
}

// FileLogbook appends lines to a single file, creating it on first use.
type FileLogbook struct {
	mu   sync.Mutex
	path string
}

// NewFileLogbook returns a logbook writing to path.
func NewFileLogbook(path string) (*FileLogbook, error) {
	if path == "" {
		return nil, fmt.Errorf("logbook path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileLogbook{path: path}, nil
}

var _ Logbook = (*FileLogbook)(nil)

// Path returns the backing file path.
func (b *FileLogbook) Path() string { return b.path }

func (b *FileLogbook) Append(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return err
	}
	return f.Sync()
}

// MemoryLogbook collects lines in memory for tests.
type MemoryLogbook struct {
	mu    sync.Mutex
	lines []string
}

// NewMemoryLogbook returns an empty in-memory logbook.
func NewMemoryLogbook() *MemoryLogbook { return &MemoryLogbook{} }

var _ Logbook = (*MemoryLogbook)(nil)

func (b *MemoryLogbook) Append(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	return nil
}

// Lines returns a copy of everything appended so far, in order.
func (b *MemoryLogbook) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func stamp(t time.Time) string { return t.Format(stampLayout) }
