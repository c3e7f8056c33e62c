// Package filter compiles per-entity criteria into lazy, restartable
// sequences with whitelisted ordering and opaque cursor pagination.
package filter

import (
	"encoding/base64"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Direction selects the sort direction for an Ordering.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Ordering names a sort field and direction. The zero value means
// source order.
type Ordering struct {
	Field     string    `json:"field,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Page bounds one Collect call. An empty cursor starts from the first
// match; a non-positive limit disables the bound.
type Page struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

const cursorPrefix = "o:"

// EncodeCursor wraps a result offset into an opaque page token.
func EncodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

// DecodeCursor unwraps a page token produced by EncodeCursor.
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("malformed cursor: %w", err)
	}
	payload, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	offset, err := strconv.Atoi(payload)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("malformed cursor offset %q", payload)
	}
	return offset, nil
}

// Query is a compiled filter over one entity kind. The source is read
// and the predicate applied only when a sequence is consumed, so a
// Query built before a write observes the write on its next use.
type Query[T any] struct {
	source func() []T
	match  func(T) bool
	cmp    func(a, b T) int
}

// Sequence returns a restartable range function over the matching
// entities. Without an ordering the source streams without buffering.
func (q Query[T]) Sequence() iter.Seq[T] {
	return func(yield func(T) bool) {
		if q.cmp == nil {
			for _, item := range q.source() {
				if q.match != nil && !q.match(item) {
					continue
				}
				if !yield(item) {
					return
				}
			}
			return
		}
		matched := q.matched()
		slices.SortStableFunc(matched, q.cmp)
		for _, item := range matched {
			if !yield(item) {
				return
			}
		}
	}
}

func (q Query[T]) matched() []T {
	var out []T
	for _, item := range q.source() {
		if q.match == nil || q.match(item) {
			out = append(out, item)
		}
	}
	return out
}

// Count consumes the sequence and reports the number of matches.
func (q Query[T]) Count() int {
	n := 0
	for range q.Sequence() {
		n++
	}
	return n
}

// Collect materializes one page of results. The second return is the
// cursor for the following page, empty when the sequence is exhausted.
func (q Query[T]) Collect(page Page) ([]T, string, error) {
	offset, err := DecodeCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}

	var out []T
	seen := 0
	more := false
	for item := range q.Sequence() {
		if seen < offset {
			seen++
			continue
		}
		if page.Limit > 0 && len(out) == page.Limit {
			more = true
			break
		}
		out = append(out, item)
		seen++
	}
	if !more {
		return out, "", nil
	}
	return out, EncodeCursor(offset + len(out)), nil
}

// resolveOrdering maps an Ordering onto a whitelisted comparator,
// inverted for descending order. A zero ordering yields nil.
func resolveOrdering[T any](order Ordering, fields map[string]func(a, b T) int) (func(a, b T) int, error) {
	if order.Field == "" {
		return nil, nil
	}
	cmp, ok := fields[order.Field]
	if !ok {
		allowed := make([]string, 0, len(fields))
		for name := range fields {
			allowed = append(allowed, name)
		}
		slices.Sort(allowed)
		return nil, fmt.Errorf("unsupported order field %q (allowed: %s)", order.Field, strings.Join(allowed, ", "))
	}
	switch order.Direction {
	case "", Ascending:
		return cmp, nil
	case Descending:
		return func(a, b T) int { return -cmp(a, b) }, nil
	default:
		return nil, fmt.Errorf("unsupported order direction %q", order.Direction)
	}
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
