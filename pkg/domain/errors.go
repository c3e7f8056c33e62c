package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed field value rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DuplicateKeyError reports a unique-constraint violation.
type DuplicateKeyError struct {
	Entity EntityType
	Field  string
	Value  string
}

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// ReferenceError reports one or more entity IDs that failed to resolve.
type ReferenceError struct {
	Entity EntityType
	IDs    []string
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, strings.Join(e.IDs, ", "))
}

// IntegrityViolation wraps an unexpected store-level failure during a write
// that is not otherwise categorized.
type IntegrityViolation struct {
	Op  string
	Err error
}

func (e IntegrityViolation) Error() string {
	return fmt.Sprintf("integrity violation during %s: %v", e.Op, e.Err)
}

func (e IntegrityViolation) Unwrap() error { return e.Err }

// NotFoundError is returned by store lookups for unknown IDs.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
