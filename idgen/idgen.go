// Package idgen generates comparison and document identifiers.
//
// Constructors that mint ids accept a Generator so tests can substitute a
// deterministic sequence.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 version 7 UUIDs. They sort by
// creation time, which keeps job listings and logs in submission order.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every id of gen ("doc_", "cmp_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a Generator yielding prefix1, prefix2, ... Not safe for
// concurrent use; meant for tests.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// New produces an id using Default.
func New() string {
	return Default()
}

// Parse validates a UUID string and returns its canonical form.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID: %w", err)
	}
	return u.String(), nil
}
