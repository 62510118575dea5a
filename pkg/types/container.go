package types

import (
	"strings"
	"time"
	"unicode"
)

// Container kinds. A parent aggregates children; a child is a leaf.
const (
	KindParent = "parent"
	KindChild  = "child"
)

// Container lifecycle statuses. A parent flips to completed when it
// reaches capacity.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// MaxChildren is the per-parent capacity. Fixed business policy, not
// runtime-configurable.
const MaxChildren = 30

// Container represents a physical scanned unit (a bag). The external code
// is the scanned identifier and is unique regardless of case.
type Container struct {
	// ContainerID is a UUID v7, generated on creation.
	ContainerID string

	// ExternalCode is the scanned code, stored as first seen.
	// Lookups are case-insensitive.
	ExternalCode string

	// Kind is parent or child.
	Kind string

	// Status is pending or completed.
	Status string

	// CreatedAt is the timestamp of first registration.
	CreatedAt time.Time
}

// ValidKind reports whether k is a recognized container kind.
func ValidKind(k string) bool {
	return k == KindParent || k == KindChild
}

// NormalizeCode trims surrounding whitespace from a scanned code.
// Case is preserved; the store matches codes case-insensitively.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// ValidCode reports whether code is acceptable as an external code:
// non-empty after trimming, at most 64 characters, no interior whitespace.
func ValidCode(code string) bool {
	code = NormalizeCode(code)
	if code == "" || len(code) > 64 {
		return false
	}
	for _, r := range code {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// SameCode reports whether two codes identify the same container under
// the case-insensitive uniqueness rule.
func SameCode(a, b string) bool {
	return strings.EqualFold(NormalizeCode(a), NormalizeCode(b))
}
