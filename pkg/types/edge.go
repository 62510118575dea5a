package types

import "time"

// Edge represents a directed parent→child relationship. Edges are unique
// per (parent, child) pair, created only through the linking engine, and
// removed only by maintenance cleanup.
type Edge struct {
	// ParentID is the aggregating container's ID.
	ParentID string

	// ChildID is the contained container's ID.
	ChildID string

	// CreatedBy is the opaque actor that scanned the link.
	CreatedBy string

	// CreatedAt is the timestamp of creation.
	CreatedAt time.Time
}
