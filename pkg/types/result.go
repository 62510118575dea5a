package types

// LinkOutcome is the terminal result of a CreateLink call. Every call
// yields exactly one outcome or an explicit retryable error, never both.
type LinkOutcome string

// Link outcomes. All outcomes are final for the given inputs: repeating
// the same call will not change the result.
const (
	// LinkLinked means a new edge was committed.
	LinkLinked LinkOutcome = "linked"

	// LinkAlreadyLinked means the edge already existed; no work was done.
	LinkAlreadyLinked LinkOutcome = "already_linked"

	// LinkCapacityExceeded means the parent already holds MaxChildren.
	LinkCapacityExceeded LinkOutcome = "capacity_exceeded"

	// LinkCycleDetected means the edge would make a container reachable
	// from itself.
	LinkCycleDetected LinkOutcome = "cycle_detected"

	// LinkNotFound means a container involved in the link disappeared
	// mid-transaction (concurrent purge).
	LinkNotFound LinkOutcome = "not_found"

	// LinkInvalid means the request was rejected up front: empty or
	// malformed code, self-link, or a kind conflict.
	LinkInvalid LinkOutcome = "invalid"
)

// LinkResult describes the outcome of one CreateLink call.
type LinkResult struct {
	// Outcome is the terminal outcome.
	Outcome LinkOutcome

	// ParentID and ChildID are the resolved container IDs. Empty when
	// the call was rejected before resolution.
	ParentID string
	ChildID  string

	// ChildCount is the parent's persisted child count after the call.
	ChildCount int

	// Completed is true when this call filled the parent to capacity.
	Completed bool
}

// Linked reports whether the call committed a new edge.
func (r *LinkResult) Linked() bool {
	return r.Outcome == LinkLinked
}
