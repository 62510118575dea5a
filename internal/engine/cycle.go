// Cycle validation. Each child has at most one parent, so the parent
// pointers form inbound chains; walking up from the prospective parent is
// enough to catch cycles formed across any number of hops.
package engine

import (
	"context"
	"errors"

	"github.com/parcelmesh/baglink/internal/sqlite"
	"github.com/parcelmesh/baglink/pkg/types"
)

// maxAncestorDepth bounds the upward walk. Chains deeper than this are
// treated as cycle-free; the check is best-effort past the bound.
const maxAncestorDepth = 50

// wouldCreateCycle reports whether linking childID under parentID would
// make a container reachable from itself: childID is parentID, or childID
// is already an ancestor of parentID.
func (e *Engine) wouldCreateCycle(ctx context.Context, q sqlite.Querier, parentID, childID string) (bool, error) {
	if parentID == childID {
		return true, nil
	}

	current := parentID
	for depth := 0; depth < maxAncestorDepth; depth++ {
		ancestor, err := e.store.ParentOf(ctx, q, current)
		if errors.Is(err, types.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if ancestor == childID {
			return true, nil
		}
		current = ancestor
	}
	return false, nil
}
