package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelmesh/baglink/pkg/types"
)

func TestWouldCreateCycle(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	ids := make([]string, 4)
	for i := range ids {
		c, _, err := store.ResolveOrCreateContainer(ctx, nil, fmt.Sprintf("BAG-%d", i), types.KindChild)
		require.NoError(t, err)
		ids[i] = c.ContainerID
	}
	for i := 0; i < len(ids)-1; i++ {
		require.NoError(t, store.InsertEdge(ctx, nil, ids[i], ids[i+1], "seed"))
	}

	// Linking the root under the deepest node closes a loop.
	cycle, err := e.wouldCreateCycle(ctx, nil, ids[3], ids[0])
	require.NoError(t, err)
	assert.True(t, cycle)

	// Any ancestor as the child does too.
	cycle, err = e.wouldCreateCycle(ctx, nil, ids[3], ids[2])
	require.NoError(t, err)
	assert.True(t, cycle)

	// A self edge is a cycle of length one.
	cycle, err = e.wouldCreateCycle(ctx, nil, ids[0], ids[0])
	require.NoError(t, err)
	assert.True(t, cycle)

	// A fresh node is never an ancestor.
	fresh, _, err := store.ResolveOrCreateContainer(ctx, nil, "BAG-FRESH", types.KindChild)
	require.NoError(t, err)
	cycle, err = e.wouldCreateCycle(ctx, nil, ids[3], fresh.ContainerID)
	require.NoError(t, err)
	assert.False(t, cycle)
}

func TestWouldCreateCycleDepthBound(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	// A chain deeper than the walk bound: the root sits beyond reach of
	// the deepest node, so the walk gives up and reports no cycle.
	const depth = maxAncestorDepth + 5
	ids := make([]string, depth)
	for i := range ids {
		c, _, err := store.ResolveOrCreateContainer(ctx, nil, fmt.Sprintf("DEEP-%03d", i), types.KindChild)
		require.NoError(t, err)
		ids[i] = c.ContainerID
	}
	for i := 0; i < depth-1; i++ {
		require.NoError(t, store.InsertEdge(ctx, nil, ids[i], ids[i+1], "seed"))
	}

	cycle, err := e.wouldCreateCycle(ctx, nil, ids[depth-1], ids[0])
	require.NoError(t, err)
	assert.False(t, cycle, "walk stops at the depth bound")

	// An ancestor inside the bound is still caught.
	cycle, err = e.wouldCreateCycle(ctx, nil, ids[depth-1], ids[depth-10])
	require.NoError(t, err)
	assert.True(t, cycle)
}
