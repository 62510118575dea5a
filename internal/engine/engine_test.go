package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelmesh/baglink/internal/cache"
	"github.com/parcelmesh/baglink/internal/retry"
	"github.com/parcelmesh/baglink/internal/sqlite"
	"github.com/parcelmesh/baglink/pkg/types"
)

// newTestEngine creates an engine over a fresh store in a temp directory.
func newTestEngine(t *testing.T) (*Engine, *sqlite.Store) {
	t.Helper()
	store := sqlite.NewStore(nil)
	require.NoError(t, store.Attach(types.Config{DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })

	e := New(store, cache.New(256, nil), nil)
	// Keep retry waits negligible in tests.
	e.retry = retry.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
	return e, store
}

func TestCreateLinkScenario(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	// First scan links and registers both containers.
	res, err := e.CreateLink(ctx, "SB00001", "CHILD01", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.LinkLinked, res.Outcome)
	assert.Equal(t, 1, res.ChildCount)
	assert.NotEmpty(t, res.ParentID)
	assert.NotEmpty(t, res.ChildID)

	// Repeating the same scan is idempotent.
	res, err = e.CreateLink(ctx, "SB00001", "CHILD01", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.LinkAlreadyLinked, res.Outcome)
	assert.Equal(t, 1, res.ChildCount)

	// Case only differs: still the same pair.
	res, err = e.CreateLink(ctx, "sb00001", "child01", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.LinkAlreadyLinked, res.Outcome)

	// Self-link is rejected outright.
	res, err = e.CreateLink(ctx, "SB00001", "SB00001", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.LinkInvalid, res.Outcome)

	n, err := e.GetChildCount(ctx, "SB00001")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateLinkValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		parent string
		child  string
	}{
		{"empty parent", "", "CHILD01"},
		{"empty child", "SB00001", ""},
		{"whitespace child", "SB00001", "   "},
		{"self link differs only by case", "SB00001", "sb00001"},
		{"interior whitespace", "SB 001", "CHILD01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.CreateLink(ctx, tt.parent, tt.child, "u1")
			require.NoError(t, err)
			assert.Equal(t, types.LinkInvalid, res.Outcome)
		})
	}
}

func TestCreateLinkKindConflicts(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := e.CreateLink(ctx, "SB00001", "CHILD01", "u1")
	require.NoError(t, err)
	require.Equal(t, types.LinkLinked, res.Outcome)

	// A registered parent cannot appear as a child.
	res, err = e.CreateLink(ctx, "SB00002", "SB00001", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.LinkInvalid, res.Outcome)

	// A registered child cannot be promoted to a parent.
	res, err = e.CreateLink(ctx, "CHILD01", "CHILD02", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.LinkInvalid, res.Outcome)

	// Neither rejection left side effects.
	n, err := e.GetChildCount(ctx, "SB00001")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = e.GetChildCount(ctx, "SB00002")
	assert.ErrorIs(t, err, types.ErrNotFound, "rejected parent was not registered")
}

func TestCapacitySequential(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	for i := 1; i <= types.MaxChildren; i++ {
		res, err := e.CreateLink(ctx, "SB00001", fmt.Sprintf("CHILD%02d", i), "u1")
		require.NoError(t, err)
		require.Equal(t, types.LinkLinked, res.Outcome, "child %d", i)
		assert.Equal(t, i, res.ChildCount)
		assert.Equal(t, i == types.MaxChildren, res.Completed)
	}

	// Child 31 is rejected and nothing is persisted for it.
	res, err := e.CreateLink(ctx, "SB00001", "CHILD31", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.LinkCapacityExceeded, res.Outcome)
	assert.Equal(t, types.MaxChildren, res.ChildCount)

	parent, err := store.ContainerByCode(ctx, nil, "SB00001")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, parent.Status, "parent completed at capacity")

	n, err := store.CountChildren(ctx, nil, parent.ContainerID)
	require.NoError(t, err)
	assert.Equal(t, types.MaxChildren, n)
}

func TestCapacityConcurrentStorm(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	// 50 concurrent scans against one fresh parent, 40 distinct child
	// codes: calls beyond 40 repeat the first ten codes.
	const calls = 50
	const distinct = 40

	var wg sync.WaitGroup
	outcomes := make([]types.LinkOutcome, calls)
	errs := make([]error, calls)

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := fmt.Sprintf("CHILD%02d", i%distinct)
			res, err := e.CreateLink(ctx, "SB00001", child, "u1")
			if err != nil {
				errs[i] = err
				return
			}
			outcomes[i] = res.Outcome
		}(i)
	}
	wg.Wait()

	counts := map[types.LinkOutcome]int{}
	for i := range outcomes {
		require.NoError(t, errs[i], "call %d", i)
		counts[outcomes[i]]++
	}

	assert.Equal(t, types.MaxChildren, counts[types.LinkLinked], "exactly one caller claims each slot")
	assert.Equal(t, calls-types.MaxChildren,
		counts[types.LinkCapacityExceeded]+counts[types.LinkAlreadyLinked],
		"every non-linked call sees a deterministic rejection")

	parent, err := store.ContainerByCode(ctx, nil, "SB00001")
	require.NoError(t, err)
	n, err := store.CountChildren(ctx, nil, parent.ContainerID)
	require.NoError(t, err)
	assert.Equal(t, types.MaxChildren, n, "persisted count never exceeds capacity")

	status, err := store.ContainerByCode(ctx, nil, "SB00001")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, status.Status)
}

func TestCycleDetected(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	// Seed a pre-existing chain A→B→C directly in the store. The kinds
	// reflect how each code would next be scanned, so the request below
	// reaches the cycle validator rather than a kind rejection.
	a, _, err := store.ResolveOrCreateContainer(ctx, nil, "BAG-A", types.KindChild)
	require.NoError(t, err)
	b, _, err := store.ResolveOrCreateContainer(ctx, nil, "BAG-B", types.KindChild)
	require.NoError(t, err)
	c, _, err := store.ResolveOrCreateContainer(ctx, nil, "BAG-C", types.KindParent)
	require.NoError(t, err)
	require.NoError(t, store.InsertEdge(ctx, nil, a.ContainerID, b.ContainerID, "seed"))
	require.NoError(t, store.InsertEdge(ctx, nil, b.ContainerID, c.ContainerID, "seed"))

	// C is a descendant of A, so linking A under C closes a loop.
	res, err := e.CreateLink(ctx, "BAG-C", "BAG-A", "u1")
	require.NoError(t, err)
	assert.Equal(t, types.LinkCycleDetected, res.Outcome)

	exists, err := store.EdgeExists(ctx, nil, c.ContainerID, a.ContainerID)
	require.NoError(t, err)
	assert.False(t, exists, "no edge persisted on cycle rejection")
}

func TestGetChildCountCacheReflectsLinks(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateLink(ctx, "SB00001", "CHILD01", "u1")
	require.NoError(t, err)

	n, err := e.GetChildCount(ctx, "SB00001")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// The count is now cached; a successful link must invalidate it.
	_, err = e.CreateLink(ctx, "SB00001", "CHILD02", "u1")
	require.NoError(t, err)

	n, err = e.GetChildCount(ctx, "SB00001")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "count reflects the new link immediately")
}

func TestGetChildCountUnknownParent(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.GetChildCount(context.Background(), "NOPE")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = e.GetChildCount(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrInvalidCode)
}

func TestListChildren(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	for _, child := range []string{"CHILD01", "CHILD02"} {
		_, err := e.CreateLink(ctx, "SB00001", child, "u1")
		require.NoError(t, err)
	}

	children, err := e.ListChildren(ctx, "SB00001")
	require.NoError(t, err)
	require.Len(t, children, 2)

	codes := []string{children[0].ExternalCode, children[1].ExternalCode}
	assert.ElementsMatch(t, []string{"CHILD01", "CHILD02"}, codes)
}

func TestScanEventRecordedAfterLink(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	res, err := e.CreateLink(ctx, "SB00001", "CHILD01", "scanner-7")
	require.NoError(t, err)
	require.Equal(t, types.LinkLinked, res.Outcome)

	events, err := store.ScanEventsFor(ctx, res.ChildID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "scanner-7", events[0].ActorID)
}

func TestLockWaitSurfacesRetryable(t *testing.T) {
	e, _ := newTestEngine(t)
	e.lockWait = 10 * time.Millisecond

	// Hold the parent lock so the call cannot acquire it in time.
	release, err := e.locks.acquire(context.Background(), lockKey("SB00001"))
	require.NoError(t, err)
	defer release()

	_, err = e.CreateLink(context.Background(), "SB00001", "CHILD01", "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrLockWait)
	assert.True(t, types.Retryable(err), "lock-wait timeout is a retryable signal, not a verdict")
}
