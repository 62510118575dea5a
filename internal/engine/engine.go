// Package engine implements the linking engine: the sole entry point for
// attaching a child container to a parent. One transaction per call
// enforces the per-parent capacity and the acyclicity of the edge graph
// under arbitrarily many concurrent callers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parcelmesh/baglink/internal/cache"
	"github.com/parcelmesh/baglink/internal/retry"
	"github.com/parcelmesh/baglink/internal/sqlite"
	"github.com/parcelmesh/baglink/pkg/types"
)

// Cache TTLs are asymmetric: counts feed correctness-adjacent displays
// and stay short; child listings are broader summaries.
const (
	countTTL   = 5 * time.Second
	summaryTTL = 45 * time.Second
)

// defaultLockWait bounds how long a caller waits for the parent lock
// before surfacing a retryable error.
const defaultLockWait = 5 * time.Second

// Engine orchestrates link creation against the store. The read cache is
// advisory only: accept/reject decisions read through the transaction,
// never through the cache.
type Engine struct {
	store    *sqlite.Store
	cache    *cache.Cache
	locks    *keyLocks
	retry    retry.Config
	lockWait time.Duration
	log      *slog.Logger
}

// New creates an Engine over an attached store. A nil cache disables
// read caching; a nil logger uses slog.Default.
func New(store *sqlite.Store, readCache *cache.Cache, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    store,
		cache:    readCache,
		locks:    newKeyLocks(),
		retry:    retry.DefaultConfig(),
		lockWait: defaultLockWait,
		log:      log,
	}
}

// CreateLink attaches childCode under parentCode on behalf of actorID.
// Every call yields exactly one terminal outcome in the result, or an
// error; types.Retryable reports whether the error is worth repeating.
//
// Unknown codes are registered lazily: the parent scan is the sole path
// that mints parent containers. A code already registered as a child of
// some parent cannot be promoted to a parent, and a code already
// registered as a parent cannot appear as a child; both reject as invalid.
func (e *Engine) CreateLink(ctx context.Context, parentCode, childCode, actorID string) (*types.LinkResult, error) {
	parentCode = types.NormalizeCode(parentCode)
	childCode = types.NormalizeCode(childCode)

	if !types.ValidCode(parentCode) || !types.ValidCode(childCode) {
		return &types.LinkResult{Outcome: types.LinkInvalid}, nil
	}
	if types.SameCode(parentCode, childCode) {
		return &types.LinkResult{Outcome: types.LinkInvalid}, nil
	}

	var res *types.LinkResult
	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		r, err := e.createLinkOnce(ctx, parentCode, childCode, actorID)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Linked() {
		e.afterLink(ctx, parentCode, actorID, res)
	}
	return res, nil
}

// createLinkOnce runs one attempt: lock the parent, then decide and
// commit inside a single transaction. Any failure rolls back whole.
func (e *Engine) createLinkOnce(ctx context.Context, parentCode, childCode, actorID string) (*types.LinkResult, error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.lockWait)
	defer cancel()

	release, err := e.locks.acquire(lockCtx, lockKey(parentCode))
	if err != nil {
		// A bounded lock wait is a transient condition, never a
		// capacity verdict.
		return nil, types.MarkRetryable(fmt.Errorf("%w: parent %q", types.ErrLockWait, parentCode))
	}
	defer release()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	parent, _, err := e.store.ResolveOrCreateContainer(ctx, tx, parentCode, types.KindParent)
	if err != nil {
		return nil, err
	}
	if parent.Kind != types.KindParent {
		return &types.LinkResult{Outcome: types.LinkInvalid}, nil
	}

	child, _, err := e.store.ResolveOrCreateContainer(ctx, tx, childCode, types.KindChild)
	if err != nil {
		return nil, err
	}
	if child.Kind != types.KindChild {
		return &types.LinkResult{Outcome: types.LinkInvalid}, nil
	}

	res := &types.LinkResult{ParentID: parent.ContainerID, ChildID: child.ContainerID}

	exists, err := e.store.EdgeExists(ctx, tx, parent.ContainerID, child.ContainerID)
	if err != nil {
		return nil, err
	}
	if exists {
		res.Outcome = types.LinkAlreadyLinked
		res.ChildCount, err = e.store.CountChildren(ctx, tx, parent.ContainerID)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	// Capacity guard: recount under the held lock.
	count, err := e.store.CountChildren(ctx, tx, parent.ContainerID)
	if err != nil {
		return nil, err
	}
	if count >= types.MaxChildren {
		res.Outcome = types.LinkCapacityExceeded
		res.ChildCount = count
		return res, nil
	}

	cycle, err := e.wouldCreateCycle(ctx, tx, parent.ContainerID, child.ContainerID)
	if err != nil {
		return nil, err
	}
	if cycle {
		res.Outcome = types.LinkCycleDetected
		res.ChildCount = count
		return res, nil
	}

	err = e.store.InsertEdge(ctx, tx, parent.ContainerID, child.ContainerID, actorID)
	switch {
	case errors.Is(err, types.ErrEdgeExists):
		// Lost a duplicate-insert race; same terminal outcome as the
		// explicit existence check.
		res.Outcome = types.LinkAlreadyLinked
		res.ChildCount = count
		return res, nil
	case errors.Is(err, types.ErrNotFound):
		res.Outcome = types.LinkNotFound
		return res, nil
	case err != nil:
		return nil, err
	}

	res.Outcome = types.LinkLinked
	res.ChildCount = count + 1
	if res.ChildCount == types.MaxChildren {
		if err := e.store.MarkCompleted(ctx, tx, parent.ContainerID); err != nil {
			return nil, err
		}
		res.Completed = true
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// afterLink runs the post-commit effects of a successful link: scan-event
// telemetry (best-effort) and cache invalidation for the parent.
func (e *Engine) afterLink(ctx context.Context, parentCode, actorID string, res *types.LinkResult) {
	if err := e.store.RecordScanEvent(ctx, actorID, res.ChildID, time.Now().UTC()); err != nil {
		e.log.Warn("scan event dropped",
			"actor", actorID,
			"container", res.ChildID,
			"error", err)
	}

	if e.cache != nil {
		e.cache.Invalidate(parentKeyPrefix(parentCode))
	}
}

// GetChildCount returns the number of children linked under parentCode,
// serving from the cache when fresh and falling back to the store.
// Returns types.ErrNotFound for an unregistered code.
func (e *Engine) GetChildCount(ctx context.Context, parentCode string) (int, error) {
	parentCode = types.NormalizeCode(parentCode)
	if !types.ValidCode(parentCode) {
		return 0, types.ErrInvalidCode
	}

	key := countKey(parentCode)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v.(int), nil
		}
	}

	var count int
	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		parent, err := e.store.ContainerByCode(ctx, nil, parentCode)
		if err != nil {
			return err
		}
		count, err = e.store.CountChildren(ctx, nil, parent.ContainerID)
		return err
	})
	if err != nil {
		return 0, err
	}

	if e.cache != nil {
		e.cache.Set(key, count, countTTL)
	}
	return count, nil
}

// ListChildren returns the children of parentCode, cache-first with the
// longer summary TTL. Returns types.ErrNotFound for an unregistered code.
func (e *Engine) ListChildren(ctx context.Context, parentCode string) ([]*types.Container, error) {
	parentCode = types.NormalizeCode(parentCode)
	if !types.ValidCode(parentCode) {
		return nil, types.ErrInvalidCode
	}

	key := childrenKey(parentCode)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v.([]*types.Container), nil
		}
	}

	var children []*types.Container
	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		parent, err := e.store.ContainerByCode(ctx, nil, parentCode)
		if err != nil {
			return err
		}
		children, err = e.store.ListChildren(ctx, nil, parent.ContainerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(key, children, summaryTTL)
	}
	return children, nil
}

// Cache keys are grouped under one per-parent prefix so a single
// invalidation covers every aggregate for that parent.
func parentKeyPrefix(code string) string {
	return "parent:" + lockKey(code) + ":"
}

func countKey(code string) string {
	return parentKeyPrefix(code) + "count"
}

func childrenKey(code string) string {
	return parentKeyPrefix(code) + "children"
}

// lockKey folds a code to its case-insensitive identity.
func lockKey(code string) string {
	return strings.ToLower(types.NormalizeCode(code))
}
