// Container record access: resolve-or-create, lookups, status flips, and
// maintenance purge with cascade to edges and scan events.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/parcelmesh/baglink/pkg/types"
)

const containerColumns = "container_id, external_code, kind, status, created_at"

// ContainerByCode retrieves a container by its external code,
// case-insensitively. Returns types.ErrNotFound when absent.
func (s *Store) ContainerByCode(ctx context.Context, q Querier, code string) (*types.Container, error) {
	q, err := s.querier(q)
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		"SELECT "+containerColumns+" FROM containers WHERE external_code = ? COLLATE NOCASE",
		types.NormalizeCode(code),
	)
	c, err := hydrateContainer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, wrapTransient(fmt.Errorf("getting container %q: %w", code, err))
	}
	return c, nil
}

// ContainerByID retrieves a container by its opaque ID.
// Returns types.ErrNotFound when absent.
func (s *Store) ContainerByID(ctx context.Context, q Querier, id string) (*types.Container, error) {
	q, err := s.querier(q)
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		"SELECT "+containerColumns+" FROM containers WHERE container_id = ?", id)
	c, err := hydrateContainer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, wrapTransient(fmt.Errorf("getting container %s: %w", id, err))
	}
	return c, nil
}

// ResolveOrCreateContainer returns the container for code, creating it
// with the given kind and pending status when previously unseen. The
// second return reports whether a new record was created. An existing
// container is returned as-is; kind reconciliation is the caller's call.
func (s *Store) ResolveOrCreateContainer(ctx context.Context, q Querier, code, kind string) (*types.Container, bool, error) {
	if !types.ValidKind(kind) {
		return nil, false, types.ErrInvalidKind
	}
	if !types.ValidCode(code) {
		return nil, false, types.ErrInvalidCode
	}

	existing, err := s.ContainerByCode(ctx, q, code)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, false, err
	}

	q, err = s.querier(q)
	if err != nil {
		return nil, false, err
	}

	c := &types.Container{
		ContainerID:  generateUUID(),
		ExternalCode: types.NormalizeCode(code),
		Kind:         kind,
		Status:       types.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO containers (container_id, external_code, kind, status, created_at) VALUES (?, ?, ?, ?, ?)",
		c.ContainerID, c.ExternalCode, c.Kind, c.Status, c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		// A concurrent scan may have minted the same code first; the
		// unique index turns that race into a plain lookup.
		if isUniqueViolation(err) {
			existing, lerr := s.ContainerByCode(ctx, q, code)
			if lerr != nil {
				return nil, false, lerr
			}
			return existing, false, nil
		}
		return nil, false, wrapTransient(fmt.Errorf("creating container %q: %w", code, err))
	}
	return c, true, nil
}

// SetKind rewrites a container's kind.
func (s *Store) SetKind(ctx context.Context, q Querier, id, kind string) error {
	if !types.ValidKind(kind) {
		return types.ErrInvalidKind
	}
	q, err := s.querier(q)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE containers SET kind = ? WHERE container_id = ?", kind, id)
	if err != nil {
		return wrapTransient(fmt.Errorf("setting kind for %s: %w", id, err))
	}
	return requireRow(res)
}

// MarkCompleted flips a container's lifecycle status to completed.
func (s *Store) MarkCompleted(ctx context.Context, q Querier, id string) error {
	q, err := s.querier(q)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE containers SET status = ? WHERE container_id = ?",
		types.StatusCompleted, id)
	if err != nil {
		return wrapTransient(fmt.Errorf("marking container %s completed: %w", id, err))
	}
	return requireRow(res)
}

// PurgeContainer removes a container and cascades to its edges in either
// direction and its scan events, all in one transaction. Returns
// types.ErrNotFound when the code is unknown.
func (s *Store) PurgeContainer(ctx context.Context, code string) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := s.ContainerByCode(ctx, tx, code)
	if err != nil {
		return err
	}

	steps := []struct {
		what  string
		query string
	}{
		{"edges", "DELETE FROM edges WHERE parent_id = ? OR child_id = ?"},
		{"scan events", "DELETE FROM scan_events WHERE container_id = ?"},
		{"container", "DELETE FROM containers WHERE container_id = ?"},
	}
	for _, step := range steps {
		args := []any{c.ContainerID}
		if step.what == "edges" {
			args = append(args, c.ContainerID)
		}
		if _, err := tx.ExecContext(ctx, step.query, args...); err != nil {
			return wrapTransient(fmt.Errorf("purging %s for %q: %w", step.what, code, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapTransient(fmt.Errorf("committing purge of %q: %w", code, err))
	}
	return nil
}

// requireRow converts a zero-row update into types.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// hydrateContainer converts a single row into a *types.Container.
func hydrateContainer(row *sql.Row) (*types.Container, error) {
	var c types.Container
	var createdAt string
	if err := row.Scan(&c.ContainerID, &c.ExternalCode, &c.Kind, &c.Status, &createdAt); err != nil {
		return nil, err
	}
	var err error
	c.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &c, nil
}
