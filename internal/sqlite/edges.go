// Edge access: existence checks, insertion, child counts, and the
// child→parent lookup backing the ancestor walk.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/parcelmesh/baglink/pkg/types"

	sqlite3 "modernc.org/sqlite/lib"
)

// EdgeExists reports whether the (parent, child) edge is present.
func (s *Store) EdgeExists(ctx context.Context, q Querier, parentID, childID string) (bool, error) {
	q, err := s.querier(q)
	if err != nil {
		return false, err
	}

	var one int
	err = q.QueryRowContext(ctx,
		"SELECT 1 FROM edges WHERE parent_id = ? AND child_id = ?",
		parentID, childID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapTransient(fmt.Errorf("checking edge %s->%s: %w", parentID, childID, err))
	}
	return true, nil
}

// InsertEdge creates the (parent, child) edge. A duplicate insert returns
// types.ErrEdgeExists; a missing container returns types.ErrNotFound.
func (s *Store) InsertEdge(ctx context.Context, q Querier, parentID, childID, actorID string) error {
	q, err := s.querier(q)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		"INSERT INTO edges (parent_id, child_id, created_by, created_at) VALUES (?, ?, ?, ?)",
		parentID, childID, actorID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrEdgeExists
		}
		if isForeignKeyViolation(err) {
			return types.ErrNotFound
		}
		return wrapTransient(fmt.Errorf("inserting edge %s->%s: %w", parentID, childID, err))
	}
	return nil
}

// CountChildren returns the number of edges under parentID. The linking
// engine calls this inside its transaction while holding the parent lock;
// the count itself takes no locks.
func (s *Store) CountChildren(ctx context.Context, q Querier, parentID string) (int, error) {
	q, err := s.querier(q)
	if err != nil {
		return 0, err
	}

	var n int
	err = q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM edges WHERE parent_id = ?", parentID,
	).Scan(&n)
	if err != nil {
		return 0, wrapTransient(fmt.Errorf("counting children of %s: %w", parentID, err))
	}
	return n, nil
}

// ParentOf returns the parent ID of childID, or types.ErrNotFound when the
// container has no parent. Each child has at most one parent.
func (s *Store) ParentOf(ctx context.Context, q Querier, childID string) (string, error) {
	q, err := s.querier(q)
	if err != nil {
		return "", err
	}

	var parentID string
	err = q.QueryRowContext(ctx,
		"SELECT parent_id FROM edges WHERE child_id = ?", childID,
	).Scan(&parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", wrapTransient(fmt.Errorf("looking up parent of %s: %w", childID, err))
	}
	return parentID, nil
}

// ListChildren returns the child containers of parentID ordered by link
// creation time.
func (s *Store) ListChildren(ctx context.Context, q Querier, parentID string) ([]*types.Container, error) {
	q, err := s.querier(q)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT c.container_id, c.external_code, c.kind, c.status, c.created_at
		   FROM edges e JOIN containers c ON c.container_id = e.child_id
		  WHERE e.parent_id = ?
		  ORDER BY e.created_at, c.external_code`, parentID)
	if err != nil {
		return nil, wrapTransient(fmt.Errorf("listing children of %s: %w", parentID, err))
	}
	defer rows.Close()

	children := []*types.Container{}
	for rows.Next() {
		var c types.Container
		var createdAt string
		if err := rows.Scan(&c.ContainerID, &c.ExternalCode, &c.Kind, &c.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("hydrating child: %w", err)
		}
		c.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		children = append(children, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapTransient(fmt.Errorf("iterating children of %s: %w", parentID, err))
	}
	return children, nil
}

// isUniqueViolation reports whether err is a unique or primary key
// constraint failure.
func isUniqueViolation(err error) bool {
	switch sqliteCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// isForeignKeyViolation reports whether err is a foreign key failure,
// meaning a referenced container vanished.
func isForeignKeyViolation(err error) bool {
	return sqliteCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
