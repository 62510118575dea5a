// Scan-event telemetry. Writes here are fire-and-forget from the linking
// engine's point of view: a failure is logged by the caller, never
// propagated into the link transaction.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/parcelmesh/baglink/pkg/types"
)

// RecordScanEvent persists one telemetry row for a container scan.
func (s *Store) RecordScanEvent(ctx context.Context, actorID, containerID string, at time.Time) error {
	q, err := s.querier(nil)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		"INSERT INTO scan_events (event_id, actor_id, container_id, recorded_at) VALUES (?, ?, ?, ?)",
		generateUUID(), actorID, containerID, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return wrapTransient(fmt.Errorf("recording scan event for %s: %w", containerID, err))
	}
	return nil
}

// ScanEventsFor returns the recorded events for a container, oldest first.
func (s *Store) ScanEventsFor(ctx context.Context, containerID string) ([]*types.ScanEvent, error) {
	q, err := s.querier(nil)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT event_id, actor_id, container_id, recorded_at
		   FROM scan_events WHERE container_id = ? ORDER BY recorded_at, event_id`, containerID)
	if err != nil {
		return nil, wrapTransient(fmt.Errorf("fetching scan events for %s: %w", containerID, err))
	}
	defer rows.Close()

	events := []*types.ScanEvent{}
	for rows.Next() {
		var e types.ScanEvent
		var recordedAt string
		if err := rows.Scan(&e.EventID, &e.ActorID, &e.ContainerID, &recordedAt); err != nil {
			return nil, fmt.Errorf("hydrating scan event: %w", err)
		}
		e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapTransient(fmt.Errorf("iterating scan events: %w", err))
	}
	return events, nil
}
