package types

import "time"

// ScanEvent records that an actor scanned a container. Events are
// best-effort telemetry written after a successful link; a failed event
// write never rolls back the link itself.
type ScanEvent struct {
	// EventID is a UUID v7, generated on creation.
	EventID string

	// ActorID is the opaque identity supplied by the caller.
	ActorID string

	// ContainerID is the container that was scanned.
	ContainerID string

	// RecordedAt is the timestamp of the scan.
	RecordedAt time.Time
}
