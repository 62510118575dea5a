package sqlite

// Schema DDL. The database file persists across Attach calls, so every
// statement is idempotent.
const (
	createContainers = `CREATE TABLE IF NOT EXISTS containers (
    container_id TEXT PRIMARY KEY,
    external_code TEXT NOT NULL,
    kind TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createEdges = `CREATE TABLE IF NOT EXISTS edges (
    parent_id TEXT NOT NULL,
    child_id TEXT NOT NULL,
    created_by TEXT,
    created_at TEXT NOT NULL,
    PRIMARY KEY (parent_id, child_id),
    FOREIGN KEY (parent_id) REFERENCES containers(container_id),
    FOREIGN KEY (child_id) REFERENCES containers(container_id)
);`

	createScanEvents = `CREATE TABLE IF NOT EXISTS scan_events (
    event_id TEXT PRIMARY KEY,
    actor_id TEXT NOT NULL,
    container_id TEXT NOT NULL,
    recorded_at TEXT NOT NULL,
    FOREIGN KEY (container_id) REFERENCES containers(container_id)
);`
)

// Index DDL. The unique NOCASE index enforces case-insensitive code
// uniqueness; child_id serves the ancestor walk, parent_id the counts.
const (
	idxContainersCode = `CREATE UNIQUE INDEX IF NOT EXISTS idx_containers_code
    ON containers(external_code COLLATE NOCASE);`
	idxEdgesChild      = `CREATE INDEX IF NOT EXISTS idx_edges_child ON edges(child_id);`
	idxEdgesParent     = `CREATE INDEX IF NOT EXISTS idx_edges_parent ON edges(parent_id);`
	idxEventsContainer = `CREATE INDEX IF NOT EXISTS idx_events_container
    ON scan_events(container_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createContainers,
	createEdges,
	createScanEvents,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxContainersCode,
	idxEdgesChild,
	idxEdgesParent,
	idxEventsContainer,
}
