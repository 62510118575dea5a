// Package types defines the container and edge entities, link outcomes,
// configuration, and standard errors shared by the baglink linking engine
// and its storage backend.
package types
