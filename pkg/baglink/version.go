// Package baglink exposes module-level metadata.
package baglink

// Version is the semantic version of the baglink module.
const Version = "0.1.0"
