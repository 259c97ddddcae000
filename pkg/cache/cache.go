// Package cache provides byte-level caching for expensive derived
// artifacts: rendered diagrams, serialized programs, and query results.
//
// Backends share one Cache interface; key construction is separated into
// a Keyer so callers never concatenate key strings by hand.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with per-entry TTLs.
// A zero TTL means the entry does not expire; a negative TTL is already
// expired and stores nothing.
type Cache interface {
	// Get returns the cached bytes for key and whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key with the given TTL.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key from the cache. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// RenderKeyOpts distinguishes renderings of the same program.
type RenderKeyOpts struct {
	Format   string // "dot" or "svg"
	Detailed bool
}

// QueryKeyOpts distinguishes dependency queries over the same program.
type QueryKeyOpts struct {
	Kind  string // "ancestors", "descendants", "children"
	Index int
}

// Keyer builds cache keys for the artifact types Flowforge caches.
// Implementations must be deterministic: equal inputs yield equal keys.
type Keyer interface {
	// ProgramKey keys the serialized wire form of a stored program.
	ProgramKey(name string) string

	// RenderKey keys a rendering of the program with the given content
	// hash (see [Hash]).
	RenderKey(programHash string, opts RenderKeyOpts) string

	// QueryKey keys a dependency query result over the program with the
	// given content hash.
	QueryKey(programHash string, opts QueryKeyOpts) string
}

// DefaultKeyer is the standard key scheme. Option structs are folded into
// the key via a SHA-256 hash so new option fields never produce colliding
// keys with old ones.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ProgramKey generates a key for a stored program's wire form.
func (k *DefaultKeyer) ProgramKey(name string) string {
	return "program:" + name
}

// RenderKey generates a key for a rendered diagram.
func (k *DefaultKeyer) RenderKey(programHash string, opts RenderKeyOpts) string {
	return hashKey("render", programHash, opts)
}

// QueryKey generates a key for a dependency query result.
func (k *DefaultKeyer) QueryKey(programHash string, opts QueryKeyOpts) string {
	return hashKey("query", programHash, opts)
}
