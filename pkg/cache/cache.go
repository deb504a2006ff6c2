// Package cache stores solved graphs so identical requests are answered
// without running the solver again.
//
// # Backends
//
//   - [FileCache]: one JSON file per key under a local directory (CLI default)
//   - [RedisCache]: shared cache for the HTTP server
//   - [MongoCache]: shared cache with TTL index
//   - [NullCache]: caching disabled
//
// [Open] picks a backend from a short spec string such as "file",
// "none", "redis://localhost:6379/0" or "mongodb://localhost:27017/mlat".
//
// # Keys
//
// A [Keyer] derives keys from the content hash of the canonical graph
// document plus every option that changes the result. [ScopedKeyer]
// prefixes keys so several tenants can share one backend.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values per entry kind.
const (
	// TTLSolution applies to solved position sets.
	TTLSolution = 7 * 24 * time.Hour

	// TTLGraph applies to stored canonical graph documents.
	TTLGraph = 30 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A missing or expired key is a miss
	// (hit == false), not an error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// SolutionKeyOpts holds the solver settings that influence a solution.
// Worker count is deliberately absent: it never changes the result.
type SolutionKeyOpts struct {
	LearningRate float64 `json:"learning_rate"`
	Iterations   int     `json:"iterations"`
	MaxRounds    int     `json:"max_rounds"`
}

// Keyer derives cache keys.
type Keyer interface {
	// SolutionKey identifies the solution of a graph under given settings.
	SolutionKey(graphHash string, opts SolutionKeyOpts) string

	// GraphKey identifies a stored canonical graph document.
	GraphKey(graphHash string) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SolutionKey hashes the graph hash together with opts.
func (DefaultKeyer) SolutionKey(graphHash string, opts SolutionKeyOpts) string {
	return hashKey("solution", graphHash, opts)
}

// GraphKey returns "graph:<hash>".
func (DefaultKeyer) GraphKey(graphHash string) string {
	return "graph:" + graphHash
}
