// Package cache provides caching for analysis results and rendered artifacts.
//
// The pipeline caches three kinds of values: dominator sets keyed by graph
// hash, collected regions keyed by graph hash plus collection inputs, and
// rendered artifacts keyed by result hash plus render options. Backends
// include a file cache for CLI usage, a Redis cache for server deployments,
// and a null cache for disabling caching entirely.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is the storage interface for cached values.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// TTLs per value category. Analysis results are pure functions of their
// inputs so they could live forever; the TTLs bound disk usage instead.
const (
	// TTLDominators is the expiry for cached dominator sets.
	TTLDominators = 7 * 24 * time.Hour

	// TTLRegion is the expiry for cached region collections.
	TTLRegion = 7 * 24 * time.Hour

	// TTLArtifact is the expiry for rendered artifacts.
	TTLArtifact = 24 * time.Hour
)

// RegionKeyOpts are the collection inputs that affect a cached region.
type RegionKeyOpts struct {
	Start           int    // Region start node
	Marker          string // Boundary marker substring
	AnnotationsHash string // Hash of the annotation store contents
}

// ArtifactKeyOpts are the render options that affect a cached artifact.
type ArtifactKeyOpts struct {
	Format   string // Output format: dot, svg, png, json
	Detailed bool   // Whether node ids are included in labels
}

// Keyer generates cache keys for the three cached value categories.
// Keys for the same inputs must be identical across processes so that
// the file cache survives restarts and Redis can be shared.
type Keyer interface {
	// DomKey generates a key for cached dominator sets.
	DomKey(graphHash string) string

	// RegionKey generates a key for cached region collections.
	RegionKey(graphHash string, opts RegionKeyOpts) string

	// ArtifactKey generates a key for rendered artifacts.
	ArtifactKey(resultHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key generation strategy.
// Keys are prefixed by category and hash the remaining inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// DomKey generates a key for cached dominator sets.
func (k *DefaultKeyer) DomKey(graphHash string) string {
	return fmt.Sprintf("dom:%s", graphHash)
}

// RegionKey generates a key for cached region collections.
func (k *DefaultKeyer) RegionKey(graphHash string, opts RegionKeyOpts) string {
	return hashKey("region", graphHash, opts.Start, opts.Marker, opts.AnnotationsHash)
}

// ArtifactKey generates a key for rendered artifacts.
func (k *DefaultKeyer) ArtifactKey(resultHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", resultHash, opts.Format, opts.Detailed)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
