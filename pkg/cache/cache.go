// Package cache stores optimized programs keyed by the hash of their input.
//
// Two backends are provided: [FileCache] for the CLI and [RedisCache] for
// the HTTP service. [NullCache] disables caching. Keys are built by a
// [Keyer] so that every consumer agrees on their layout, and [Observed]
// reports hits and misses to the observability hooks.
package cache

import (
	"context"
	"sort"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired
	// entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Close() error
}

// NullCache misses on every lookup and drops every write.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)         { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                              { return nil }

// Keyer builds cache keys.
type Keyer interface {
	// RewriteKey identifies the optimized form of a program.
	RewriteKey(programHash string, opts RewriteKeyOpts) string

	// RenderKey identifies a rendered drawing of a program.
	RenderKey(programHash string, opts RenderKeyOpts) string
}

// RewriteKeyOpts are the inputs besides the program that change the result
// of an optimization.
type RewriteKeyOpts struct {
	Rules  []string `json:"rules"`
	Format string   `json:"format"`
}

// RenderKeyOpts are the rendering inputs besides the program.
type RenderKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// DefaultKeyer produces unscoped keys of the form "kind:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RewriteKey hashes the program hash with the enabled rules. Rule order does
// not change the key.
func (DefaultKeyer) RewriteKey(programHash string, opts RewriteKeyOpts) string {
	rules := append([]string(nil), opts.Rules...)
	sort.Strings(rules)
	opts.Rules = rules
	return hashKey("rewrite", programHash, opts)
}

func (DefaultKeyer) RenderKey(programHash string, opts RenderKeyOpts) string {
	return hashKey("render", programHash, opts)
}
