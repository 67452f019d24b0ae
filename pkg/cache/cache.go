// Package cache memoizes analysis results by a content fingerprint of the
// raw points. A Cache is owned by its caller; there is no package-level
// instance.
package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chazu/foil/pkg/geom"
)

// Fingerprint hashes the point count and the exact bits of every
// coordinate. Any change to any point changes the fingerprint.
func Fingerprint(pts []geom.Point) uint64 {
	return Key(pts, "")
}

// Key extends Fingerprint with a settings string, so results computed
// under different options do not collide.
func Key(pts []geom.Point, settings string) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(pts)))
	_, _ = d.Write(buf[:])
	for _, p := range pts {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.X))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Y))
		_, _ = d.Write(buf[:])
	}
	_, _ = d.WriteString(settings)
	return d.Sum64()
}

// Cache is a fixed-size LRU keyed by fingerprint. It is safe for
// concurrent use.
type Cache[V any] struct {
	lru *lru.Cache[uint64, V]
}

// New returns a cache holding up to size entries.
func New[V any](size int) (*Cache[V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache: size must be greater than zero, got %d", size)
	}
	c, err := lru.New[uint64, V](size)
	if err != nil {
		return nil, fmt.Errorf("cache: init: %w", err)
	}
	return &Cache[V]{lru: c}, nil
}

// Get returns the value stored under fp.
func (c *Cache[V]) Get(fp uint64) (V, bool) { return c.lru.Get(fp) }

// Add stores v under fp and reports whether an older entry was evicted.
func (c *Cache[V]) Add(fp uint64, v V) bool { return c.lru.Add(fp, v) }

// Invalidate drops fp and reports whether it was present.
func (c *Cache[V]) Invalidate(fp uint64) bool { return c.lru.Remove(fp) }

// Purge drops every entry.
func (c *Cache[V]) Purge() { c.lru.Purge() }

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int { return c.lru.Len() }
