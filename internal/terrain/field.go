// Package terrain generates and stores the world's voxel field: a
// procedural density/material source memoized behind a point cache,
// marrying that source to a voxel.Tree for lazy, cached materialization.
package terrain

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Field is the capability set a density source exposes. Not every
// implementation supports every capability (Normal in particular is
// usually derived, not sampled directly); the Has* methods report
// which optional capabilities an implementation supports.
type Field interface {
	Density(p mgl32.Vec3) float32
	Normal(p mgl32.Vec3) mgl32.Vec3
	Material(p mgl32.Vec3) int16

	HasNormal() bool
	HasMaterial() bool
}

// pointKey is a cache key over the bit pattern of a point's three
// components. +0.0 and -0.0 hash to distinct keys, and NaN compares
// unequal to itself elsewhere but hashes consistently here; callers
// never pass NaN, so this is not a correctness concern in practice.
type pointKey struct{ x, y, z uint32 }

func keyOf(p mgl32.Vec3) pointKey {
	return pointKey{
		x: math.Float32bits(p.X()),
		y: math.Float32bits(p.Y()),
		z: math.Float32bits(p.Z()),
	}
}

// FieldCache wraps a Field behind per-capability memoization tables,
// so repeated samples at the same point (common across overlapping
// voxel corners) cost one underlying call.
type FieldCache struct {
	mu sync.Mutex

	inner Field

	density  map[pointKey]float32
	normal   map[pointKey]mgl32.Vec3
	material map[pointKey]int16
}

// NewFieldCache wraps inner with memoization.
func NewFieldCache(inner Field) *FieldCache {
	return &FieldCache{
		inner:    inner,
		density:  make(map[pointKey]float32),
		normal:   make(map[pointKey]mgl32.Vec3),
		material: make(map[pointKey]int16),
	}
}

func (c *FieldCache) Density(p mgl32.Vec3) float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := keyOf(p)
	if v, ok := c.density[k]; ok {
		return v
	}
	v := c.inner.Density(p)
	c.density[k] = v
	return v
}

func (c *FieldCache) Normal(p mgl32.Vec3) mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := keyOf(p)
	if v, ok := c.normal[k]; ok {
		return v
	}
	v := c.inner.Normal(p)
	c.normal[k] = v
	return v
}

func (c *FieldCache) Material(p mgl32.Vec3) int16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := keyOf(p)
	if v, ok := c.material[k]; ok {
		return v
	}
	v := c.inner.Material(p)
	c.material[k] = v
	return v
}

func (c *FieldCache) HasNormal() bool   { return c.inner.HasNormal() }
func (c *FieldCache) HasMaterial() bool { return c.inner.HasMaterial() }
