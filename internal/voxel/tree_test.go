package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeGetOrCreateCachesOnce(t *testing.T) {
	tree := NewTree()
	calls := 0
	gen := func(b Bounds) (Voxel, bool) {
		calls++
		return Voxel{Density: -1, Material: 7}, true
	}

	b := New(1, 2, 3, 0)
	v1, ok := tree.GetOrCreate(b, gen)
	require.True(t, ok)
	v2, ok := tree.GetOrCreate(b, gen)
	require.True(t, ok)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
}

func TestTreeGenRefusalNotCached(t *testing.T) {
	tree := NewTree()
	refuse := func(b Bounds) (Voxel, bool) { return Voxel{}, false }
	b := New(0, 0, 0, 5)

	_, ok := tree.GetOrCreate(b, refuse)
	assert.False(t, ok)

	accept := func(b Bounds) (Voxel, bool) { return Voxel{Density: 1}, true }
	v, ok := tree.GetOrCreate(b, accept)
	require.True(t, ok)
	assert.Equal(t, float32(1), v.Density)
}

// Applying an identity edit (field unchanged) yields equal voxel
// values and reports no change.
func TestBrushIdentityIsIdempotent(t *testing.T) {
	tree := NewTree()
	gen := func(b Bounds) (Voxel, bool) { return Voxel{Density: float32(b.X)}, true }

	candidates := []Bounds{New(1, 0, 0, 0), New(2, 0, 0, 0)}
	identity := func(b Bounds, v Voxel) (Voxel, bool) { return v, false }

	changed := tree.Brush(candidates, gen, 3, identity)
	assert.Empty(t, changed)

	for _, b := range candidates {
		v, ok := tree.Peek(b)
		require.True(t, ok)
		assert.Equal(t, float32(b.X), v.Density)
	}
}

func TestBrushRespectsMaxLgSize(t *testing.T) {
	tree := NewTree()
	gen := func(b Bounds) (Voxel, bool) { return Voxel{Density: 1}, true }
	coarse := New(0, 0, 0, 4)

	changed := tree.Brush([]Bounds{coarse}, gen, 3, func(b Bounds, v Voxel) (Voxel, bool) {
		return Voxel{Density: 2}, true
	})
	assert.Empty(t, changed)
	_, ok := tree.Peek(coarse)
	assert.False(t, ok, "cell coarser than maxLgSize must not be materialized")
}

func TestTreeSnapshotRestore(t *testing.T) {
	tree := NewTree()
	tree.Set(New(1, 1, 1, 0), Voxel{Density: -2, Material: 3})

	snap := tree.Snapshot()
	restored := NewTree()
	restored.Restore(snap)

	v, ok := restored.Peek(New(1, 1, 1, 0))
	require.True(t, ok)
	assert.Equal(t, Voxel{Density: -2, Material: 3}, v)
}
