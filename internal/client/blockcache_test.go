package client

import (
	"testing"

	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lgSampleSize[lod] is the voxel lg_size used at that LOD; thresholds
// are the Chebyshev distances (in blocks) at which desired LOD
// advances. Mirrors a typical config.Config pairing.
var testLgSampleSize = []int16{0, 1, 2}
var testThresholds = []int32{2, 5}

// ApplyVoxels at the player's own region keeps voxels at their
// original (finest) lg_size and registers the region record.
func TestBlockCacheApplyVoxelsNearPlayerKeepsFinestLOD(t *testing.T) {
	c := NewBlockCache(testLgSampleSize, testThresholds)
	region := voxel.BlockPosition{}
	player := voxel.BlockPosition{}

	b := voxel.Bounds{X: 0, Y: 0, Z: 0, LgSize: 0}
	updates := []protocol.VoxelUpdate{{Bounds: b, Voxel: voxel.Voxel{Material: 1}}}

	edges := c.ApplyVoxels(region, updates, []uint64{7}, voxel.LOD(0), player)
	assert.NotEmpty(t, edges)

	v, ok := c.Voxel(b)
	require.True(t, ok)
	assert.Equal(t, int16(1), v.Material)

	rec, ok := c.Region(region)
	require.True(t, ok)
	assert.Equal(t, []uint64{7}, rec.MeshIDs)
}

// A region far from the player is rescaled to a coarser lg_size on
// arrival: the original fine bounds must not remain resident once
// CorrectLOD moves it.
func TestBlockCacheApplyVoxelsFarFromPlayerCoarsens(t *testing.T) {
	c := NewBlockCache(testLgSampleSize, testThresholds)
	region := voxel.BlockPosition{X: 10, Y: 0, Z: 0}
	player := voxel.BlockPosition{}

	b := voxel.Bounds{X: region.X << 3, Y: 0, Z: 0, LgSize: 0}
	updates := []protocol.VoxelUpdate{{Bounds: b, Voxel: voxel.Voxel{Material: 2}}}

	c.ApplyVoxels(region, updates, nil, voxel.LOD(2), player)

	_, stillFine := c.Voxel(b)
	assert.False(t, stillFine, "a distant region's voxel must be rescaled away from lg_size 0")

	coarse := voxel.CorrectLOD(b, player, testLgSampleSize, testThresholds)
	require.Len(t, coarse, 1)
	v, ok := c.Voxel(coarse[0])
	require.True(t, ok)
	assert.Equal(t, int16(2), v.Material)
}

// RemoveBlockData returns the mesh ids the view should drop and clears
// every voxel bounds belonging to that region.
func TestBlockCacheRemoveBlockData(t *testing.T) {
	c := NewBlockCache(testLgSampleSize, testThresholds)
	region := voxel.BlockPosition{}
	b := voxel.Bounds{X: 0, Y: 0, Z: 0, LgSize: 0}
	c.ApplyVoxels(region, []protocol.VoxelUpdate{{Bounds: b, Voxel: voxel.Voxel{Material: 1}}}, []uint64{42}, voxel.LOD(0), region)

	meshIDs := c.RemoveBlockData(region)
	assert.Equal(t, []uint64{42}, meshIDs)

	_, ok := c.Voxel(b)
	assert.False(t, ok)
	_, ok = c.Region(region)
	assert.False(t, ok)
}

// RemoveBlockData on an absent region is a no-op, not a panic.
func TestBlockCacheRemoveBlockDataAbsent(t *testing.T) {
	c := NewBlockCache(testLgSampleSize, testThresholds)
	assert.Nil(t, c.RemoveBlockData(voxel.BlockPosition{X: 99}))
}

func TestEdgeRegistryRegisterInvalidate(t *testing.T) {
	r := NewEdgeRegistry()
	e := voxel.Edge{LowCorner: [3]int32{0, 0, 0}, LgSize: 0, Direction: voxel.DirX}

	assert.False(t, r.Has(e))
	r.Register(e)
	assert.True(t, r.Has(e))
	assert.Equal(t, 1, r.Len())

	r.Invalidate(e)
	assert.False(t, r.Has(e))
	assert.Equal(t, 0, r.Len())
}
