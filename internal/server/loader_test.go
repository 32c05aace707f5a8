package server

import (
	"testing"

	"github.com/gekko3d/playform/internal/lodmap"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader() (*TerrainLoader, *SpatialHashGrid) {
	physics := NewSpatialHashGrid(8)
	return NewTerrainLoader(physics, []int16{3, 2, 1, 0}, 1.0), physics
}

// A fresh Load at a real LOD emits exactly one Gaia load message for
// the region's voxel bounds at that LOD.
func TestLoadEmitsGaiaMessage(t *testing.T) {
	loader, _ := newTestLoader()
	r := voxel.BlockPosition{X: 1, Y: 0, Z: 0}

	var emitted []GaiaMessage
	loader.Load(r, 0, OwnerID(1), 100, func(m GaiaMessage) { emitted = append(emitted, m) })

	require.Len(t, emitted, 1)
	lm, ok := emitted[0].(LoadMessage)
	require.True(t, ok)
	assert.Equal(t, r, lm.Region)
	assert.Equal(t, voxel.LOD(0), lm.LOD)
	assert.NotEmpty(t, lm.Bounds)
}

// A Placeholder request registers a coarse AABB and never reaches
// Gaia.
func TestLoadPlaceholderRegistersAABBOnly(t *testing.T) {
	loader, physics := newTestLoader()
	r := voxel.BlockPosition{X: 0, Y: 0, Z: 0}

	var emitted []GaiaMessage
	loader.Load(r, lodmap.Placeholder, OwnerID(1), 0, func(m GaiaMessage) { emitted = append(emitted, m) })

	assert.Empty(t, emitted)
	placeholder, full := loader.Stats()
	assert.Equal(t, 1, placeholder)
	assert.Equal(t, 0, full)
	assert.Len(t, physics.bounds, 1)
}

// A second, coarser owner's request for the same region must not
// re-trigger generation: the effective LOD doesn't move.
func TestLoadSecondCoarserOwnerIsNoop(t *testing.T) {
	loader, _ := newTestLoader()
	r := voxel.BlockPosition{X: 0, Y: 0, Z: 0}

	var emitted []GaiaMessage
	emit := func(m GaiaMessage) { emitted = append(emitted, m) }
	loader.Load(r, 0, OwnerID(1), 0, emit)
	loader.Load(r, 2, OwnerID(2), 0, emit)

	assert.Len(t, emitted, 1, "effective LOD stayed at 0, the coarser owner must not re-trigger a load")
}

// InsertBlock must discard a reply whose LOD no longer matches the
// owner's current request (owner moved on to a different LOD while
// generation was in flight).
func TestInsertBlockDiscardsStaleReply(t *testing.T) {
	loader, physics := newTestLoader()
	r := voxel.BlockPosition{X: 0, Y: 0, Z: 0}

	var emitted []GaiaMessage
	emit := func(m GaiaMessage) { emitted = append(emitted, m) }
	loader.Load(r, 2, OwnerID(1), 0, emit)
	// Owner changes its mind to a finer LOD before generation completes.
	loader.Load(r, 0, OwnerID(1), 1, emit)
	require.Len(t, emitted, 2)

	// The stale reply (for the original LOD=2 request) arrives last.
	stale := loader.InsertBlock(r, OwnerID(1), 2, []PhysicsID{NextPhysicsID()}, []voxel.AABB{{}})
	assert.True(t, stale)
	_, full := loader.Stats()
	assert.Equal(t, 0, full)
	assert.Empty(t, physics.bounds)
}

// The sole owner fully unloads before the Gaia reply lands: the reply
// is stale, must not touch physics, and must not resurrect the
// owner's evicted LOD-map entry.
func TestInsertBlockDiscardsReplyAfterUnload(t *testing.T) {
	loader, physics := newTestLoader()
	r := voxel.BlockPosition{X: 0, Y: 0, Z: 0}

	var emitted []GaiaMessage
	loader.Load(r, 1, OwnerID(1), 0, func(m GaiaMessage) { emitted = append(emitted, m) })
	require.Len(t, emitted, 1)

	loader.Unload(r, OwnerID(1))

	stale := loader.InsertBlock(r, OwnerID(1), 1, []PhysicsID{NextPhysicsID()}, []voxel.AABB{{}})
	assert.True(t, stale)

	placeholder, full := loader.Stats()
	assert.Equal(t, 0, placeholder)
	assert.Equal(t, 0, full)
	assert.Empty(t, physics.bounds)

	_, ok := loader.lodMap.Effective(r)
	assert.False(t, ok, "a stale reply must not re-add the owner's request")
}

// A reply superseded by another owner's finer in-flight request is
// discarded; the finer reply will register the region instead.
func TestInsertBlockDiscardsSupersededReply(t *testing.T) {
	loader, physics := newTestLoader()
	r := voxel.BlockPosition{X: 0, Y: 0, Z: 0}

	emit := func(GaiaMessage) {}
	loader.Load(r, 2, OwnerID(1), 0, emit)
	loader.Load(r, 0, OwnerID(2), 0, emit)

	stale := loader.InsertBlock(r, OwnerID(1), 2, []PhysicsID{NextPhysicsID()}, []voxel.AABB{{}})
	assert.True(t, stale)
	assert.Empty(t, physics.bounds)
}

// A fresh (non-stale) InsertBlock registers the region as Full and
// its physics bodies become queryable.
func TestInsertBlockRegistersFullRegion(t *testing.T) {
	loader, physics := newTestLoader()
	r := voxel.BlockPosition{X: 0, Y: 0, Z: 0}

	var emitted []GaiaMessage
	loader.Load(r, 1, OwnerID(1), 0, func(m GaiaMessage) { emitted = append(emitted, m) })
	require.Len(t, emitted, 1)
	lm := emitted[0].(LoadMessage)

	id := NextPhysicsID()
	aabb := voxel.AABB{Max: mgl32.Vec3{1, 1, 1}}
	stale := loader.InsertBlock(r, OwnerID(1), lm.LOD, []PhysicsID{id}, []voxel.AABB{aabb})
	assert.False(t, stale)

	_, full := loader.Stats()
	assert.Equal(t, 1, full)
	assert.Contains(t, physics.bounds, id)
}

// UnloadOwner sweeps every region an owner holds, as if Unload had
// been called per region: a disconnecting client must not pin
// terrain.
func TestUnloadOwnerReleasesEveryRegion(t *testing.T) {
	loader, physics := newTestLoader()
	owner := OwnerID(7)

	regions := []voxel.BlockPosition{{X: 0}, {X: 1}, {X: 2}}
	for _, r := range regions {
		loader.Load(r, lodmap.Placeholder, owner, 0, func(GaiaMessage) {})
	}
	placeholder, _ := loader.Stats()
	require.Equal(t, 3, placeholder)

	released := loader.UnloadOwner(owner)
	assert.Equal(t, 3, released)
	placeholder, full := loader.Stats()
	assert.Equal(t, 0, placeholder)
	assert.Equal(t, 0, full)
	assert.Empty(t, physics.bounds)
}

// Unload on the last owner removes the registered Full physics bodies.
func TestUnloadRemovesFullRegion(t *testing.T) {
	loader, physics := newTestLoader()
	r := voxel.BlockPosition{X: 0, Y: 0, Z: 0}

	loader.Load(r, 1, OwnerID(1), 0, func(GaiaMessage) {})
	id := NextPhysicsID()
	loader.InsertBlock(r, OwnerID(1), 1, []PhysicsID{id}, []voxel.AABB{{}})

	loader.Unload(r, OwnerID(1))

	_, full := loader.Stats()
	assert.Equal(t, 0, full)
	assert.NotContains(t, physics.bounds, id)
}
