package surroundings

import (
	"testing"

	"github.com/gekko3d/playform/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The first tick has no prior position, so it must behave as if the
// tracker arrived from outside maxLoadDistance: every region within
// range loads, and nothing unloads.
func TestTrackerFirstTickLoadsEverything(t *testing.T) {
	tr := NewTracker([]int32{0, 1}, 1)
	loads, unloads := tr.Tick(voxel.BlockPosition{})

	assert.Empty(t, unloads)
	// Everything within maxLoadDistance loads: a full 3x3x3 cube.
	require.Len(t, loads, 27)

	// Region (0,0,0) is within the finest threshold, so it must load at
	// LOD 0, not some coarser LOD.
	found := false
	for _, l := range loads {
		if l.Region == (voxel.BlockPosition{}) {
			found = true
			assert.Equal(t, voxel.LOD(0), l.LOD)
		}
	}
	assert.True(t, found, "origin region must be among the first tick's loads")
}

// Standing still emits nothing.
func TestTrackerNoMovementIsQuiet(t *testing.T) {
	tr := NewTracker([]int32{0, 1}, 1)
	tr.Tick(voxel.BlockPosition{X: 5, Y: 5, Z: 5})

	loads, unloads := tr.Tick(voxel.BlockPosition{X: 5, Y: 5, Z: 5})
	assert.Empty(t, loads)
	assert.Empty(t, unloads)
}

// Moving far enough away unloads regions that fell outside
// maxLoadDistance, and loads the newly entered ones.
func TestTrackerMoveUnloadsFarRegions(t *testing.T) {
	tr := NewTracker([]int32{0}, 1)
	tr.Tick(voxel.BlockPosition{})

	loads, unloads := tr.Tick(voxel.BlockPosition{X: 10})
	require.NotEmpty(t, unloads)
	require.NotEmpty(t, loads)

	unloadedOrigin := false
	for _, u := range unloads {
		if u.Region == (voxel.BlockPosition{}) {
			unloadedOrigin = true
		}
	}
	assert.True(t, unloadedOrigin, "origin region is far outside the new cube and must unload")
}

// One step from (0,0,0) to (1,0,0) with thresholds [1,4,8].
// Every (-1,y,z) face region slips out of the finest shell: it is
// emitted as an unload (dropping the fine mesh) and re-loaded at
// LOD 1. Every (2,y,z) face region enters the finest shell at LOD 0.
func TestTrackerShellCrossingLoadsCoarserAndUnloads(t *testing.T) {
	tr := NewTracker([]int32{1, 4, 8}, 8)
	tr.Tick(voxel.BlockPosition{})

	loads, unloads := tr.Tick(voxel.BlockPosition{X: 1})

	loadAt := make(map[voxel.BlockPosition]voxel.LOD)
	for _, l := range loads {
		loadAt[l.Region] = l.LOD
	}
	unloaded := make(map[voxel.BlockPosition]bool)
	for _, u := range unloads {
		unloaded[u.Region] = true
	}

	for y := int32(-1); y <= 1; y++ {
		for z := int32(-1); z <= 1; z++ {
			entering := voxel.BlockPosition{X: 2, Y: y, Z: z}
			require.Contains(t, loadAt, entering)
			assert.Equal(t, voxel.LOD(0), loadAt[entering])

			leaving := voxel.BlockPosition{X: -1, Y: y, Z: z}
			assert.True(t, unloaded[leaving], "region %v left the finest shell and must unload", leaving)
			require.Contains(t, loadAt, leaving, "region %v must re-load at the coarser LOD", leaving)
			assert.Equal(t, voxel.LOD(1), loadAt[leaving])
		}
	}
}

// A region whose desired LOD refines (the player walked toward it)
// gets a Load at the finer LOD and no unload: the reply replaces the
// coarse mesh.
func TestTrackerRefineEmitsLoadOnly(t *testing.T) {
	tr := NewTracker([]int32{1, 4}, 4)
	tr.Tick(voxel.BlockPosition{})

	target := voxel.BlockPosition{X: 3}
	loads, unloads := tr.Tick(voxel.BlockPosition{X: 2})

	var lod *voxel.LOD
	for _, l := range loads {
		if l.Region == target {
			v := l.LOD
			lod = &v
		}
	}
	require.NotNil(t, lod, "region %v crossed into the finest shell and must load", target)
	assert.Equal(t, voxel.LOD(0), *lod)
	for _, u := range unloads {
		assert.NotEqual(t, target, u.Region, "a refining region must not unload")
	}
}
