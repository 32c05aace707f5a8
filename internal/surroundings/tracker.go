// Package surroundings derives which regions should be resident at
// which level of detail from a moving block position. It is shared by
// the client (driving RequestBlock traffic) and the server (keeping
// terrain resident around players and mobs).
package surroundings

import (
	"sync"

	"github.com/gekko3d/playform/internal/voxel"
)

// LoadEvent asks for region at lod; UnloadEvent relinquishes a region
// entirely. Both are fire-and-forget: the tracker never waits for a
// reply, since the LOD map on the server side deduplicates by owner.
type LoadEvent struct {
	Region voxel.BlockPosition
	LOD    voxel.LOD
}

type UnloadEvent struct {
	Region voxel.BlockPosition
}

// Tracker derives Load/Unload events from a moving block position:
// one CubeDiff per LOD threshold radius (finest to coarsest) plus one
// at the hard unload horizon, with the LOD for each candidate region
// recomputed from its current Chebyshev distance.
type Tracker struct {
	mu sync.Mutex

	thresholds      []int32
	maxLoadDistance int32
	prev            voxel.BlockPosition
	hasPrev         bool
}

// NewTracker returns a tracker over thresholds (ascending, finest to
// coarsest). maxLoadDistance is the radius beyond which a region is
// unloaded outright; it must be >= the last threshold.
func NewTracker(thresholds []int32, maxLoadDistance int32) *Tracker {
	return &Tracker{thresholds: thresholds, maxLoadDistance: maxLoadDistance}
}

// Tick reports the Load/Unload events implied by moving from the
// tracker's last known position to cur. The very first call (no prior
// position) treats cur as if the tracker arrived from outside
// maxLoadDistance entirely, so it loads every region in range and
// nothing more.
//
// A region whose desired LOD coarsens (it slipped from shell i to
// shell i+1) is emitted twice in the same tick: an Unload dropping the
// finer mesh, then a Load at the coarser LOD. A region whose desired
// LOD refines only needs the Load; the reply replaces the coarse mesh.
func (t *Tracker) Tick(cur voxel.BlockPosition) ([]LoadEvent, []UnloadEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.prev
	first := !t.hasPrev
	if first {
		// Pretend the tracker arrived from far outside range; the
		// offset keeps every diff cube around prev disjoint from the
		// ones around cur, so everything in range is a candidate.
		far := 2*t.maxLoadDistance + 1
		prev = voxel.BlockPosition{X: cur.X + far, Y: cur.Y + far, Z: cur.Z + far}
	}
	t.prev = cur
	t.hasPrev = true

	candidates := make(map[voxel.BlockPosition]struct{})
	collect := func(entered, left []voxel.BlockPosition) {
		for _, r := range entered {
			candidates[r] = struct{}{}
		}
		for _, r := range left {
			candidates[r] = struct{}{}
		}
	}
	for _, r := range t.thresholds {
		collect(CubeDiff(prev, cur, r))
	}
	collect(CubeDiff(prev, cur, t.maxLoadDistance))

	var loads []LoadEvent
	var unloads []UnloadEvent
	for region := range candidates {
		prevDist := voxel.ChebyshevDistance(region, prev)
		curDist := voxel.ChebyshevDistance(region, cur)
		// Nothing is resident before the first tick, however close a
		// candidate sits to the synthetic start position.
		inPrev := prevDist <= t.maxLoadDistance && !first
		inCur := curDist <= t.maxLoadDistance

		switch {
		case !inCur:
			if inPrev {
				unloads = append(unloads, UnloadEvent{Region: region})
			}
		case !inPrev:
			loads = append(loads, LoadEvent{Region: region, LOD: voxel.DesiredLOD(curDist, t.thresholds)})
		default:
			prevLOD := voxel.DesiredLOD(prevDist, t.thresholds)
			curLOD := voxel.DesiredLOD(curDist, t.thresholds)
			if curLOD == prevLOD {
				continue
			}
			if curLOD > prevLOD {
				unloads = append(unloads, UnloadEvent{Region: region})
			}
			loads = append(loads, LoadEvent{Region: region, LOD: curLOD})
		}
	}
	return loads, unloads
}
