package server

import (
	"sync"

	"github.com/gekko3d/playform/internal/lodmap"
	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// GaiaMessage is implemented by every message the terrain loader (or
// a brush operation) enqueues for the Gaia worker.
type GaiaMessage interface{ isGaiaMessage() }

// LoadMessage asks Gaia to materialize and mesh every bounds in a
// region at its current effective LOD.
type LoadMessage struct {
	RequestNS int64
	Region    voxel.BlockPosition
	LOD       voxel.LOD
	Bounds    []voxel.Bounds
	Reason    protocol.LoadReason
}

// BrushMessage asks Gaia to apply a mutation over an AABB.
type BrushMessage struct {
	Op BrushOp
}

type SaveMessage struct{}
type QuitMessage struct{}

func (LoadMessage) isGaiaMessage()  {}
func (BrushMessage) isGaiaMessage() {}
func (SaveMessage) isGaiaMessage()  {}
func (QuitMessage) isGaiaMessage()  {}

// BrushOp is a localized terrain mutation: a sphere of material
// centered at a world-space point.
type BrushOp struct {
	Center   [3]float32
	Radius   float32
	Material int16
}

// AABB returns the world-space bounding box a brush touches.
func (b BrushOp) AABB() voxel.AABB {
	r := b.Radius
	center := mgl32.Vec3{b.Center[0], b.Center[1], b.Center[2]}
	radius := mgl32.Vec3{r, r, r}
	return voxel.AABB{Min: center.Sub(radius), Max: center.Add(radius)}
}

// InProgressTerrain tracks the single coarse placeholder physics body
// registered for a region whose voxel mesh hasn't arrived yet.
type InProgressTerrain struct {
	mu      sync.Mutex
	ids     map[voxel.BlockPosition]PhysicsID
	physics Physics
	unit    float32
}

func newInProgressTerrain(physics Physics, unitSize float32) *InProgressTerrain {
	return &InProgressTerrain{
		ids:     make(map[voxel.BlockPosition]PhysicsID),
		physics: physics,
		unit:    unitSize,
	}
}

// Insert registers a coarse placeholder AABB for r, if one isn't
// already registered.
func (ip *InProgressTerrain) Insert(r voxel.BlockPosition) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if _, ok := ip.ids[r]; ok {
		return
	}
	id := NextPhysicsID()
	bounds := voxel.Bounds{X: r.X, Y: r.Y, Z: r.Z, LgSize: voxel.BlockLgSize}.WorldBounds(ip.unit)
	ip.physics.InsertTerrain(id, bounds)
	ip.ids[r] = id
}

// Remove drops r's placeholder body, if any.
func (ip *InProgressTerrain) Remove(r voxel.BlockPosition) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	id, ok := ip.ids[r]
	if !ok {
		return
	}
	delete(ip.ids, r)
	ip.physics.RemoveTerrain(id)
}

// LoadedTerrain is the registered physics state and mesh for a region
// currently resident at Full detail.
type LoadedTerrain struct {
	PhysicsIDs []PhysicsID
	Bounds     []voxel.AABB
}

// TerrainLoader reference-counts per-region LOD requests across
// owners and schedules generation accordingly. A collision-only
// request is just lodmap.Placeholder, so one ordered LOD type covers
// both placeholder and fully-meshed residency.
type TerrainLoader struct {
	lodMap  *lodmap.Map[voxel.BlockPosition, OwnerID]
	inProg  *InProgressTerrain
	physics Physics

	mu     sync.Mutex
	loaded map[voxel.BlockPosition]LoadedTerrain

	lgSampleSize []int16
	unitSize     float32
}

// NewTerrainLoader returns an empty loader over physics.
func NewTerrainLoader(physics Physics, lgSampleSize []int16, unitSize float32) *TerrainLoader {
	return &TerrainLoader{
		lodMap:       lodmap.New[voxel.BlockPosition, OwnerID](),
		inProg:       newInProgressTerrain(physics, unitSize),
		physics:      physics,
		loaded:       make(map[voxel.BlockPosition]LoadedTerrain),
		lgSampleSize: lgSampleSize,
		unitSize:     unitSize,
	}
}

// Load records that owner wants region r at newL (voxel.LOD cast to a
// lodmap.LOD, or lodmap.Placeholder for a collision-only body). If
// the region's effective LOD doesn't move, it mutates the map and
// returns silently. Otherwise, a Placeholder transition registers a
// coarse AABB immediately; a real-LOD transition calls emit with a
// Gaia load message for the region's voxel bounds at the new
// effective LOD.
func (l *TerrainLoader) Load(r voxel.BlockPosition, newL lodmap.LOD, owner OwnerID, requestNS int64, emit func(GaiaMessage)) {
	_, change := l.lodMap.Insert(r, owner, newL)
	if change == nil {
		return
	}

	if change.Desired == nil {
		// Can't happen: an Insert always leaves at least one owner.
		return
	}

	if *change.Desired == lodmap.Placeholder {
		l.inProg.Insert(r)
		return
	}

	if change.Loaded != nil && *change.Loaded == lodmap.Placeholder {
		l.inProg.Remove(r)
	}

	lod := voxel.LOD(*change.Desired)
	lg := l.lgSampleSize[lod]
	emit(LoadMessage{
		RequestNS: requestNS,
		Region:    r,
		LOD:       lod,
		Bounds:    voxel.RegionBounds(r, lg),
		Reason:    protocol.ReasonLoad,
	})
}

// Unload drops owner's request for r. Whenever that moves the
// region's effective LOD, the placeholder or the Full physics bodies
// registered at the previous effective LOD are removed. When another
// owner's coarser request remains, no Gaia load is emitted for it.
func (l *TerrainLoader) Unload(r voxel.BlockPosition, owner OwnerID) {
	_, change := l.lodMap.Remove(r, owner)
	if change == nil {
		return
	}
	if change.Loaded == nil {
		return
	}
	switch *change.Loaded {
	case lodmap.Placeholder:
		l.inProg.Remove(r)
	default:
		l.mu.Lock()
		rec, ok := l.loaded[r]
		if ok {
			delete(l.loaded, r)
		}
		l.mu.Unlock()
		if ok {
			for _, id := range rec.PhysicsIDs {
				l.physics.RemoveTerrain(id)
			}
		}
	}
}

// InsertBlock is called on Gaia load completion. It transitions r to
// Full if (and only if) the LOD map still records owner wanting r at
// the block's LOD and no other owner wants finer; otherwise the reply
// is stale (owner unloaded, requested a different LOD, or was
// superseded by a finer request while generation was in flight) and
// is discarded without touching physics. The check is read-only: an
// owner whose request was removed by Unload must not be resurrected
// by its own late reply.
func (l *TerrainLoader) InsertBlock(r voxel.BlockPosition, owner OwnerID, lod voxel.LOD, physicsIDs []PhysicsID, bounds []voxel.AABB) (stale bool) {
	ownerL, all := l.lodMap.Get(r, owner)
	if ownerL == nil || *ownerL != lodmap.LOD(lod) {
		return true
	}
	for _, otherL := range all {
		if otherL < lodmap.LOD(lod) {
			return true
		}
	}

	// The reply replaces whatever was resident: the coarse placeholder
	// body, the previous Full registration, or nothing.
	l.inProg.Remove(r)
	l.mu.Lock()
	prev, had := l.loaded[r]
	l.mu.Unlock()
	if had {
		for _, id := range prev.PhysicsIDs {
			l.physics.RemoveTerrain(id)
		}
	}

	for i, id := range physicsIDs {
		l.physics.InsertTerrain(id, bounds[i])
	}

	l.mu.Lock()
	l.loaded[r] = LoadedTerrain{PhysicsIDs: physicsIDs, Bounds: bounds}
	l.mu.Unlock()
	return false
}

// UnloadOwner drops every request owner still holds, region by
// region, returning how many regions were released. Called when a
// client quits or a server-local owner despawns, so its LOD-map
// entries don't pin terrain forever.
func (l *TerrainLoader) UnloadOwner(owner OwnerID) int {
	regions := l.lodMap.RegionsOf(owner)
	for _, r := range regions {
		l.Unload(r, owner)
	}
	return len(regions)
}

// OwnerRequests returns every (owner, requested LOD) pair currently
// in force for r, for the status/monitor thread.
func (l *TerrainLoader) OwnerRequests(r voxel.BlockPosition) map[OwnerID]lodmap.LOD {
	_, all := l.lodMap.Get(r, OwnerID(0))
	return all
}

// Stats reports how many regions are currently Placeholder vs Full.
func (l *TerrainLoader) Stats() (placeholder, full int) {
	l.inProg.mu.Lock()
	placeholder = len(l.inProg.ids)
	l.inProg.mu.Unlock()

	l.mu.Lock()
	full = len(l.loaded)
	l.mu.Unlock()
	return placeholder, full
}
