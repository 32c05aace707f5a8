package server

import (
	"sync"

	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// PhysicsID names a rigid body registered with Physics: a terrain
// collision shape, a player capsule, or a mob body.
type PhysicsID uint64

// Physics is the collision-broadphase collaborator the terrain loader
// and movement code register bodies with. It only does broadphase
// bucketing; callers own narrowphase shape tests.
type Physics interface {
	InsertTerrain(id PhysicsID, bounds voxel.AABB)
	RemoveTerrain(id PhysicsID)
	InsertMisc(id PhysicsID, bounds voxel.AABB)
	RemoveMisc(id PhysicsID)
	QueryAABB(bounds voxel.AABB) []PhysicsID
	QueryRadius(center mgl32.Vec3, radius float32) []PhysicsID
}

// SpatialHashGrid buckets AABBs by cell so broadphase queries only
// examine nearby bodies.
type SpatialHashGrid struct {
	mu       sync.Mutex
	cellSize float32
	cells    map[uint64][]PhysicsID
	bounds   map[PhysicsID]voxel.AABB
}

// NewSpatialHashGrid returns an empty grid with the given cell size.
func NewSpatialHashGrid(cellSize float32) *SpatialHashGrid {
	return &SpatialHashGrid{
		cellSize: cellSize,
		cells:    make(map[uint64][]PhysicsID),
		bounds:   make(map[PhysicsID]voxel.AABB),
	}
}

func (g *SpatialHashGrid) cellIndex(pos float32) int32 {
	return int32(pos / g.cellSize)
}

func (g *SpatialHashGrid) hashKey(x, y, z int32) uint64 {
	const p1, p2, p3 = 73856093, 19349663, 83492791
	return uint64(x*p1 ^ y*p2 ^ z*p3)
}

func (g *SpatialHashGrid) forEachCell(b voxel.AABB, f func(key uint64)) {
	minX, maxX := g.cellIndex(b.Min.X()), g.cellIndex(b.Max.X())
	minY, maxY := g.cellIndex(b.Min.Y()), g.cellIndex(b.Max.Y())
	minZ, maxZ := g.cellIndex(b.Min.Z()), g.cellIndex(b.Max.Z())
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				f(g.hashKey(x, y, z))
			}
		}
	}
}

// InsertTerrain registers a terrain collision body.
func (g *SpatialHashGrid) InsertTerrain(id PhysicsID, bounds voxel.AABB) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bounds[id] = bounds
	g.forEachCell(bounds, func(key uint64) {
		g.cells[key] = append(g.cells[key], id)
	})
}

// RemoveTerrain drops a previously-inserted body. Removing an id that
// was never inserted (or already removed) is a silent no-op.
func (g *SpatialHashGrid) RemoveTerrain(id PhysicsID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	bounds, ok := g.bounds[id]
	if !ok {
		return
	}
	delete(g.bounds, id)
	g.forEachCell(bounds, func(key uint64) {
		ids := g.cells[key]
		for i, other := range ids {
			if other == id {
				g.cells[key] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	})
}

// InsertMisc registers a non-terrain body (a player capsule, a mob).
// Misc bodies share the terrain buckets, so QueryAABB sees both; the
// split exists because terrain bodies churn in bulk on LOD changes
// while misc bodies move every tick.
func (g *SpatialHashGrid) InsertMisc(id PhysicsID, bounds voxel.AABB) {
	g.InsertTerrain(id, bounds)
}

// RemoveMisc drops a previously-inserted misc body.
func (g *SpatialHashGrid) RemoveMisc(id PhysicsID) {
	g.RemoveTerrain(id)
}

// QueryAABB returns every distinct body whose cell overlaps bounds.
func (g *SpatialHashGrid) QueryAABB(bounds voxel.AABB) []PhysicsID {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := make(map[PhysicsID]struct{})
	var out []PhysicsID
	g.forEachCell(bounds, func(key uint64) {
		for _, id := range g.cells[key] {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	})
	return out
}

// QueryRadius is a broadphase convenience over QueryAABB: it returns
// candidates whose cell overlaps the AABB of the query sphere,
// without filtering by exact distance (narrowphase is the caller's
// job).
func (g *SpatialHashGrid) QueryRadius(center mgl32.Vec3, radius float32) []PhysicsID {
	r := mgl32.Vec3{radius, radius, radius}
	return g.QueryAABB(voxel.AABB{Min: center.Sub(r), Max: center.Add(r)})
}
