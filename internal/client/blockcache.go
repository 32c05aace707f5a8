package client

import (
	"sync"

	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/voxel"
)

// RegionRecord is what the client remembers about one resident
// region: the mesh ids handed to the view (kept so RemoveTerrain can
// be issued symmetrically) and the LOD it was last meshed at.
type RegionRecord struct {
	MeshIDs []uint64
	LOD     voxel.LOD
}

// EdgeRegistry tracks which edges are currently resident at which
// lg_size, so the update-applicator can tell which seams need
// re-extraction when a neighboring voxel's LOD or content changes.
type EdgeRegistry struct {
	mu      sync.Mutex
	present map[voxel.Edge]struct{}
}

// NewEdgeRegistry returns an empty registry.
func NewEdgeRegistry() *EdgeRegistry {
	return &EdgeRegistry{present: make(map[voxel.Edge]struct{})}
}

// Invalidate drops edges from the registry; the caller is responsible
// for re-extracting and re-registering whatever replaces them.
func (r *EdgeRegistry) Invalidate(edges ...voxel.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range edges {
		delete(r.present, e)
	}
}

// Register marks edges as resident.
func (r *EdgeRegistry) Register(edges ...voxel.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range edges {
		r.present[e] = struct{}{}
	}
}

// Has reports whether e is currently registered.
func (r *EdgeRegistry) Has(e voxel.Edge) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.present[e]
	return ok
}

// Len reports how many edges are currently resident.
func (r *EdgeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.present)
}

// BlockCache is the client's local mirror of resident voxel data: per
// region it remembers (mesh ids, loaded LOD), per voxel bounds its
// sample, and every resident edge.
type BlockCache struct {
	mu sync.Mutex

	voxels  map[voxel.Bounds]voxel.Voxel
	regions map[voxel.BlockPosition]RegionRecord
	edges   *EdgeRegistry

	lgSampleSize []int16
	thresholds   []int32
}

// NewBlockCache returns an empty cache. lgSampleSize and thresholds
// are the same LOD tables the server uses, so CorrectLOD agrees on
// both ends.
func NewBlockCache(lgSampleSize []int16, thresholds []int32) *BlockCache {
	return &BlockCache{
		voxels:       make(map[voxel.Bounds]voxel.Voxel),
		regions:      make(map[voxel.BlockPosition]RegionRecord),
		edges:        NewEdgeRegistry(),
		lgSampleSize: lgSampleSize,
		thresholds:   thresholds,
	}
}

// Edges exposes the cache's edge registry, for tests and the view
// applicator.
func (c *BlockCache) Edges() *EdgeRegistry { return c.edges }

// RemoveBlockData drops a region's record entirely and every voxel
// bounds inside it, returning the mesh ids the view should drop. It
// is the client-side mirror of the server evicting a region's last
// owner.
func (c *BlockCache) RemoveBlockData(r voxel.BlockPosition) []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.regions[r]
	if !ok {
		return nil
	}
	delete(c.regions, r)
	for b := range c.voxels {
		if voxel.Containing(b) == r {
			delete(c.voxels, b)
		}
	}
	return rec.MeshIDs
}

// ApplyVoxels is the client's response to a Voxels wire message: every
// received sample is rescaled via CorrectLOD against the player's
// current block and stored under the corrected bounds, replacing the
// entry under its original bounds (entries at other lg_sizes that
// overlap the same space are left in place). For each corrected
// bounds, the three canonical edges starting at its low corner are
// LOD-corrected and invalidated; the other edges that voxel touches
// are not. Returns the set of edges invalidated.
func (c *BlockCache) ApplyVoxels(region voxel.BlockPosition, updates []protocol.VoxelUpdate, meshIDs []uint64, lod voxel.LOD, player voxel.BlockPosition) []voxel.Edge {
	c.mu.Lock()
	defer c.mu.Unlock()

	touched := make(map[voxel.Edge]struct{})
	for _, u := range updates {
		corrected := voxel.CorrectLOD(u.Bounds, player, c.lgSampleSize, c.thresholds)
		c.replace(u.Bounds, corrected, u.Voxel)
		for _, cb := range corrected {
			for _, e := range canonicalEdges(cb) {
				for _, ce := range e.CorrectLOD(player, c.lgSampleSize, c.thresholds) {
					touched[ce] = struct{}{}
				}
			}
		}
	}

	c.regions[region] = RegionRecord{MeshIDs: meshIDs, LOD: lod}

	out := make([]voxel.Edge, 0, len(touched))
	for e := range touched {
		out = append(out, e)
	}
	c.edges.Invalidate(out...)
	return out
}

// replace removes the cached entry stored under original itself, then
// stores v under every corrected bounds. Entries under other bounds
// that overlap original's space are not removed.
func (c *BlockCache) replace(original voxel.Bounds, corrected []voxel.Bounds, v voxel.Voxel) {
	delete(c.voxels, original)
	for _, cb := range corrected {
		c.voxels[cb] = v
	}
}

// Voxel returns the cached sample for b, if resident.
func (c *BlockCache) Voxel(b voxel.Bounds) (voxel.Voxel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.voxels[b]
	return v, ok
}

// Region returns a region's current record, if resident.
func (c *BlockCache) Region(r voxel.BlockPosition) (RegionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.regions[r]
	return rec, ok
}

// canonicalEdges returns the three per-axis edges at b's own
// low corner and lg_size, matching terrain.ExtractRegion's
// deduplication convention so client and server agree on edge
// identity.
func canonicalEdges(b voxel.Bounds) [3]voxel.Edge {
	low := [3]int32{b.X, b.Y, b.Z}
	return [3]voxel.Edge{
		{LowCorner: low, LgSize: b.LgSize, Direction: voxel.DirX},
		{LowCorner: low, LgSize: b.LgSize, Direction: voxel.DirY},
		{LowCorner: low, LgSize: b.LgSize, Direction: voxel.DirZ},
	}
}
