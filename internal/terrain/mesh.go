package terrain

import (
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// Triangle is a single mesh triangle in world space, material-tagged
// for the renderer's palette lookup.
type Triangle struct {
	A, B, C  mgl32.Vec3
	Material int16
}

// Extract walks every corner of bounds' 2x2x2 sample cube and emits
// two triangles per solid/empty transition face, tagged with the
// solid corner's material. It is a minimal marching-style extractor,
// not a dual contouring implementation; extraction is a pure function
// of its voxel input, so a richer extractor can replace it without
// touching the loader or the wire.
func Extract(s *Store, b voxel.Bounds) []Triangle {
	wb := b.WorldBounds(s.UnitSize)
	size := wb.Max.Sub(wb.Min)

	corner := func(dx, dy, dz float32) mgl32.Vec3 {
		return mgl32.Vec3{wb.Min.X() + dx*size.X(), wb.Min.Y() + dy*size.Y(), wb.Min.Z() + dz*size.Z()}
	}

	type sample struct {
		p   mgl32.Vec3
		v   voxel.Voxel
		pos mgl32.Vec3
	}
	offsets := [8][3]float32{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	samples := make([]sample, 8)
	for i, o := range offsets {
		p := corner(o[0], o[1], o[2])
		samples[i] = sample{p: p, v: voxel.Voxel{Density: s.field.Density(p), Material: s.field.Material(p)}, pos: p}
	}

	solid := func(i int) bool { return samples[i].v.Density < 0 }

	// Quad faces of the cube, each defined by 4 corner indices in
	// winding order; emit two triangles when the face separates solid
	// from empty.
	faces := [6][4]int{
		{0, 1, 2, 3}, // -Z
		{4, 5, 6, 7}, // +Z
		{0, 1, 5, 4}, // -Y
		{3, 2, 6, 7}, // +Y
		{0, 3, 7, 4}, // -X
		{1, 2, 6, 5}, // +X
	}

	var tris []Triangle
	for _, f := range faces {
		solidCount := 0
		for _, i := range f {
			if solid(i) {
				solidCount++
			}
		}
		if solidCount == 0 || solidCount == 4 {
			continue
		}
		mat := MaterialStone
		for _, i := range f {
			if solid(i) {
				mat = samples[i].v.Material
				break
			}
		}
		a, bb, c, d := samples[f[0]].pos, samples[f[1]].pos, samples[f[2]].pos, samples[f[3]].pos
		tris = append(tris,
			Triangle{A: a, B: bb, C: c, Material: mat},
			Triangle{A: a, B: c, C: d, Material: mat},
		)
	}
	return tris
}

// Mesh is the output of meshing a whole region: the triangles that
// make up its isosurface plus the canonical edges its voxels
// contribute. A client's EdgeRegistry keys vertex data off these
// edges so a seam can be invalidated independently of the triangles
// either side of it.
type Mesh struct {
	Triangles []Triangle
	Edges     []voxel.Edge
}

// canonicalEdges returns the three edges (one per axis) a voxel
// contributes at its low corner. Only the voxel whose low corner an
// edge starts at contributes it, so each edge is represented once
// even though up to four voxels share it; ExtractRegion additionally
// drops repeated Edge values (it is a plain comparable struct).
func canonicalEdges(b voxel.Bounds) [3]voxel.Edge {
	low := [3]int32{b.X, b.Y, b.Z}
	return [3]voxel.Edge{
		{LowCorner: low, LgSize: b.LgSize, Direction: voxel.DirX},
		{LowCorner: low, LgSize: b.LgSize, Direction: voxel.DirY},
		{LowCorner: low, LgSize: b.LgSize, Direction: voxel.DirZ},
	}
}

// ExtractRegion meshes every bounds in a region (all voxels at the
// region's effective LOD), returning the combined triangle set and
// the deduplicated edge set those voxels contribute.
func ExtractRegion(s *Store, region []voxel.Bounds) Mesh {
	var out Mesh
	seen := make(map[voxel.Edge]struct{})
	for _, b := range region {
		out.Triangles = append(out.Triangles, Extract(s, b)...)
		for _, e := range canonicalEdges(b) {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
