package voxel

// Direction names one of the three lattice axes an Edge runs along.
type Direction int8

const (
	DirX Direction = iota
	DirY
	DirZ
)

// Vec returns the unit lattice vector for d.
func (d Direction) Vec() [3]int32 {
	switch d {
	case DirX:
		return [3]int32{1, 0, 0}
	case DirY:
		return [3]int32{0, 1, 0}
	default:
		return [3]int32{0, 0, 1}
	}
}

// Perpendicular returns the two axes perpendicular to d, in a fixed
// cyclic order (X -> Y,Z ; Y -> Z,X ; Z -> X,Y).
func (d Direction) Perpendicular() (Direction, Direction) {
	switch d {
	case DirX:
		return DirY, DirZ
	case DirY:
		return DirZ, DirX
	default:
		return DirX, DirY
	}
}

// Edge identifies the 1-D lattice edge shared by up to four voxels:
// the segment one cell long (at lg_size) starting at low_corner and
// running along direction. Edges are
// what get split or merged as the client's LOD target changes, since a
// mesh seam has to agree with both of its neighboring voxels.
type Edge struct {
	LowCorner [3]int32
	LgSize    int16
	Direction Direction
}

// Neighbors returns the four voxel bounds (all at e's lg_size) that
// touch this edge.
func (e Edge) Neighbors() [4]Bounds {
	p1, p2 := e.Direction.Perpendicular()
	v1, v2 := p1.Vec(), p2.Vec()
	neg := func(v [3]int32) [3]int32 { return [3]int32{-v[0], -v[1], -v[2]} }
	v1, v2 = neg(v1), neg(v2)

	add := func(a, b [3]int32) [3]int32 {
		return [3]int32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
	}
	mk := func(p [3]int32) Bounds {
		return Bounds{X: p[0], Y: p[1], Z: p[2], LgSize: e.LgSize}
	}

	return [4]Bounds{
		mk(e.LowCorner),
		mk(add(e.LowCorner, v1)),
		mk(add(add(e.LowCorner, v1), v2)),
		mk(add(e.LowCorner, v2)),
	}
}

// mergeBy coarsens e by k steps (k >= 0), yielding the single parent
// edge that e is one of the 2^k collinear pieces of.
func (e Edge) mergeBy(k int16) Edge {
	if k == 0 {
		return e
	}
	ratio := uint(k)
	cpy := e
	cpy.LgSize = e.LgSize + k
	cpy.LowCorner = [3]int32{
		e.LowCorner[0] >> ratio,
		e.LowCorner[1] >> ratio,
		e.LowCorner[2] >> ratio,
	}
	return cpy
}

// splitBy refines e by k steps (k >= 0), yielding the 2^k collinear
// edges whose union is e, laid out along e's own direction.
func (e Edge) splitBy(k int16) []Edge {
	if k == 0 {
		return []Edge{e}
	}
	ratio := uint(k)
	base := [3]int32{
		e.LowCorner[0] << ratio,
		e.LowCorner[1] << ratio,
		e.LowCorner[2] << ratio,
	}
	dir := e.Direction.Vec()
	n := int32(1) << ratio
	out := make([]Edge, 0, n)
	for i := int32(0); i < n; i++ {
		c := e
		c.LgSize = e.LgSize - k
		c.LowCorner = [3]int32{
			base[0] + dir[0]*i,
			base[1] + dir[1]*i,
			base[2] + dir[2]*i,
		}
		out = append(out, c)
	}
	return out
}

// rescaleTo moves e to lg_size lgSize, coarsening or splitting as
// needed.
func (e Edge) rescaleTo(lgSize int16) []Edge {
	switch {
	case lgSize > e.LgSize:
		return []Edge{e.mergeBy(lgSize - e.LgSize)}
	case lgSize < e.LgSize:
		return e.splitBy(e.LgSize - lgSize)
	default:
		return []Edge{e}
	}
}

// CorrectLOD finds the LOD this edge should be rendered at (the
// minimum desired LOD across its four neighboring voxels; the finest
// requirement wins, so a seam never gets coarser than either side
// needs) and returns the edge(s) representing the same space at that
// LOD: one coarsened edge, or the 2^k edges a refine splits it into.
func (e Edge) CorrectLOD(player BlockPosition, lgSampleSize []int16, thresholds []int32) []Edge {
	lod := LOD(-1)
	for _, n := range e.Neighbors() {
		l := DesiredLODFor(Containing(n), player, thresholds)
		if lod == -1 || l < lod {
			lod = l
		}
	}
	return e.rescaleTo(lgSampleSize[lod])
}
