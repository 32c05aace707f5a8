// Package voxel implements the address-space algebra shared by the
// terrain store, the LOD map, and the client's block/edge caches:
// voxel bounds, block (region) positions, and level-of-detail indices.
package voxel

import "fmt"

// LOD is a strongly-typed index into LOD-indexed tables. 0 is the
// highest level of detail (finest voxels); larger indices are coarser.
// TODO: reverse this ordering so a bigger number means more detail.
type LOD int32

// BlockLgSize is the lg_size of a region (block): 2^3 = 8 units on a
// side.
const BlockLgSize = 3

// BlockWidth is a region's side length in lg_size-0 units.
const BlockWidth = 1 << BlockLgSize

// Bounds is an axis-aligned cube in the integer voxel lattice: the
// cube occupies [x*2^lg, (x+1)*2^lg) along each axis. Equality is
// structural, so Bounds is safe to use as a map key.
type Bounds struct {
	X, Y, Z int32
	LgSize  int16
}

// New constructs a Bounds value.
func New(x, y, z int32, lgSize int16) Bounds {
	return Bounds{X: x, Y: y, Z: z, LgSize: lgSize}
}

func (b Bounds) String() string {
	return fmt.Sprintf("Bounds(%d,%d,%d @ lg%d)", b.X, b.Y, b.Z, b.LgSize)
}

// Coarsen rescales b to a coarser (larger) lg_size by shifting k steps,
// yielding the single parent bounds that contains b. k must be >= 0.
func (b Bounds) Coarsen(k int16) Bounds {
	if k < 0 {
		panic("voxel: Coarsen requires k >= 0")
	}
	if k == 0 {
		return b
	}
	return Bounds{
		X:      b.X >> uint(k),
		Y:      b.Y >> uint(k),
		Z:      b.Z >> uint(k),
		LgSize: b.LgSize + k,
	}
}

// Refine rescales b to a finer (smaller) lg_size by shifting k steps,
// yielding the 2^(3k) children that exactly tile b's original space.
// k must be >= 0.
func (b Bounds) Refine(k int16) []Bounds {
	if k < 0 {
		panic("voxel: Refine requires k >= 0")
	}
	if k == 0 {
		return []Bounds{b}
	}
	n := int32(1) << uint(k)
	x0, y0, z0 := b.X<<uint(k), b.Y<<uint(k), b.Z<<uint(k)
	lg := b.LgSize - k
	children := make([]Bounds, 0, n*n*n)
	for dx := int32(0); dx < n; dx++ {
		for dy := int32(0); dy < n; dy++ {
			for dz := int32(0); dz < n; dz++ {
				children = append(children, Bounds{X: x0 + dx, Y: y0 + dy, Z: z0 + dz, LgSize: lg})
			}
		}
	}
	return children
}

// Rescale moves b to lg_size lgSize, coarsening or refining as needed.
// Coarsening returns a single-element slice; refining returns the full
// set of children; an unchanged lg_size returns b unchanged.
func (b Bounds) Rescale(lgSize int16) []Bounds {
	switch {
	case lgSize > b.LgSize:
		return []Bounds{b.Coarsen(lgSize - b.LgSize)}
	case lgSize < b.LgSize:
		return b.Refine(b.LgSize - lgSize)
	default:
		return []Bounds{b}
	}
}

// BlockPosition is a region (block) coordinate at the fixed block
// lg_size (8 units).
type BlockPosition struct {
	X, Y, Z int32
}

// Containing returns the region that contains b. A voxel never spans
// more than one region (voxel lg_size is always <= BlockLgSize), so
// this is well defined as a floor-division of b's minimum corner by
// the block size; the shift is an arithmetic (floor) shift in Go, so
// this is correct for negative coordinates too.
func Containing(b Bounds) BlockPosition {
	shift := int64(b.LgSize) - int64(BlockLgSize)
	return BlockPosition{
		X: shiftToBlock(b.X, shift),
		Y: shiftToBlock(b.Y, shift),
		Z: shiftToBlock(b.Z, shift),
	}
}

func shiftToBlock(v int32, shift int64) int32 {
	if shift >= 0 {
		return int32(int64(v) << uint(shift))
	}
	return int32(int64(v) >> uint(-shift))
}

// ChebyshevDistance returns the Chebyshev (L-infinity) distance
// between two block positions.
func ChebyshevDistance(a, b BlockPosition) int32 {
	dx := abs32(a.X - b.X)
	dy := abs32(a.Y - b.Y)
	dz := abs32(a.Z - b.Z)
	return max32(dx, max32(dy, dz))
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// DesiredLOD maps a Chebyshev distance to a LOD index by finding the
// first threshold (in ascending order, finest to coarsest) that is
// >= distance; distances beyond the last threshold map to the
// coarsest LOD (len(thresholds)).
func DesiredLOD(distance int32, thresholds []int32) LOD {
	lod := 0
	for lod < len(thresholds) && thresholds[lod] < distance {
		lod++
	}
	return LOD(lod)
}

// DesiredLODFor is a convenience combining ChebyshevDistance and
// DesiredLOD for a region relative to the player's current block.
func DesiredLODFor(region, player BlockPosition, thresholds []int32) LOD {
	return DesiredLOD(ChebyshevDistance(region, player), thresholds)
}

// RegionBounds returns every voxel bounds cell at lg_size lg that
// tiles region r. An lg coarser than BlockLgSize collapses to the
// single bounds containing r.
func RegionBounds(r BlockPosition, lg int16) []Bounds {
	if lg > BlockLgSize {
		return []Bounds{(Bounds{X: r.X, Y: r.Y, Z: r.Z, LgSize: lg}).Coarsen(lg - BlockLgSize)}
	}
	k := BlockLgSize - lg
	n := int32(1) << uint(k)
	x0, y0, z0 := r.X<<uint(k), r.Y<<uint(k), r.Z<<uint(k)
	out := make([]Bounds, 0, n*n*n)
	for dx := int32(0); dx < n; dx++ {
		for dy := int32(0); dy < n; dy++ {
			for dz := int32(0); dz < n; dz++ {
				out = append(out, Bounds{X: x0 + dx, Y: y0 + dy, Z: z0 + dz, LgSize: lg})
			}
		}
	}
	return out
}

// CorrectLOD returns the bounds (possibly several, possibly one) that
// represent the same space as b, rescaled to the lg_size the player's
// current position warrants. This lets a client reconcile voxels it
// already has against a moving LOD target: coarsening yields the
// single parent, refining yields every child.
func CorrectLOD(b Bounds, player BlockPosition, lgSampleSize []int16, thresholds []int32) []Bounds {
	region := Containing(b)
	lod := DesiredLODFor(region, player, thresholds)
	lgSize := lgSampleSize[lod]
	return b.Rescale(lgSize)
}
