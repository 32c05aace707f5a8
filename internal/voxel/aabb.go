package voxel

import "github.com/go-gl/mathgl/mgl32"

// AABB is a world-space axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// WorldBounds returns the world-space AABB a lattice Bounds occupies,
// given the world size of a single lg_size-0 unit.
func (b Bounds) WorldBounds(unitSize float32) AABB {
	scale := unitSize * float32(int64(1)<<uint(max16(b.LgSize, 0)))
	if b.LgSize < 0 {
		scale = unitSize / float32(int64(1)<<uint(-b.LgSize))
	}
	min := mgl32.Vec3{float32(b.X) * scale, float32(b.Y) * scale, float32(b.Z) * scale}
	max := min.Add(mgl32.Vec3{scale, scale, scale})
	return AABB{Min: min, Max: max}
}

func max16(a, b int16) int16 {
	if a > b {
		return a
	}
	return b
}

// Intersects reports whether two AABBs overlap (touching edges count
// as overlap, matching how the spatial grid treats adjacent cells).
func (a AABB) Intersects(o AABB) bool {
	return a.Min.X() <= o.Max.X() && a.Max.X() >= o.Min.X() &&
		a.Min.Y() <= o.Max.Y() && a.Max.Y() >= o.Min.Y() &&
		a.Min.Z() <= o.Max.Z() && a.Max.Z() >= o.Min.Z()
}

// Center returns the AABB's midpoint.
func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Union returns the smallest AABB containing both a and o.
func (a AABB) Union(o AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{minf(a.Min.X(), o.Min.X()), minf(a.Min.Y(), o.Min.Y()), minf(a.Min.Z(), o.Min.Z())},
		Max: mgl32.Vec3{maxf(a.Max.X(), o.Max.X()), maxf(a.Max.Y(), o.Max.Y()), maxf(a.Max.Z(), o.Max.Z())},
	}
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
