package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// biomeField is the default procedural density/material source: a
// handful of octaves of simplex noise define a rolling heightmap,
// voxels below the surface are solid, and the material id is picked
// by depth band. Its normal is derived from the density gradient by
// central difference.
type biomeField struct {
	noise      opensimplex.Noise32
	frequency  float32
	amplitude  float32
	octaves    int
	lacunarity float32
	gain       float32
}

// NewBiomeField returns the default Field for a world seed.
func NewBiomeField(seed int64) Field {
	return &biomeField{
		noise:      opensimplex.NewNormalized32(seed),
		frequency:  1.0 / 96.0,
		amplitude:  48,
		octaves:    4,
		lacunarity: 2.0,
		gain:       0.5,
	}
}

func (f *biomeField) heightAt(x, z float32) float32 {
	freq, amp := f.frequency, f.amplitude
	var h float32
	for o := 0; o < f.octaves; o++ {
		h += (f.noise.Eval2(x*freq, z*freq)*2 - 1) * amp
		freq *= f.lacunarity
		amp *= f.gain
	}
	return h
}

func (f *biomeField) Density(p mgl32.Vec3) float32 {
	surface := f.heightAt(p.X(), p.Z())
	return p.Y() - surface
}

func (f *biomeField) Normal(p mgl32.Vec3) mgl32.Vec3 {
	const eps = 0.5
	dx := f.Density(p.Add(mgl32.Vec3{eps, 0, 0})) - f.Density(p.Sub(mgl32.Vec3{eps, 0, 0}))
	dy := f.Density(p.Add(mgl32.Vec3{0, eps, 0})) - f.Density(p.Sub(mgl32.Vec3{0, eps, 0}))
	dz := f.Density(p.Add(mgl32.Vec3{0, 0, eps})) - f.Density(p.Sub(mgl32.Vec3{0, 0, eps}))
	n := mgl32.Vec3{dx, dy, dz}
	if n.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

func (f *biomeField) Material(p mgl32.Vec3) int16 {
	depth := f.heightAt(p.X(), p.Z()) - p.Y()
	switch {
	case depth < 1:
		return MaterialGrass
	case depth < 6:
		return MaterialDirt
	default:
		return MaterialStone
	}
}

func (f *biomeField) HasNormal() bool   { return true }
func (f *biomeField) HasMaterial() bool { return true }

// Material ids used by the default field.
const (
	MaterialAir int16 = iota
	MaterialGrass
	MaterialDirt
	MaterialStone
)
