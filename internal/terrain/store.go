package terrain

import (
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// Store is the world's terrain: a procedural field memoized behind a
// cache, marshaled into a sparse voxel tree on demand. Every tree
// access goes through the tree's single mutex: Load holds it while it
// generates a missing cell, and Brush takes it cell by cell, so a
// Brush is not atomic with respect to other callers.
type Store struct {
	field *FieldCache
	tree  *voxel.Tree

	// UnitSize is the world-space size of an lg_size-0 voxel.
	UnitSize float32

	// MaxBrushLgSize caps how coarse a cell a brush edit is allowed to
	// materialize. A policy knob rather than a constant; defaults to 3.
	MaxBrushLgSize int16
}

// NewStore returns a Store over field, backed by a fresh empty tree.
func NewStore(field Field, unitSize float32) *Store {
	return &Store{
		field:          NewFieldCache(field),
		tree:           voxel.NewTree(),
		UnitSize:       unitSize,
		MaxBrushLgSize: 3,
	}
}

// Tree exposes the underlying sparse store, for persistence.
func (s *Store) Tree() *voxel.Tree { return s.tree }

func (s *Store) center(b voxel.Bounds) mgl32.Vec3 {
	wb := b.WorldBounds(s.UnitSize)
	return wb.Center()
}

func (s *Store) generate(b voxel.Bounds) (voxel.Voxel, bool) {
	p := s.center(b)
	return voxel.Voxel{
		Density:  s.field.Density(p),
		Material: s.field.Material(p),
	}, true
}

// Load returns the voxel data for bounds, generating it from the
// field on first access and caching the result thereafter.
func (s *Store) Load(b voxel.Bounds) voxel.Voxel {
	v, _ := s.tree.GetOrCreate(b, s.generate)
	return v
}

// Brush applies an edit over every bounds cell in candidates,
// enforcing MaxBrushLgSize as the cap on how coarse a cell may be:
// candidates coarser than it are neither materialized nor edited. It
// returns the cells actually changed.
func (s *Store) Brush(candidates []voxel.Bounds, edit voxel.EditFunc) []voxel.Changed {
	gen := func(b voxel.Bounds) (voxel.Voxel, bool) {
		if b.LgSize > s.MaxBrushLgSize {
			return voxel.Voxel{}, false
		}
		return s.generate(b)
	}
	return s.tree.Brush(candidates, gen, s.MaxBrushLgSize, edit)
}

// SphereBrush returns an EditFunc that fills (material != MaterialAir)
// or carves (material == MaterialAir) a sphere centered at world-space
// center with the given radius. Voxels outside the sphere are
// returned unchanged.
func SphereBrush(center mgl32.Vec3, radius float32, material int16, unitSize float32) voxel.EditFunc {
	return func(bounds voxel.Bounds, v voxel.Voxel) (voxel.Voxel, bool) {
		wb := bounds.WorldBounds(unitSize)
		p := wb.Center()
		d := p.Sub(center).Len()
		if d > radius {
			return v, false
		}
		next := voxel.Voxel{Material: material}
		if material == MaterialAir {
			next.Density = 1
		} else {
			next.Density = -1
		}
		if next == v {
			return v, false
		}
		return next, true
	}
}
