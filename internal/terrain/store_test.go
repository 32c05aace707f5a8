package terrain

import (
	"testing"

	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constField struct {
	density  float32
	material int16
}

func (f constField) Density(p mgl32.Vec3) float32   { return f.density }
func (f constField) Normal(p mgl32.Vec3) mgl32.Vec3 { return mgl32.Vec3{0, 1, 0} }
func (f constField) Material(p mgl32.Vec3) int16    { return f.material }
func (f constField) HasNormal() bool                { return false }
func (f constField) HasMaterial() bool              { return true }

func TestStoreLoadCachesThroughTree(t *testing.T) {
	store := NewStore(constField{density: -1, material: MaterialStone}, 1.0)
	b := voxel.New(1, 2, 3, 0)

	v1 := store.Load(b)
	v2 := store.Load(b)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, store.Tree().Len())
}

// An identity brush leaves voxel values unchanged and reports no
// diff.
func TestStoreBrushIdentity(t *testing.T) {
	store := NewStore(constField{density: -1, material: MaterialDirt}, 1.0)
	candidates := []voxel.Bounds{voxel.New(0, 0, 0, 0), voxel.New(1, 0, 0, 0)}

	before := make([]voxel.Voxel, len(candidates))
	for i, b := range candidates {
		before[i] = store.Load(b)
	}

	identity := func(b voxel.Bounds, v voxel.Voxel) (voxel.Voxel, bool) { return v, false }
	changed := store.Brush(candidates, identity)
	assert.Empty(t, changed)

	for i, b := range candidates {
		assert.Equal(t, before[i], store.Load(b))
	}
}

// Brushing one region leaves an untouched neighbor's field values
// exactly as a fresh load would produce.
func TestStoreBrushLeavesNeighborUntouched(t *testing.T) {
	store := NewStore(constField{density: -1, material: MaterialGrass}, 1.0)
	touched := voxel.New(0, 0, 0, 0)
	neighbor := voxel.New(100, 0, 0, 0)

	preNeighbor := store.Load(neighbor)

	edit := SphereBrush(mgl32.Vec3{0.5, 0.5, 0.5}, 10, MaterialAir, 1.0)
	changed := store.Brush([]voxel.Bounds{touched}, edit)
	require.Len(t, changed, 1)
	assert.Equal(t, int16(MaterialAir), changed[0].Voxel.Material)

	assert.Equal(t, preNeighbor, store.Load(neighbor))
}

func TestStoreBrushCapsDepth(t *testing.T) {
	store := NewStore(constField{density: -1, material: MaterialStone}, 1.0)
	store.MaxBrushLgSize = 2

	coarse := voxel.New(0, 0, 0, 5)
	changed := store.Brush([]voxel.Bounds{coarse}, func(b voxel.Bounds, v voxel.Voxel) (voxel.Voxel, bool) {
		return voxel.Voxel{Material: MaterialAir, Density: 1}, true
	})
	assert.Empty(t, changed)
}
