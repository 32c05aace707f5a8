package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/playform/internal/terrain"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A terrain built from seed 0 plus a finite load script survives an
// encode/decode round-trip, producing bit-identical voxel values for
// the same bounds.
func TestPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.dat")
	newField := func(seed int64) terrain.Field { return terrain.NewBiomeField(seed) }

	store := terrain.NewStore(newField(0), 1.0)
	bounds := voxel.RegionBounds(voxel.BlockPosition{X: 0, Y: 0, Z: 0}, 0)
	generated := make(map[voxel.Bounds]voxel.Voxel, len(bounds))
	for _, b := range bounds {
		generated[b] = store.Load(b)
	}

	require.NoError(t, SaveTerrain(path, 0, store.Tree()))

	restored, seed, ok := RestoreStore(path, newField, 1.0)
	require.True(t, ok)
	assert.Equal(t, int64(0), seed)

	for b, want := range generated {
		got, present := restored.Tree().Peek(b)
		require.True(t, present, "restored tree is missing %v", b)
		assert.Equal(t, want, got)
	}

	if diff := cmp.Diff(store.Tree().Snapshot(), restored.Tree().Snapshot()); diff != "" {
		t.Errorf("restored tree differs: %s", diff)
	}
}

// A corrupt terrain.dat is rejected, letting the caller fall back to
// fresh generation.
func TestLoadTerrainRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.dat")
	require.NoError(t, os.WriteFile(path, []byte("not a gzip stream"), 0o644))

	_, _, err := LoadTerrain(path)
	require.Error(t, err)

	_, _, ok := RestoreStore(path, func(int64) terrain.Field { return terrain.NewBiomeField(0) }, 1.0)
	assert.False(t, ok)
}

// A missing file is an error too, not a panic.
func TestLoadTerrainMissingFile(t *testing.T) {
	_, _, err := LoadTerrain(filepath.Join(t.TempDir(), "absent.dat"))
	require.Error(t, err)
}
