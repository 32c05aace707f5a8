package server

import (
	"testing"
	"time"

	"github.com/gekko3d/playform/internal/terrain"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGaia(t *testing.T) (*Gaia, func()) {
	store := terrain.NewStore(terrain.NewBiomeField(42), 1.0)
	// Brush candidates land at the same lg_size as the Load bounds
	// below so the two messages actually touch the same cell.
	store.MaxBrushLgSize = 0
	g := NewGaia(store, 16, nil, nil, nil)
	done := make(chan struct{})
	go g.Run(done)
	return g, func() { close(done) }
}

// A Brush enqueued before an overlapping Load is applied first, so
// the Load observes the mutated state.
func TestGaiaFIFOOrderingBrushBeforeLoad(t *testing.T) {
	g, stop := newTestGaia(t)
	defer stop()

	b := voxel.Bounds{X: 0, Y: 0, Z: 0, LgSize: 0}
	g.Enqueue(BrushMessage{Op: BrushOp{Center: [3]float32{0.5, 0.5, 0.5}, Radius: 2, Material: terrain.MaterialStone}})
	g.Enqueue(LoadMessage{Region: voxel.Containing(b), LOD: 0, Bounds: []voxel.Bounds{b}})

	select {
	case <-g.Changed():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for brush changes")
	}

	select {
	case loaded := <-g.Loaded():
		require.Len(t, loaded.Voxels, 1)
		assert.Equal(t, int16(terrain.MaterialStone), loaded.Voxels[0].Material, "load must observe the brush applied before it in the FIFO")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for load reply")
	}
}

func TestGaiaBacklogTracksOutstandingMessages(t *testing.T) {
	g, stop := newTestGaia(t)
	defer stop()

	b := voxel.Bounds{X: 1, Y: 0, Z: 0, LgSize: 0}
	g.Enqueue(LoadMessage{Region: voxel.Containing(b), LOD: 0, Bounds: []voxel.Bounds{b}})

	select {
	case <-g.Loaded():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for load reply")
	}

	assert.Equal(t, int64(0), g.Backlog())
}
