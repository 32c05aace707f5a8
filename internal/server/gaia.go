package server

import (
	"sync/atomic"

	"github.com/gekko3d/playform/internal/gekkolog"
	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/telemetry"
	"github.com/gekko3d/playform/internal/terrain"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// TerrainLoaded is Gaia's reply to a LoadMessage: a fully meshed
// region ready for TerrainLoader.InsertBlock and the wire.
type TerrainLoaded struct {
	RequestNS int64
	Region    voxel.BlockPosition
	LOD       voxel.LOD
	Bounds    []voxel.Bounds
	Voxels    []voxel.Voxel
	Mesh      terrain.Mesh
	Reason    protocol.LoadReason
}

// VoxelChanged is emitted once per touched cell during brush
// application, so clients can invalidate cached voxels and edges.
type VoxelChanged struct {
	Bounds voxel.Bounds
	Voxel  voxel.Voxel
}

// Gaia is the single-consumer background worker that materializes
// voxel data and meshes from the procedural field, and applies brush
// mutations. It drains a bounded FIFO on its own goroutine.
type Gaia struct {
	store *terrain.Store
	log   gekkolog.Logger
	tel   *telemetry.Collector
	save  func() error

	inbox   chan GaiaMessage
	backlog atomic.Int64
	loaded  chan TerrainLoaded
	changed chan []VoxelChanged
}

// NewGaia returns a Gaia worker over store with a FIFO of the given
// capacity. save is invoked on a SaveMessage (nil disables saving);
// running it on the worker makes a save a FIFO barrier, so it
// observes every mutation enqueued before it.
func NewGaia(store *terrain.Store, capacity int, log gekkolog.Logger, tel *telemetry.Collector, save func() error) *Gaia {
	if log == nil {
		log = gekkolog.NewNop()
	}
	return &Gaia{
		store:   store,
		log:     log,
		tel:     tel,
		save:    save,
		inbox:   make(chan GaiaMessage, capacity),
		loaded:  make(chan TerrainLoaded, capacity),
		changed: make(chan []VoxelChanged, capacity),
	}
}

// Enqueue posts msg to the FIFO. Ordering within the FIFO is strict:
// a Brush enqueued before an overlapping Load is applied first, so
// the Load observes the mutated state.
func (g *Gaia) Enqueue(msg GaiaMessage) {
	g.backlog.Add(1)
	g.inbox <- msg
}

// Loaded returns the channel TerrainLoaded replies arrive on.
func (g *Gaia) Loaded() <-chan TerrainLoaded { return g.loaded }

// Changed returns the channel VoxelChanged batches arrive on.
func (g *Gaia) Changed() <-chan []VoxelChanged { return g.changed }

// Backlog reports the FIFO's outstanding message count, sampled by
// the status/monitor goroutine once a second.
func (g *Gaia) Backlog() int64 { return g.backlog.Load() }

// Run drains the FIFO until a QuitMessage arrives or done is closed.
// It is meant to run on its own goroutine.
func (g *Gaia) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-g.inbox:
			g.backlog.Add(-1)
			if g.dispatch(msg) {
				return
			}
		}
	}
}

// dispatch handles one message, returning true iff it was a
// QuitMessage (the caller should stop draining).
func (g *Gaia) dispatch(msg GaiaMessage) bool {
	switch m := msg.(type) {
	case LoadMessage:
		g.handleLoad(m)
	case BrushMessage:
		g.handleBrush(m)
	case SaveMessage:
		if g.save != nil {
			if err := g.save(); err != nil {
				g.log.Errorf("gaia: save failed: %v", err)
			}
		}
	case QuitMessage:
		return true
	}
	return false
}

func (g *Gaia) handleLoad(m LoadMessage) {
	voxels := make([]voxel.Voxel, len(m.Bounds))
	for i, b := range m.Bounds {
		voxels[i] = g.store.Load(b)
	}
	mesh := terrain.ExtractRegion(g.store, m.Bounds)
	if g.tel != nil {
		g.tel.AddGenerated(int64(len(m.Bounds)))
	}
	g.loaded <- TerrainLoaded{
		RequestNS: m.RequestNS,
		Region:    m.Region,
		LOD:       m.LOD,
		Bounds:    m.Bounds,
		Voxels:    voxels,
		Mesh:      mesh,
		Reason:    m.Reason,
	}
}

func (g *Gaia) handleBrush(m BrushMessage) {
	aabb := m.Op.AABB()
	candidates := brushCandidates(aabb, g.store.UnitSize, g.store.MaxBrushLgSize)
	center := mgl32.Vec3{m.Op.Center[0], m.Op.Center[1], m.Op.Center[2]}
	edit := terrain.SphereBrush(center, m.Op.Radius, m.Op.Material, g.store.UnitSize)
	changes := g.store.Brush(candidates, edit)
	if len(changes) == 0 {
		return
	}
	out := make([]VoxelChanged, len(changes))
	for i, c := range changes {
		out[i] = VoxelChanged{Bounds: c.Bounds, Voxel: c.Voxel}
	}
	if g.tel != nil {
		g.tel.AddBrushedCells(int64(len(out)))
	}
	g.changed <- out
}

// brushCandidates enumerates every bounds cell at maxLgSize that
// intersects aabb, the depth cap below which a brush never
// materializes new cells.
func brushCandidates(aabb voxel.AABB, unitSize float32, maxLgSize int16) []voxel.Bounds {
	scale := unitSize * float32(int64(1)<<uint(maxLgSize))
	lo := [3]int32{
		int32(floorDiv(aabb.Min.X(), scale)),
		int32(floorDiv(aabb.Min.Y(), scale)),
		int32(floorDiv(aabb.Min.Z(), scale)),
	}
	hi := [3]int32{
		int32(floorDiv(aabb.Max.X(), scale)),
		int32(floorDiv(aabb.Max.Y(), scale)),
		int32(floorDiv(aabb.Max.Z(), scale)),
	}
	var out []voxel.Bounds
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				out = append(out, voxel.Bounds{X: x, Y: y, Z: z, LgSize: maxLgSize})
			}
		}
	}
	return out
}

func floorDiv(v, scale float32) float32 {
	q := v / scale
	f := float32(int32(q))
	if f > q {
		f--
	}
	return f
}
