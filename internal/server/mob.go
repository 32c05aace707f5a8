package server

import (
	"sync"

	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/surroundings"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// Mob is a server-local LOD-map owner that isn't a connected client:
// it pins collision terrain resident around itself as it moves.
type Mob struct {
	mu sync.Mutex

	ID       protocol.MobID
	Owner    OwnerID
	Body     PhysicsID
	Position mgl32.Vec3
	Velocity mgl32.Vec3

	// Surroundings keeps Placeholder terrain resident around the mob:
	// mobs only need collision bodies, never meshes, so every region
	// they pin loads at the Placeholder LOD.
	Surroundings *surroundings.Tracker
}

// NewMob returns a mob at pos, owned by owner.
func NewMob(id protocol.MobID, owner OwnerID, pos mgl32.Vec3, tracker *surroundings.Tracker) *Mob {
	return &Mob{ID: id, Owner: owner, Body: NextPhysicsID(), Position: pos, Surroundings: tracker}
}

// Tick integrates velocity over dt seconds.
func (m *Mob) Tick(dt float32) mgl32.Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Position = m.Position.Add(m.Velocity.Mul(dt))
	return m.Position
}

// Snapshot returns the mob's current position and block.
func (m *Mob) Snapshot(unitSize float32) (pos mgl32.Vec3, block voxel.BlockPosition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos = m.Position
	b := voxel.Bounds{
		X:      int32(pos.X() / unitSize),
		Y:      int32(pos.Y() / unitSize),
		Z:      int32(pos.Z() / unitSize),
		LgSize: 0,
	}
	return pos, voxel.Containing(b)
}

// Mobs is the server's registry of every live mob.
type Mobs struct {
	mu   sync.Mutex
	byID map[protocol.MobID]*Mob
}

// NewMobs returns an empty registry.
func NewMobs() *Mobs { return &Mobs{byID: make(map[protocol.MobID]*Mob)} }

// Spawn adds a mob to the registry.
func (m *Mobs) Spawn(mob *Mob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[mob.ID] = mob
}

// All returns every live mob, for the tick loop to iterate.
func (m *Mobs) All() []*Mob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Mob, 0, len(m.byID))
	for _, mob := range m.byID {
		out = append(out, mob)
	}
	return out
}
