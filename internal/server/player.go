package server

import (
	"sync"

	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/surroundings"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// jumpAccel is the vertical impulse applied while jump is held.
const jumpAccel = 0.3

// Player is the server's minimal model of a connected player: enough
// state to drive movement and to act as a LOD-map owner via its block
// position.
type Player struct {
	mu sync.Mutex

	ID       protocol.PlayerID
	Client   protocol.ClientID
	Owner    OwnerID
	Body     PhysicsID
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Accel    mgl32.Vec3

	// Surroundings keeps terrain resident around the player
	// server-side, independent of what the player's client requests
	// over the wire: the server needs collision terrain near the
	// player even for a client that never sends RequestBlock.
	Surroundings *surroundings.Tracker

	lateralRotation  float32
	verticalRotation float32
	isJumping        bool
}

// NewPlayer returns a player at pos, owned by owner (its LOD-map
// identity), tracking its surroundings with tracker.
func NewPlayer(id protocol.PlayerID, client protocol.ClientID, owner OwnerID, pos mgl32.Vec3, tracker *surroundings.Tracker) *Player {
	return &Player{
		ID:           id,
		Client:       client,
		Owner:        owner,
		Body:         NextPhysicsID(),
		Position:     pos,
		Surroundings: tracker,
	}
}

// StartJump applies the jump impulse once, ignoring a repeated
// StartJump while already jumping.
func (p *Player) StartJump() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isJumping {
		return
	}
	p.isJumping = true
	p.Accel[1] += jumpAccel
}

// StopJump removes the jump impulse when the player releases jump,
// ignoring a StopJump while not jumping.
func (p *Player) StopJump() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isJumping {
		return
	}
	p.isJumping = false
	p.Accel[1] -= jumpAccel
}

// Walk sets the player's horizontal movement intent.
func (p *Player) Walk(direction mgl32.Vec3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Velocity = direction
}

// Rotate adjusts lateral (yaw) and vertical (pitch) look rotation by
// a delta.
func (p *Player) Rotate(delta mgl32.Vec2) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lateralRotation += delta.X()
	p.verticalRotation += delta.Y()
}

// Tick integrates velocity/acceleration over dt seconds, returning the
// new position.
func (p *Player) Tick(dt float32) mgl32.Vec3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Velocity = p.Velocity.Add(p.Accel.Mul(dt))
	p.Position = p.Position.Add(p.Velocity.Mul(dt))
	return p.Position
}

// Snapshot returns the player's current position and the block
// position it maps to, for the LOD map and for UpdatePlayer wire
// messages.
func (p *Player) Snapshot(unitSize float32) (pos mgl32.Vec3, block voxel.BlockPosition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos = p.Position
	b := voxel.Bounds{
		X:      int32(pos.X() / unitSize),
		Y:      int32(pos.Y() / unitSize),
		Z:      int32(pos.Z() / unitSize),
		LgSize: 0,
	}
	return pos, voxel.Containing(b)
}
