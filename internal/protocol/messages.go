// Package protocol defines the wire messages Playform's client and
// server exchange and the framed transport they travel over.
package protocol

import (
	"encoding/gob"
	"math"

	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// ClientID names a connected client, minted by the server on Init.
type ClientID uuid.UUID

func (c ClientID) String() string { return uuid.UUID(c).String() }

// NewClientID mints a fresh, random ClientID.
func NewClientID() ClientID { return ClientID(uuid.New()) }

// PlayerID names a player entity. One player is created per leased
// client, so PlayerID shares ClientID's representation but is kept as
// a distinct type since server-local owners (mobs) never have a
// ClientID.
type PlayerID uuid.UUID

func (p PlayerID) String() string { return uuid.UUID(p).String() }

// NewPlayerID mints a fresh PlayerID.
func NewPlayerID() PlayerID { return PlayerID(uuid.New()) }

// MobID names a server-local mob entity.
type MobID uint64

// LoadReason records why a Voxels message was sent, so the client can
// tell an initial load apart from a brush-triggered re-mesh.
type LoadReason int8

const (
	ReasonLoad LoadReason = iota
	ReasonBrush
)

func (r LoadReason) String() string {
	if r == ReasonBrush {
		return "brush"
	}
	return "load"
}

// VoxelUpdate pairs a voxel sample with the bounds it occupies, the
// unit the Voxels message carries.
type VoxelUpdate struct {
	Bounds voxel.Bounds
	Voxel  voxel.Voxel
}

// ClientToServer is implemented by every message a client may send.
type ClientToServer interface{ isClientToServer() }

// Init announces a client connecting to url (the server's own
// address, echoed back for reconnect bookkeeping).
type Init struct{ URL string }

// Ping is a liveness probe the client sends, tagged with its id so
// the server can reply on the same logical connection.
type Ping struct{ ClientID ClientID }

// AddPlayer requests a player entity for an already-leased client.
type AddPlayer struct{ ClientID ClientID }

type StartJump struct{ PlayerID PlayerID }
type StopJump struct{ PlayerID PlayerID }

// Walk sets a player's horizontal movement intent.
type Walk struct {
	PlayerID  PlayerID
	Direction mgl32.Vec3
}

// RotatePlayer adjusts a player's look direction by a (yaw, pitch)
// delta.
type RotatePlayer struct {
	PlayerID PlayerID
	Rotation mgl32.Vec2
}

// RequestBlock is the surroundings tracker's Load signal reaching the
// wire: a client asking for a region at a LOD. A later request at a
// different LOD overwrites the client's earlier one for that region.
type RequestBlock struct {
	ClientID ClientID
	Region   voxel.BlockPosition
	LOD      voxel.LOD
}

// Quit tells the server this client is disconnecting cleanly.
type Quit struct{}

func (Init) isClientToServer()         {}
func (Ping) isClientToServer()         {}
func (AddPlayer) isClientToServer()    {}
func (StartJump) isClientToServer()    {}
func (StopJump) isClientToServer()     {}
func (Walk) isClientToServer()         {}
func (RotatePlayer) isClientToServer() {}
func (RequestBlock) isClientToServer() {}
func (Quit) isClientToServer()         {}

// ServerToClient is implemented by every message a server may send.
type ServerToClient interface{ isServerToClient() }

// LeaseID is the server's reply to Init: the ClientID the client must
// tag every subsequent message with.
type LeaseID struct{ ClientID ClientID }

// ServerPing is the server's reply to a client Ping.
type ServerPing struct{}

// PlayerAdded confirms a player entity was created at pos.
type PlayerAdded struct {
	PlayerID PlayerID
	Position mgl32.Vec3
}

type UpdatePlayer struct {
	PlayerID PlayerID
	Bounds   voxel.AABB
}

type UpdateMob struct {
	MobID  MobID
	Bounds voxel.AABB
}

// UpdateSun carries the fraction of a day cycle elapsed, in [0, 1).
type UpdateSun struct{ Fraction float32 }

// Voxels delivers a batch of voxel data for a region, with the
// originating request's timestamp (nanoseconds since an arbitrary
// epoch; nil for server-initiated pushes that weren't requested, e.g.
// brush-triggered re-meshes) and why it was sent.
type Voxels struct {
	RequestNS *int64
	Voxels    []VoxelUpdate
	Reason    LoadReason
}

func (LeaseID) isServerToClient()      {}
func (ServerPing) isServerToClient()   {}
func (PlayerAdded) isServerToClient()  {}
func (UpdatePlayer) isServerToClient() {}
func (UpdateMob) isServerToClient()    {}
func (UpdateSun) isServerToClient()    {}
func (Voxels) isServerToClient()       {}

func init() {
	gob.Register(Init{})
	gob.Register(Ping{})
	gob.Register(AddPlayer{})
	gob.Register(StartJump{})
	gob.Register(StopJump{})
	gob.Register(Walk{})
	gob.Register(RotatePlayer{})
	gob.Register(RequestBlock{})
	gob.Register(Quit{})

	gob.Register(LeaseID{})
	gob.Register(ServerPing{})
	gob.Register(PlayerAdded{})
	gob.Register(UpdatePlayer{})
	gob.Register(UpdateMob{})
	gob.Register(UpdateSun{})
	gob.Register(Voxels{})
}

// SunAngle converts a day-cycle fraction to an angle in radians.
func SunAngle(fraction float32) float32 {
	return fraction * 2 * math.Pi
}

// SunColor and SunAmbient implement the fragment-shader sun formula:
// color tracks the sun's angle around a warm-to-cool gradient, and
// ambient light never drops below a floor so the night side stays
// navigable.
func SunColor(angle float32) mgl32.Vec3 {
	cos64, sin64 := math.Cos(float64(angle)), math.Sin(float64(angle))
	cos, sin := float32(cos64), float32(sin64)
	abs := func(v float32) float32 {
		if v < 0 {
			return -v
		}
		return v
	}
	return mgl32.Vec3{abs(cos), (sin + 1) / 2, abs(sin*0.75 + 0.25)}
}

func SunAmbient(angle float32) float32 {
	sin := float32(math.Sin(float64(angle)))
	v := sin / 2
	if v < 0.4 {
		return 0.4
	}
	return v
}
