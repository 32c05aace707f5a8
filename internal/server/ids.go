package server

import "sync/atomic"

// OwnerID names whoever holds a LOD-map request on a region: every
// connected client is one owner, and so is every server-local
// consumer (a player's server-side surroundings, a mob).
type OwnerID uint64

// idCounter is an atomic monotonic allocator; ids are handed out from
// multiple goroutines (per-connection readers, tick loop), so it stays
// lock-free.
type idCounter struct {
	next atomic.Uint64
}

func (c *idCounter) Next() uint64 {
	return c.next.Add(1) - 1
}

var (
	ownerIDs   idCounter
	physicsIDs idCounter
)

// NextOwnerID allocates a fresh OwnerID.
func NextOwnerID() OwnerID { return OwnerID(ownerIDs.Next()) }

// NextPhysicsID allocates a fresh PhysicsID.
func NextPhysicsID() PhysicsID { return PhysicsID(physicsIDs.Next()) }
