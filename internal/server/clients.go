package server

import (
	"sync"

	"github.com/gekko3d/playform/internal/protocol"
)

// client is everything the server keeps about one connected socket:
// its wire transport, its leased id, and (once AddPlayer succeeds) the
// player entity it drives.
type client struct {
	id     protocol.ClientID
	socket protocol.Socket
	owner  OwnerID

	mu     sync.Mutex
	player *Player
}

// Clients is the server's registry of connected clients, keyed by the
// ClientID leased at Init.
type Clients struct {
	mu   sync.Mutex
	byID map[protocol.ClientID]*client
}

// NewClients returns an empty registry.
func NewClients() *Clients { return &Clients{byID: make(map[protocol.ClientID]*client)} }

// Register leases id for socket and returns the new client.
func (c *Clients) Register(id protocol.ClientID, socket protocol.Socket, owner OwnerID) *client {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl := &client{id: id, socket: socket, owner: owner}
	c.byID[id] = cl
	return cl
}

// Get returns the client for id, if still connected.
func (c *Clients) Get(id protocol.ClientID) (*client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.byID[id]
	return cl, ok
}

// Remove drops id from the registry, e.g. on Quit or a dead socket.
func (c *Clients) Remove(id protocol.ClientID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// All returns a snapshot of every connected client, for broadcast
// messages (UpdateSun, UpdatePlayer, UpdateMob).
func (c *Clients) All() []*client {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*client, 0, len(c.byID))
	for _, cl := range c.byID {
		out = append(out, cl)
	}
	return out
}

// Send encodes and writes msg to the client's socket.
func (c *client) Send(codec protocol.Codec, msg protocol.ServerToClient) error {
	frame, err := codec.Encode(msg)
	if err != nil {
		return err
	}
	c.socket.Write(frame)
	return nil
}
