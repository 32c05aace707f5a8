// Package client is the client half of the terrain distribution
// protocol: a surroundings-tracker goroutine that requests regions as
// the player moves, and an update-applicator goroutine that folds
// server messages into the local BlockCache and view. The view/render
// thread itself sits behind the ViewSink interface.
package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gekko3d/playform/internal/gekkolog"
	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/surroundings"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// ViewSink is every call the update-applicator makes into the
// renderer. The interface keeps the applicator fully exercisable by
// tests without a renderer behind it.
type ViewSink interface {
	AddTerrain(meshID uint64, region voxel.BlockPosition)
	RemoveTerrain(meshID uint64)
	UpdatePlayer(id protocol.PlayerID, bounds voxel.AABB)
	UpdateMob(id protocol.MobID, bounds voxel.AABB)
	UpdateSun(color mgl32.Vec3, ambient float32)
}

// Client holds everything one connected session needs: the wire
// transport, the surroundings tracker driving Load/Unload requests,
// and the block cache the applicator keeps in sync with the server.
type Client struct {
	sock  protocol.Socket
	codec protocol.Codec
	log   gekkolog.Logger
	view  ViewSink

	tracker *surroundings.Tracker
	cache   *BlockCache

	unitSize     float32
	lgSampleSize []int16
	thresholds   []int32

	id       atomic.Value // protocol.ClientID
	playerID atomic.Value // protocol.PlayerID

	position atomic.Value // mgl32.Vec3
	nextMesh atomic.Uint64
}

// New returns a Client over sock, ready for Run.
func New(sock protocol.Socket, codec protocol.Codec, log gekkolog.Logger, view ViewSink, thresholds []int32, lgSampleSize []int16, maxLoadDistance int32, unitSize float32) *Client {
	if log == nil {
		log = gekkolog.NewNop()
	}
	c := &Client{
		sock:         sock,
		codec:        codec,
		log:          log,
		view:         view,
		tracker:      surroundings.NewTracker(thresholds, maxLoadDistance),
		cache:        NewBlockCache(lgSampleSize, thresholds),
		unitSize:     unitSize,
		lgSampleSize: lgSampleSize,
		thresholds:   thresholds,
	}
	c.position.Store(mgl32.Vec3{0, 0, 0})
	return c
}

// Connect sends Init and blocks (briefly, via poll) for the server's
// LeaseID reply.
func (c *Client) Connect(ctx context.Context, url string) error {
	if err := c.send(protocol.Init{URL: url}); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		res := c.sock.TryRead()
		if res.Status != protocol.Success {
			time.Sleep(time.Millisecond)
			continue
		}
		msg, err := c.codec.Decode(res.Data)
		if err != nil {
			continue
		}
		if lease, ok := msg.(protocol.LeaseID); ok {
			c.id.Store(lease.ClientID)
			return nil
		}
	}
}

func (c *Client) send(msg protocol.ClientToServer) error {
	frame, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	c.sock.Write(frame)
	return nil
}

func (c *Client) clientID() protocol.ClientID {
	id, _ := c.id.Load().(protocol.ClientID)
	return id
}

// SetPosition updates the player's tracked world position, read by
// the surroundings-tracker goroutine on its next tick.
func (c *Client) SetPosition(p mgl32.Vec3) { c.position.Store(p) }

func (c *Client) block() voxel.BlockPosition {
	p := c.position.Load().(mgl32.Vec3)
	b := voxel.Bounds{X: int32(p.X() / c.unitSize), Y: int32(p.Y() / c.unitSize), Z: int32(p.Z() / c.unitSize)}
	return voxel.Containing(b)
}

// Run starts the surroundings-tracker and update-applicator goroutines
// and blocks until ctx is canceled.
func (c *Client) Run(ctx context.Context, tickRate time.Duration) {
	done := make(chan struct{}, 2)
	go func() { c.surroundingsLoop(ctx, tickRate); done <- struct{}{} }()
	go func() { c.applyLoop(ctx); done <- struct{}{} }()
	<-ctx.Done()
	<-done
	<-done
	c.send(protocol.Quit{})
}

func (c *Client) surroundingsLoop(ctx context.Context, rate time.Duration) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := c.block()
			loads, unloads := c.tracker.Tick(cur)
			id := c.clientID()
			for _, l := range loads {
				c.send(protocol.RequestBlock{ClientID: id, Region: l.Region, LOD: l.LOD})
			}
			for _, u := range unloads {
				if ids := c.cache.RemoveBlockData(u.Region); ids != nil {
					for _, meshID := range ids {
						c.view.RemoveTerrain(meshID)
					}
				}
			}
		}
	}
}

func (c *Client) applyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		res := c.sock.TryRead()
		switch res.Status {
		case protocol.Success:
			msg, err := c.codec.Decode(res.Data)
			if err != nil {
				c.log.Warnf("client: dropping undecodable frame: %v", err)
				continue
			}
			s2c, ok := msg.(protocol.ServerToClient)
			if !ok {
				continue
			}
			c.apply(s2c)
		case protocol.Terminating:
			return
		case protocol.Empty:
			time.Sleep(time.Millisecond)
		}
	}
}

func (c *Client) apply(msg protocol.ServerToClient) {
	switch m := msg.(type) {
	case protocol.LeaseID:
		c.id.Store(m.ClientID)
	case protocol.ServerPing:
	case protocol.PlayerAdded:
		if c.playerID.Load() != nil {
			c.log.Warnf("client: player already added; ignoring PlayerAdded for %s", m.PlayerID)
			return
		}
		c.playerID.Store(m.PlayerID)
	case protocol.UpdatePlayer:
		c.view.UpdatePlayer(m.PlayerID, m.Bounds)
	case protocol.UpdateMob:
		c.view.UpdateMob(m.MobID, m.Bounds)
	case protocol.UpdateSun:
		angle := protocol.SunAngle(m.Fraction)
		c.view.UpdateSun(protocol.SunColor(angle), protocol.SunAmbient(angle))
	case protocol.Voxels:
		c.applyVoxels(m)
	}
}

func (c *Client) applyVoxels(m protocol.Voxels) {
	if len(m.Voxels) == 0 {
		return
	}
	byRegion := make(map[voxel.BlockPosition][]protocol.VoxelUpdate)
	for _, u := range m.Voxels {
		r := voxel.Containing(u.Bounds)
		byRegion[r] = append(byRegion[r], u)
	}
	player := c.block()
	for region, updates := range byRegion {
		lod := voxel.DesiredLODFor(region, player, c.thresholds)
		if prev, ok := c.cache.Region(region); ok {
			for _, id := range prev.MeshIDs {
				c.view.RemoveTerrain(id)
			}
		}
		meshID := c.nextMesh.Add(1)
		c.cache.ApplyVoxels(region, updates, []uint64{meshID}, lod, player)
		c.view.AddTerrain(meshID, region)
	}
}
