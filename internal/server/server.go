// Package server is the authoritative half of Playform: terrain
// loading, physics broadphase, player/mob state, and the three
// long-lived goroutines that drive them (listener, world tick +
// client-update application + gaia dispatch, status/monitor).
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gekko3d/playform/internal/config"
	"github.com/gekko3d/playform/internal/gekkolog"
	"github.com/gekko3d/playform/internal/lodmap"
	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/surroundings"
	"github.com/gekko3d/playform/internal/telemetry"
	"github.com/gekko3d/playform/internal/terrain"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// Server owns every piece of authoritative state: terrain, physics,
// players, mobs, and the set of connected clients.
type Server struct {
	cfg   *config.Config
	log   gekkolog.Logger
	tel   *telemetry.Collector
	out   *telemetry.OutputManager
	codec protocol.Codec

	seed    int64
	store   *terrain.Store
	loader  *TerrainLoader
	gaia    *Gaia
	physics Physics
	mobs    *Mobs
	clients *Clients

	mu      sync.Mutex
	players map[protocol.PlayerID]*Player

	// sunFraction is only touched by the tick goroutine.
	sunFraction float32

	listener net.Listener
	updates  chan clientUpdate
}

type clientUpdate struct {
	from protocol.ClientID
	msg  protocol.ClientToServer
}

// New wires up a Server from cfg, restoring terrain.dat if present and
// decodable, falling back to fresh generation on any error.
func New(cfg *config.Config, log gekkolog.Logger, tel *telemetry.Collector, out *telemetry.OutputManager) *Server {
	if log == nil {
		log = gekkolog.NewNop()
	}
	newField := func(seed int64) terrain.Field { return terrain.NewBiomeField(seed) }

	var store *terrain.Store
	seed := cfg.Seed
	restored := false
	if cfg.PersistPath != "" {
		store, seed, restored = RestoreStore(cfg.PersistPath, newField, cfg.UnitSize)
	}
	if !restored {
		store = terrain.NewStore(newField(cfg.Seed), cfg.UnitSize)
		seed = cfg.Seed
	}

	physics := NewSpatialHashGrid(cfg.UnitSize * 8)
	s := &Server{
		cfg:     cfg,
		log:     log,
		tel:     tel,
		out:     out,
		codec:   protocol.Codec{Threshold: cfg.WireCompressionThresholdByte},
		seed:    seed,
		store:   store,
		loader:  NewTerrainLoader(physics, cfg.LGSampleSize, cfg.UnitSize),
		physics: physics,
		mobs:    NewMobs(),
		clients: NewClients(),
		players: make(map[protocol.PlayerID]*Player),
		updates: make(chan clientUpdate, 256),
	}
	save := func() error {
		if cfg.PersistPath == "" {
			return nil
		}
		return SaveTerrain(cfg.PersistPath, s.seed, store.Tree())
	}
	s.gaia = NewGaia(store, cfg.GaiaQueueCapacity, log, tel, save)
	s.spawnMobs()
	return s
}

// spawnMobs seeds the world with cfg.MobCount mobs placed in a row a
// couple of regions out from the origin, each its own LOD-map owner
// holding Placeholder terrain resident.
func (s *Server) spawnMobs() {
	spacing := float32(voxel.BlockWidth) * s.cfg.UnitSize * 2
	for i := 0; i < s.cfg.MobCount; i++ {
		offset := float32(i) - float32(s.cfg.MobCount-1)/2
		pos := mgl32.Vec3{offset * spacing, 64, spacing}
		tracker := surroundings.NewTracker(nil, s.cfg.MobLoadDistance)
		s.mobs.Spawn(NewMob(protocol.MobID(i), NextOwnerID(), pos, tracker))
	}
}

// Run starts every goroutine and blocks until ctx is canceled, then
// persists terrain and returns. Every goroutine observes ctx.Done()
// at most one loop iteration late.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.ListenURL != "" {
		l, err := net.Listen("tcp", s.cfg.ListenURL)
		if err != nil {
			return err
		}
		s.listener = l
		defer l.Close()
	}

	done := ctx.Done()
	gaiaDone := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); s.acceptLoop(ctx) }()
	go func() { defer wg.Done(); s.gaia.Run(gaiaDone) }()
	go func() { defer wg.Done(); s.tickLoop(ctx) }()
	go func() { defer wg.Done(); s.monitorLoop(ctx) }()

	<-done
	close(gaiaDone)
	if s.listener != nil {
		// Unblocks acceptLoop's pending Accept.
		s.listener.Close()
	}
	wg.Wait()

	if s.cfg.PersistPath != "" {
		if err := SaveTerrain(s.cfg.PersistPath, s.seed, s.store.Tree()); err != nil {
			s.log.Errorf("server: failed to persist terrain on shutdown: %v", err)
			return err
		}
	}
	return nil
}

// acceptLoop is the listener half of the network goroutine: it
// accepts connections and spawns one per-connection poll goroutine
// each, which decode frames and push them onto the shared updates
// channel the applicator half (tickLoop) drains.
func (s *Server) acceptLoop(ctx context.Context) {
	if s.listener == nil {
		return
	}
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.log.Warnf("server: accept failed: %v", err)
				return
			}
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	sock := protocol.NewConn(conn, s.log)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		res := sock.TryRead()
		switch res.Status {
		case protocol.Success:
			msg, err := s.codec.Decode(res.Data)
			if err != nil {
				s.log.Warnf("server: dropping undecodable frame: %v", err)
				continue
			}
			c2s, ok := msg.(protocol.ClientToServer)
			if !ok {
				s.log.Warnf("server: dropping frame of unexpected type %T", msg)
				continue
			}
			id := s.identify(c2s, sock)
			select {
			case s.updates <- clientUpdate{from: id, msg: c2s}:
			case <-ctx.Done():
				return
			}
		case protocol.Terminating:
			return
		case protocol.Empty:
			time.Sleep(time.Millisecond)
		}
	}
}

// identify resolves which ClientID a just-decoded message belongs to,
// minting a fresh one (and registering the socket) on Init.
func (s *Server) identify(msg protocol.ClientToServer, sock protocol.Socket) protocol.ClientID {
	switch m := msg.(type) {
	case protocol.Init:
		_ = m
		id := protocol.NewClientID()
		s.clients.Register(id, sock, NextOwnerID())
		return id
	case protocol.Ping:
		return m.ClientID
	case protocol.AddPlayer:
		return m.ClientID
	case protocol.RequestBlock:
		return m.ClientID
	default:
		return protocol.ClientID{}
	}
}

// tickLoop is the world-tick goroutine: it drains client updates,
// applies them, integrates players/mobs, and forwards Gaia replies to
// the terrain loader and wire.
func (s *Server) tickLoop(ctx context.Context) {
	rate := s.cfg.UpdateRateHz
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cu := <-s.updates:
			s.applyClientUpdate(cu)
		case loaded := <-s.gaia.Loaded():
			s.applyTerrainLoaded(loaded)
		case changed := <-s.gaia.Changed():
			s.applyVoxelChanged(changed)
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Server) applyClientUpdate(cu clientUpdate) {
	cl, known := s.clients.Get(cu.from)
	switch m := cu.msg.(type) {
	case protocol.Init:
		if known {
			cl.Send(s.codec, protocol.LeaseID{ClientID: cu.from})
		}
	case protocol.Ping:
		if known {
			cl.Send(s.codec, protocol.ServerPing{})
		}
	case protocol.AddPlayer:
		if !known {
			return
		}
		cl.mu.Lock()
		already := cl.player != nil
		if !already {
			maxDist := s.cfg.LODThresholds[len(s.cfg.LODThresholds)-1]
			tracker := surroundings.NewTracker(s.cfg.LODThresholds, maxDist)
			p := NewPlayer(protocol.NewPlayerID(), cu.from, cl.owner, mgl32.Vec3{0, 64, 0}, tracker)
			cl.player = p
			s.mu.Lock()
			s.players[p.ID] = p
			s.mu.Unlock()
		}
		player := cl.player
		cl.mu.Unlock()
		if already {
			// A client that already has a leased player asked for
			// another one; warn and ignore.
			s.log.Warnf("server: client %s already has a player", cu.from)
			return
		}
		cl.Send(s.codec, protocol.PlayerAdded{PlayerID: player.ID, Position: player.Position})
	case protocol.StartJump:
		if p, ok := s.player(m.PlayerID); ok {
			p.StartJump()
		}
	case protocol.StopJump:
		if p, ok := s.player(m.PlayerID); ok {
			p.StopJump()
		}
	case protocol.Walk:
		if p, ok := s.player(m.PlayerID); ok {
			p.Walk(m.Direction)
		}
	case protocol.RotatePlayer:
		if p, ok := s.player(m.PlayerID); ok {
			p.Rotate(m.Rotation)
		}
	case protocol.RequestBlock:
		if !known {
			return
		}
		requestNS := time.Now().UnixNano()
		s.loader.Load(m.Region, lodmap.LOD(m.LOD), cl.owner, requestNS, func(gm GaiaMessage) {
			s.gaia.Enqueue(gm)
		})
		if s.tel != nil {
			s.tel.AddLoad()
		}
	case protocol.Quit:
		if known {
			cl.mu.Lock()
			player := cl.player
			cl.mu.Unlock()
			if player != nil {
				s.mu.Lock()
				delete(s.players, player.ID)
				s.mu.Unlock()
				s.physics.RemoveMisc(player.Body)
			}
			released := s.loader.UnloadOwner(cl.owner)
			if s.tel != nil {
				for i := 0; i < released; i++ {
					s.tel.AddUnload()
				}
			}
		}
		s.clients.Remove(cu.from)
	}
}

func (s *Server) player(id protocol.PlayerID) (*Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	return p, ok
}

func (s *Server) applyTerrainLoaded(loaded TerrainLoaded) {
	ids := make([]PhysicsID, len(loaded.Bounds))
	aabbs := make([]voxel.AABB, len(loaded.Bounds))
	for i, b := range loaded.Bounds {
		ids[i] = NextPhysicsID()
		aabbs[i] = b.WorldBounds(s.cfg.UnitSize)
	}
	lod := loaded.LOD

	// Staleness is resolved per-owner inside InsertBlock; since a
	// region can have many owners, the region is registered for every
	// owner still requesting it at this LOD.
	owners := s.loader.OwnerRequests(loaded.Region)
	registered := false
	for owner, ownerLOD := range owners {
		if ownerLOD != lodmap.LOD(lod) {
			continue
		}
		stale := s.loader.InsertBlock(loaded.Region, owner, lod, ids, aabbs)
		if !stale {
			registered = true
		} else if s.tel != nil {
			s.tel.AddStaleDiscard()
		}
	}
	if !registered {
		return
	}

	updates := make([]protocol.VoxelUpdate, len(loaded.Bounds))
	for i, b := range loaded.Bounds {
		updates[i] = protocol.VoxelUpdate{Bounds: b, Voxel: loaded.Voxels[i]}
	}
	requestNS := loaded.RequestNS
	s.broadcast(protocol.Voxels{RequestNS: &requestNS, Voxels: updates, Reason: loaded.Reason})
}

func (s *Server) applyVoxelChanged(changed []VoxelChanged) {
	updates := make([]protocol.VoxelUpdate, len(changed))
	for i, c := range changed {
		updates[i] = protocol.VoxelUpdate{Bounds: c.Bounds, Voxel: c.Voxel}
	}
	s.broadcast(protocol.Voxels{Voxels: updates, Reason: protocol.ReasonBrush})
}

// tick integrates every player/mob, refreshes their physics bodies
// and resident surroundings, and broadcasts their current bounds plus
// the sun's position.
func (s *Server) tick() {
	s.mu.Lock()
	players := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	s.mu.Unlock()

	const dt = 1.0 / 60.0
	for _, p := range players {
		pos := p.Tick(dt)
		bounds := voxel.AABB{
			Min: pos.Sub(mgl32.Vec3{0.4, 0.9, 0.4}),
			Max: pos.Add(mgl32.Vec3{0.4, 0.9, 0.4}),
		}
		s.physics.RemoveMisc(p.Body)
		s.physics.InsertMisc(p.Body, bounds)
		_, block := p.Snapshot(s.cfg.UnitSize)
		s.tickOwner(p.Surroundings, p.Owner, block, false)
		s.broadcast(protocol.UpdatePlayer{PlayerID: p.ID, Bounds: bounds})
	}
	for _, m := range s.mobs.All() {
		pos := m.Tick(dt)
		bounds := voxel.AABB{
			Min: pos.Sub(mgl32.Vec3{0.4, 0.4, 0.4}),
			Max: pos.Add(mgl32.Vec3{0.4, 0.4, 0.4}),
		}
		s.physics.RemoveMisc(m.Body)
		s.physics.InsertMisc(m.Body, bounds)
		_, block := m.Snapshot(s.cfg.UnitSize)
		s.tickOwner(m.Surroundings, m.Owner, block, true)
		s.broadcast(protocol.UpdateMob{MobID: m.ID, Bounds: bounds})
	}

	s.tickSun(dt)
}

// tickOwner runs one server-local owner's surroundings diff against
// the terrain loader. Mobs pin every resident region at Placeholder
// (collision only); players load at the LOD their distance warrants.
func (s *Server) tickOwner(tracker *surroundings.Tracker, owner OwnerID, block voxel.BlockPosition, placeholderOnly bool) {
	if tracker == nil {
		return
	}
	loads, unloads := tracker.Tick(block)
	for _, l := range loads {
		lod := lodmap.LOD(l.LOD)
		if placeholderOnly {
			lod = lodmap.Placeholder
		}
		s.loader.Load(l.Region, lod, owner, time.Now().UnixNano(), func(gm GaiaMessage) {
			s.gaia.Enqueue(gm)
		})
		if s.tel != nil {
			s.tel.AddLoad()
		}
	}
	for _, u := range unloads {
		s.loader.Unload(u.Region, owner)
		if s.tel != nil {
			s.tel.AddUnload()
		}
	}
}

// tickSun advances the day cycle and broadcasts the new fraction.
func (s *Server) tickSun(dt float32) {
	day := s.cfg.DayLengthSeconds
	if day <= 0 {
		day = 600
	}
	s.sunFraction += dt / float32(day)
	for s.sunFraction >= 1 {
		s.sunFraction -= 1
	}
	s.broadcast(protocol.UpdateSun{Fraction: s.sunFraction})
}

func (s *Server) broadcast(msg protocol.ServerToClient) {
	for _, cl := range s.clients.All() {
		cl.Send(s.codec, msg)
	}
}

// monitorLoop is the status/monitor goroutine: it logs the Gaia
// backlog once a second and flushes telemetry.
func (s *Server) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			backlog := s.gaia.Backlog()
			if backlog > 0 {
				s.log.Warnf("Outstanding gaia updates: %d", backlog)
			}
			placeholder, full := s.loader.Stats()
			if s.tel != nil {
				s.tel.SetGaiaBacklog(backlog)
				s.tel.SetRegionCounts(int64(placeholder), int64(full))
				stats := s.tel.Flush(1.0)
				if s.log.DebugEnabled() {
					s.log.Debugf("server: window stats\n%s", spew.Sdump(stats))
				}
				if s.out != nil {
					if err := s.out.Write(stats); err != nil {
						s.log.Warnf("server: telemetry write failed: %v", err)
					}
				}
			}
		}
	}
}
