// Command playform-client runs a headless client session: it connects
// to a playform-server, tracks a fixed position at the origin, and logs
// every view-sink call instead of rendering it.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gekko3d/playform/internal/client"
	"github.com/gekko3d/playform/internal/config"
	"github.com/gekko3d/playform/internal/gekkolog"
	"github.com/gekko3d/playform/internal/protocol"
	"github.com/gekko3d/playform/internal/voxel"
	"github.com/go-gl/mathgl/mgl32"
)

// loggingView is the ViewSink for a headless client: every call that
// would otherwise touch a renderer is logged instead.
type loggingView struct{ log gekkolog.Logger }

func (v loggingView) AddTerrain(meshID uint64, region voxel.BlockPosition) {
	v.log.Debugf("view: add terrain mesh %d for region %+v", meshID, region)
}
func (v loggingView) RemoveTerrain(meshID uint64) {
	v.log.Debugf("view: remove terrain mesh %d", meshID)
}
func (v loggingView) UpdatePlayer(id protocol.PlayerID, bounds voxel.AABB) {
	v.log.Debugf("view: update player %s", id)
}
func (v loggingView) UpdateMob(id protocol.MobID, bounds voxel.AABB) {
	v.log.Debugf("view: update mob %d", id)
}
func (v loggingView) UpdateSun(color mgl32.Vec3, ambient float32) {
	v.log.Debugf("view: sun color=%v ambient=%v", color, ambient)
}

func main() {
	configPath := flag.String("config", "", "YAML config file (empty = embedded defaults)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("playform-client: %v", err)
	}
	url := cfg.ListenURL
	if arg := flag.Arg(0); arg != "" {
		url = arg
	}

	logger := gekkolog.New("playform-client", *debug)

	conn, err := net.Dial("tcp", url)
	if err != nil {
		logger.Errorf("playform-client: dial %s: %v", url, err)
		os.Exit(1)
	}
	sock := protocol.NewConn(conn, logger)
	codec := protocol.Codec{Threshold: cfg.WireCompressionThresholdByte}

	maxLoadDistance := cfg.LODThresholds[len(cfg.LODThresholds)-1]
	c := client.New(sock, codec, logger, loggingView{log: logger}, cfg.LODThresholds, cfg.LGSampleSize, maxLoadDistance, cfg.UnitSize)

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Infof("playform-client: shutting down")
		cancel()
	}()

	if err := c.Connect(ctx, url); err != nil {
		logger.Errorf("playform-client: connect: %v", err)
		os.Exit(1)
	}
	logger.Infof("playform-client: connected to %s", url)
	c.Run(ctx, 50*time.Millisecond)
}
