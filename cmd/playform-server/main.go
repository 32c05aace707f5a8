// Command playform-server runs the authoritative terrain server:
// listener, world tick, Gaia worker, and status/monitor threads.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gekko3d/playform/internal/config"
	"github.com/gekko3d/playform/internal/gekkolog"
	"github.com/gekko3d/playform/internal/server"
	"github.com/gekko3d/playform/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (empty = embedded defaults)")
	persistPath := flag.String("persist", "", "override persist_path from config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("playform-server: %v", err)
	}
	if url := flag.Arg(0); url != "" {
		cfg.ListenURL = url
	}
	if *persistPath != "" {
		cfg.PersistPath = *persistPath
	}

	logger := gekkolog.New("playform-server", *debug)

	tel := telemetry.NewCollector()
	out, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		logger.Errorf("playform-server: telemetry output disabled: %v", err)
	}
	defer out.Close()

	srv := server.New(cfg, logger, tel, out)

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Infof("playform-server: shutting down")
		cancel()
	}()

	logger.Infof("playform-server: listening on %s", cfg.ListenURL)
	if err := srv.Run(ctx); err != nil {
		logger.Errorf("playform-server: %v", err)
		os.Exit(1)
	}
}
