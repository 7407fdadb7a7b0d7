package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override environment
	port := flag.String("port", cfg.Server.Port, "Server port")
	host := flag.String("host", cfg.Server.Host, "Server host")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (colored logs, debug level)")
	knowledge := flag.String("knowledge", cfg.Knowledge.Path, "Catalogue file or directory merged over the built-in catalogue")
	snapshots := flag.String("snapshots", cfg.Storage.SnapshotDir, "Session snapshot directory (empty disables snapshots)")
	collab := flag.String("collaborator", cfg.Collaborator.Mode, "Collaborator mode: direct or remote")
	collabURL := flag.String("collaborator-url", cfg.Collaborator.URL, "Remote collaborator base URL")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Logging.Development = *dev
	if *dev {
		cfg.Logging.Level = "debug"
	}
	cfg.Knowledge.Path = *knowledge
	cfg.Storage.SnapshotDir = *snapshots
	cfg.Collaborator.Mode = *collab
	cfg.Collaborator.URL = *collabURL
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
		_ = srv.Close()
		os.Exit(1)
	}
	if err := srv.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
