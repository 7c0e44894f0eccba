package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/Dev-derah/simple-content-ai/internal/core/pipeline"
	"github.com/Dev-derah/simple-content-ai/internal/core/version"
	"github.com/Dev-derah/simple-content-ai/internal/server"
)

func main() {
	port := flag.Int("port", 0, "HTTP listen port (default: 3000)")
	configPath := flag.String("config", "", "config file")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("contentai-server %s\n", version.Version)
		return
	}

	cfg := config.LoadOrDefault()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		config.ApplyEnv(loaded)
		cfg = loaded
	}

	// flag > config > default
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3000
	}
	if config.IsRunningInDocker() {
		log.Printf("[server] running in Docker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, err := pipeline.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	defer orch.Close()

	srv := server.NewServer(cfg, orch)

	go func() {
		<-ctx.Done()
		log.Println("[server] shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Printf("[server] shutdown: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Printf("[server] %v", err)
		os.Exit(1)
	}
}
