package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxhall/voxhall/internal/netutil"
	"github.com/voxhall/voxhall/internal/presence"
	"github.com/voxhall/voxhall/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Loading configuration failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	server.SetConfig(cfg)

	backend := newBackend(cfg)
	defer func() {
		if err := backend.Close(); err != nil {
			log.Printf("Closing presence backend: %v", err)
		}
	}()

	relay := server.NewRelay(backend)
	go relay.Hub().Run()
	log.Println("Hub started and ready to manage WebSocket connections")

	mux := server.SetupRoutes(relay)
	httpServer := server.CreateServer(cfg.Server.Port, mux)

	printBanner(cfg)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := relay.Hub().Shutdown(10 * time.Second); err != nil {
		log.Printf("Hub shutdown: %v", err)
	}
}

// newBackend selects the presence backend from configuration. An unreachable
// Redis at startup is fatal; the memory backend never fails.
func newBackend(cfg *server.Config) presence.Backend {
	if !cfg.Redis.Enabled {
		log.Println("Using in-memory presence backend (single process only)")
		return presence.NewMemoryBackend()
	}

	backend := presence.NewRedisBackend(presence.RedisOptions{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := backend.Ping(ctx); err != nil {
		log.Fatalf("Cannot reach Redis at %s: %v", cfg.Redis.Addr, err)
	}

	log.Printf("Using Redis presence backend at %s", cfg.Redis.Addr)
	return backend
}

func printBanner(cfg *server.Config) {
	protocol := "http"
	if cfg.SSL.Enabled {
		protocol = "https"
	}
	ip := netutil.LocalIP()

	fmt.Println("VoxHall relay starting")
	fmt.Printf("  Local address: %s://%s%s\n", protocol, ip, cfg.Server.Port)
	fmt.Printf("  Test page:     %s://%s%s/test\n", protocol, ip, cfg.Server.Port)
}
