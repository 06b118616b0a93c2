package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mal "github.com/rphilander/mal/core"
)

func main() {
	configPath := flag.String("config", os.Getenv("MAL_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := mal.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := cfg.OpenStore()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	srv, err := mal.NewServer(cfg.SessionOptions(store))
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	if err := srv.Listen(cfg.Socket); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	// Handle shutdown signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("shutting down...")
		srv.Shutdown()
	}()

	db := cfg.DB
	if db == "" {
		db = "(memory)"
	}
	log.Printf("mal server listening (socket: %s, store: %s)", cfg.Socket, db)
	srv.Run()

	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
	os.Remove(cfg.Socket)
}
