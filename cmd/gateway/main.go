// Package main runs the offline gateway: a request-mediating proxy with
// versioned cache domains, a background sync queue and a cross-instance
// broadcast channel.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/offline_gateway/internal/app/runtime"
)

func main() {
	configPath := flag.String("config", "", "Path to gateway config file")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("GATEWAY_CONFIG", *configPath)
	}

	application, err := runtime.NewApplication()
	if err != nil {
		log.Fatalf("Failed to initialise gateway: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutdown signal received")
		cancel()
	}()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Gateway stopped with error: %v", err)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown completed with error: %v", err)
	}
	log.Println("Gateway stopped")
}
