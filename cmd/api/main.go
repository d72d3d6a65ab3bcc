package main

import (
	"errors"
	"log"
	"os"

	"github.com/Egham-7/adaptive-relay/internal/config"
	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/pkg/server"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	configPath := "config.yaml"
	if p := os.Getenv("RELAY_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			fiberlog.Fatalf("Invalid configuration: %v", cfgErr)
		}
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	relay := server.NewRelay(cfg)

	log.Println("Starting AdaptiveRelay server...")
	if err := relay.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
