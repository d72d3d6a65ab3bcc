package builder

import (
	"github.com/Egham-7/adaptive-relay/internal/config"
	"github.com/gofiber/fiber/v2"
)

// FromYAML seeds a builder from a config file so code can extend it
func FromYAML(path string, envFiles []string) (*Builder, error) {
	if len(envFiles) > 0 {
		config.LoadEnvFiles(envFiles)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	return builderFromConfig(cfg), nil
}

func builderFromConfig(cfg *config.Config) *Builder {
	b := &Builder{
		cfg:         cfg,
		middlewares: []fiber.Handler{},
	}
	if cfg.Routing != nil {
		b.endpoints = cfg.Routing.Endpoints()
		b.commands = cfg.Routing.Commands()
	}
	return b
}
