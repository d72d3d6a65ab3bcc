package builder

import (
	"github.com/Egham-7/adaptive-relay/internal/config"
	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Builder assembles a relay configuration in code instead of YAML
type Builder struct {
	cfg           *config.Config
	endpoints     []models.Endpoint
	commands      []models.CommandSpec
	middlewares   []fiber.Handler
	timeoutConfig *TimeoutConfig
}

func New() *Builder {
	return &Builder{
		cfg: &config.Config{
			Server: models.ServerConfig{
				Port:        "8080",
				Environment: "development",
				LogLevel:    "info",
			},
		},
		middlewares: []fiber.Handler{},
	}
}

// Build validates endpoints and commands and returns the finished configuration.
// It fails with the same *models.ConfigError values as the YAML loader.
func (b *Builder) Build() (*config.Config, error) {
	routing, err := config.NewResolvedConfig(b.endpoints, b.commands)
	if err != nil {
		return nil, err
	}

	cfg := *b.cfg
	if b.cfg.Redis != nil {
		redisCfg := *b.cfg.Redis
		cfg.Redis = &redisCfg
	}
	cfg.Routing = routing
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (b *Builder) GetMiddlewares() []fiber.Handler {
	return b.middlewares
}

func (b *Builder) GetTimeoutConfig() *TimeoutConfig {
	return b.timeoutConfig
}
