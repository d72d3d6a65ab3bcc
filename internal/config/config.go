package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort              = "8080"
	defaultEnvironment       = "development"
	defaultLogLevel          = "info"
	defaultRequestTimeout    = 60 * time.Second
	defaultTelegramAPI       = "https://api.telegram.org"
	defaultMaxMessageLength  = 4096
	defaultClientTimeout     = 30 * time.Second
	defaultMaxResponseBytes  = 1 << 20
	defaultMaxErrorBodyBytes = 2048
	defaultRetryDelay        = 1 * time.Second
	defaultDedupTTL          = 10 * time.Minute
)

// Config represents the complete application configuration
type Config struct {
	Server   models.ServerConfig
	Telegram models.TelegramConfig
	Client   models.ClientConfig
	Dispatch models.DispatchConfig
	Redis    *models.RedisConfig

	// Routing is the immutable endpoint and command snapshot
	Routing *ResolvedConfig
}

// document is the raw YAML shape. Endpoints and commands stay as nodes so
// their document order survives decoding.
type document struct {
	Server       models.ServerConfig   `yaml:"server"`
	Telegram     models.TelegramConfig `yaml:"telegram"`
	Client       models.ClientConfig   `yaml:"client"`
	Dispatch     models.DispatchConfig `yaml:"dispatch"`
	Redis        *models.RedisConfig   `yaml:"redis,omitempty"`
	APIEndpoints yaml.Node             `yaml:"api_endpoints"`
	Commands     yaml.Node             `yaml:"commands"`
}

// LoadFromFile loads configuration from a YAML file with environment variable substitution
func LoadFromFile(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return nil, models.NewInvalidDocumentError("", "invalid config path: path traversal not allowed", nil)
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return nil, models.NewInvalidDocumentError("", "invalid config file: only .yaml and .yml files are allowed", nil)
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, models.NewInvalidDocumentError("", "failed to read config file "+cleanPath, err)
	}

	return Load(data)
}

// Load parses and validates a configuration document using the process environment
func Load(data []byte) (*Config, error) {
	return LoadWithResolver(data, NewEnvResolver())
}

// LoadWithResolver parses a document, resolves placeholders with r and
// validates the result. The first violation found is returned.
func LoadWithResolver(data []byte, r *EnvResolver) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, models.NewInvalidDocumentError("", "failed to parse YAML config", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, models.NewInvalidDocumentError("", "config document is empty", nil)
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, models.NewInvalidDocumentError("", "config document must be a mapping", nil)
	}

	if err := r.ResolveNode(&root); err != nil {
		return nil, err
	}

	var doc document
	if err := root.Decode(&doc); err != nil {
		return nil, models.NewInvalidDocumentError("", "failed to decode config", err)
	}

	endpoints, err := decodeEndpoints(&doc.APIEndpoints)
	if err != nil {
		return nil, err
	}
	commands, err := decodeCommands(&doc.Commands)
	if err != nil {
		return nil, err
	}

	routing, err := NewResolvedConfig(endpoints, commands)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:   doc.Server,
		Telegram: doc.Telegram,
		Client:   doc.Client,
		Dispatch: doc.Dispatch,
		Redis:    doc.Redis,
		Routing:  routing,
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// mappingPairs iterates a mapping node in document order, rejecting duplicate keys
func mappingPairs(node *yaml.Node, section string, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null") {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return models.NewInvalidDocumentError(section, "must be a mapping", nil)
	}

	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if _, dup := seen[key]; dup {
			return models.NewInvalidDocumentError(joinPath(section, key), "duplicate key", nil)
		}
		seen[key] = struct{}{}
		if err := fn(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func decodeEndpoints(node *yaml.Node) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint
	err := mappingPairs(node, "api_endpoints", func(id string, value *yaml.Node) error {
		var ep models.Endpoint
		if value.Kind != yaml.MappingNode {
			return models.NewInvalidDocumentError("api_endpoints."+id, "endpoint must be a mapping", nil)
		}
		if err := value.Decode(&ep); err != nil {
			return models.NewInvalidDocumentError("api_endpoints."+id, "invalid endpoint", err)
		}
		ep.ID = id
		endpoints = append(endpoints, ep)
		return nil
	})
	return endpoints, err
}

func decodeCommands(node *yaml.Node) ([]models.CommandSpec, error) {
	var commands []models.CommandSpec
	err := mappingPairs(node, "commands", func(token string, value *yaml.Node) error {
		var cmd models.CommandSpec
		if value.Kind != yaml.MappingNode {
			return models.NewInvalidDocumentError("commands."+token, "command must be a mapping", nil)
		}
		if err := value.Decode(&cmd); err != nil {
			return models.NewInvalidDocumentError("commands."+token, "invalid command", err)
		}
		cmd.Command = token
		if cmd.Parameters == nil {
			cmd.Parameters = models.Params{}
		}
		commands = append(commands, cmd)
		return nil
	})
	return commands, err
}

// LoadEnvFiles loads environment variables from .env files in order of precedence.
// godotenv never overrides variables that are already set, so the first file wins.
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fiberlog.Infof("Loaded environment variables from %s", envFile)
			} else {
				fiberlog.Warnf("Failed to load %s: %v", envFile, err)
			}
		}
	}
}

// ApplyDefaults fills every unset ambient setting with its default
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = defaultPort
	}
	if c.Server.Environment == "" {
		c.Server.Environment = defaultEnvironment
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaultLogLevel
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}

	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultTelegramAPI
	}
	if c.Telegram.MaxMessageLength <= 0 {
		c.Telegram.MaxMessageLength = defaultMaxMessageLength
	}
	c.Telegram.BotUsername = strings.TrimPrefix(c.Telegram.BotUsername, "@")

	if c.Client.Timeout <= 0 {
		c.Client.Timeout = defaultClientTimeout
	}
	if c.Client.MaxResponseBytes <= 0 {
		c.Client.MaxResponseBytes = defaultMaxResponseBytes
	}
	if c.Client.MaxErrorBodyBytes <= 0 {
		c.Client.MaxErrorBodyBytes = defaultMaxErrorBodyBytes
	}

	if c.Dispatch.MaxRetries < 0 {
		c.Dispatch.MaxRetries = 0
	}
	if c.Dispatch.RetryDelay <= 0 {
		c.Dispatch.RetryDelay = defaultRetryDelay
	}

	if c.Redis != nil && c.Redis.DedupTTL <= 0 {
		c.Redis.DedupTTL = defaultDedupTTL
	}
}

// GetNormalizedLogLevel returns the log level in lowercase for consistent comparison
func (c *Config) GetNormalizedLogLevel() string {
	return strings.ToLower(c.Server.LogLevel)
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// RedisEnabled reports whether update de-duplication is configured
func (c *Config) RedisEnabled() bool {
	return c.Redis != nil && c.Redis.URL != ""
}

// WebhookPath is the route Telegram posts updates to.
// It embeds the secret when one is set, otherwise the bot token.
func (c *Config) WebhookPath() string {
	if c.Telegram.WebhookSecret != "" {
		return "/webhook/" + c.Telegram.WebhookSecret
	}
	return "/webhook/" + c.Telegram.BotToken
}

// WebhookURL is the public URL registered with Telegram, empty when no base URL is configured
func (c *Config) WebhookURL() string {
	if c.Telegram.WebhookBaseURL == "" {
		return ""
	}
	return strings.TrimRight(c.Telegram.WebhookBaseURL, "/") + c.WebhookPath()
}

// Validate checks if all values required to serve traffic are set
func (c *Config) Validate() error {
	var missing []string

	if c.Server.Port == "" {
		missing = append(missing, "server.port")
	}
	if c.Telegram.BotToken == "" {
		missing = append(missing, "telegram.bot_token")
	}
	if c.Routing == nil {
		missing = append(missing, "commands")
	}

	if len(missing) > 0 {
		return &ValidationError{MissingFields: missing}
	}

	return nil
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required configuration fields: %s", strings.Join(e.MissingFields, ", "))
}
