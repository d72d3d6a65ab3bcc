package models

import "time"

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string        `yaml:"port"`
	Environment    string        `yaml:"environment"`
	LogLevel       string        `yaml:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// TelegramConfig holds the chat transport settings
type TelegramConfig struct {
	BotToken         string `yaml:"bot_token"`
	APIBaseURL       string `yaml:"api_base_url"`
	WebhookBaseURL   string `yaml:"webhook_base_url"`
	WebhookSecret    string `yaml:"webhook_secret"`
	BotUsername      string `yaml:"bot_username"`
	MaxMessageLength int    `yaml:"max_message_length"`
}

// ClientConfig bounds every upstream completion call
type ClientConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxResponseBytes  int64         `yaml:"max_response_bytes"`
	MaxErrorBodyBytes int           `yaml:"max_error_body_bytes"`
}

// DispatchConfig holds the dispatcher retry policy
type DispatchConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// RedisConfig enables update de-duplication when URL is set
type RedisConfig struct {
	URL      string        `yaml:"url"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}
