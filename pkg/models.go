package pkg

import "github.com/Egham-7/adaptive-relay/internal/models"

type (
	ServerConfig      = models.ServerConfig
	TelegramConfig    = models.TelegramConfig
	ClientConfig      = models.ClientConfig
	DispatchConfig    = models.DispatchConfig
	RedisConfig       = models.RedisConfig
	Endpoint          = models.Endpoint
	ProviderKind      = models.ProviderKind
	CommandSpec       = models.CommandSpec
	Params            = models.Params
	ParamValue        = models.ParamValue
	ConfigError       = models.ConfigError
	ClientError       = models.ClientError
	CompletionRequest = models.CompletionRequest
	CompletionResult  = models.CompletionResult
)

const (
	ProviderOpenAI    = models.ProviderOpenAI
	ProviderAnthropic = models.ProviderAnthropic
)

var (
	FloatParam  = models.FloatParam
	IntParam    = models.IntParam
	StringParam = models.StringParam
	BoolParam   = models.BoolParam
)
