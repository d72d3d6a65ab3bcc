package models

// ProviderKind selects the wire protocol used to reach an endpoint
type ProviderKind string

const (
	// ProviderOpenAI speaks the OpenAI-compatible /chat/completions protocol
	ProviderOpenAI ProviderKind = "openai"
	// ProviderAnthropic speaks the Anthropic Messages protocol
	ProviderAnthropic ProviderKind = "anthropic"
)

// Valid reports whether the kind is supported
func (p ProviderKind) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic:
		return true
	default:
		return false
	}
}

// Endpoint is a named upstream text-generation target.
// After config resolution APIKey holds no ${...} placeholder and BaseURL is non-empty.
type Endpoint struct {
	ID       string       `yaml:"-" json:"id"`
	APIKey   string       `yaml:"api_key" json:"-"`
	BaseURL  string       `yaml:"base_url" json:"base_url"`
	Provider ProviderKind `yaml:"provider,omitempty" json:"provider"`
}
