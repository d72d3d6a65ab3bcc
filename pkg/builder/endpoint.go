package builder

import "github.com/Egham-7/adaptive-relay/internal/models"

type EndpointBuilder struct {
	apiKey   string
	baseURL  string
	provider models.ProviderKind
}

func NewEndpointBuilder(apiKey string) *EndpointBuilder {
	return &EndpointBuilder{
		apiKey:   apiKey,
		provider: models.ProviderOpenAI,
	}
}

func (eb *EndpointBuilder) WithBaseURL(url string) *EndpointBuilder {
	eb.baseURL = url
	return eb
}

// WithProvider selects the wire protocol, openai by default
func (eb *EndpointBuilder) WithProvider(provider models.ProviderKind) *EndpointBuilder {
	eb.provider = provider
	return eb
}

func (eb *EndpointBuilder) Build() models.Endpoint {
	return models.Endpoint{
		APIKey:   eb.apiKey,
		BaseURL:  eb.baseURL,
		Provider: eb.provider,
	}
}

// AddEndpoint registers ep under id. Validation happens in Build.
func (b *Builder) AddEndpoint(id string, ep models.Endpoint) *Builder {
	ep.ID = id
	b.endpoints = append(b.endpoints, ep)
	return b
}

// AddOpenAICompatibleEndpoint is a shortcut for an OpenAI-compatible endpoint
func (b *Builder) AddOpenAICompatibleEndpoint(id, baseURL, apiKey string) *Builder {
	return b.AddEndpoint(id, NewEndpointBuilder(apiKey).WithBaseURL(baseURL).Build())
}

// AddAnthropicEndpoint is a shortcut for an Anthropic Messages endpoint
func (b *Builder) AddAnthropicEndpoint(id, baseURL, apiKey string) *Builder {
	return b.AddEndpoint(id, NewEndpointBuilder(apiKey).
		WithBaseURL(baseURL).
		WithProvider(models.ProviderAnthropic).
		Build())
}
