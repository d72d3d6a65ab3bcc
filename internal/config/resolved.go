package config

import (
	"net/url"
	"strings"

	"github.com/Egham-7/adaptive-relay/internal/models"
)

// reservedParams are request fields the completion client always owns
var reservedParams = map[string]struct{}{
	"model":    {},
	"messages": {},
}

// ResolvedConfig is the immutable routing snapshot: endpoints and commands.
// It is built once at startup and only ever read afterwards, so it is safe
// for unsynchronized concurrent use. Accessors hand out copies.
type ResolvedConfig struct {
	endpoints     map[string]models.Endpoint
	endpointOrder []string
	commands      map[string]models.CommandSpec
	commandOrder  []string
}

// NewResolvedConfig validates endpoints and commands and freezes them.
// Validation stops at the first violation.
func NewResolvedConfig(endpoints []models.Endpoint, commands []models.CommandSpec) (*ResolvedConfig, error) {
	rc := &ResolvedConfig{
		endpoints:     make(map[string]models.Endpoint, len(endpoints)),
		endpointOrder: make([]string, 0, len(endpoints)),
		commands:      make(map[string]models.CommandSpec, len(commands)),
		commandOrder:  make([]string, 0, len(commands)),
	}

	for _, ep := range endpoints {
		ep, err := normalizeEndpoint(ep)
		if err != nil {
			return nil, err
		}
		if _, dup := rc.endpoints[ep.ID]; dup {
			return nil, models.NewInvalidDocumentError("api_endpoints."+ep.ID, "duplicate endpoint id", nil)
		}
		rc.endpoints[ep.ID] = ep
		rc.endpointOrder = append(rc.endpointOrder, ep.ID)
	}

	for _, cmd := range commands {
		cmd, err := rc.normalizeCommand(cmd)
		if err != nil {
			return nil, err
		}
		rc.commands[cmd.Command] = cmd
		rc.commandOrder = append(rc.commandOrder, cmd.Command)
	}

	return rc, nil
}

func normalizeEndpoint(ep models.Endpoint) (models.Endpoint, error) {
	path := "api_endpoints." + ep.ID
	if strings.TrimSpace(ep.ID) == "" {
		return ep, models.NewInvalidDocumentError("api_endpoints", "endpoint id must not be empty", nil)
	}

	ep.BaseURL = strings.TrimSpace(ep.BaseURL)
	if ep.BaseURL == "" {
		return ep, models.NewInvalidDocumentError(path+".base_url", "base_url is required", nil)
	}
	u, err := url.Parse(ep.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ep, models.NewInvalidDocumentError(path+".base_url", "base_url must be an absolute http(s) URL", err)
	}

	if ContainsPlaceholder(ep.APIKey) {
		return ep, models.NewInvalidDocumentError(path+".api_key", "api_key still contains placeholder syntax", nil)
	}

	if ep.Provider == "" {
		ep.Provider = models.ProviderOpenAI
	}
	ep.Provider = models.ProviderKind(strings.ToLower(string(ep.Provider)))
	if !ep.Provider.Valid() {
		return ep, models.NewInvalidDocumentError(path+".provider", "unsupported provider "+string(ep.Provider), nil)
	}
	return ep, nil
}

func (rc *ResolvedConfig) normalizeCommand(cmd models.CommandSpec) (models.CommandSpec, error) {
	path := "commands." + cmd.Command
	if !strings.HasPrefix(cmd.Command, "/") || len(cmd.Command) < 2 {
		return cmd, models.NewInvalidDocumentError(path, "command must start with '/' followed by a name", nil)
	}
	if strings.ContainsAny(cmd.Command, " \t\r\n@") {
		return cmd, models.NewInvalidDocumentError(path, "command must not contain whitespace or '@'", nil)
	}
	if _, dup := rc.commands[cmd.Command]; dup {
		return cmd, models.NewInvalidDocumentError(path, "duplicate command", nil)
	}

	if strings.TrimSpace(cmd.Endpoint) == "" {
		return cmd, models.NewInvalidDocumentError(path+".api_endpoint", "api_endpoint is required", nil)
	}
	if _, ok := rc.endpoints[cmd.Endpoint]; !ok {
		return cmd, models.NewUnknownEndpointError(cmd.Command, cmd.Endpoint)
	}

	cmd.Model = strings.TrimSpace(cmd.Model)
	if cmd.Model == "" {
		return cmd, models.NewInvalidDocumentError(path+".model", "model is required", nil)
	}

	for _, kv := range cmd.Parameters {
		if _, reserved := reservedParams[kv.Key]; reserved {
			return cmd, models.NewInvalidDocumentError(path+".parameters."+kv.Key, "parameter is set by the relay and cannot be configured", nil)
		}
	}
	cmd.Parameters = cmd.Parameters.Clone()
	return cmd, nil
}

// Endpoint returns the endpoint with the given id
func (rc *ResolvedConfig) Endpoint(id string) (models.Endpoint, bool) {
	ep, ok := rc.endpoints[id]
	return ep, ok
}

// Endpoints returns every endpoint in document order
func (rc *ResolvedConfig) Endpoints() []models.Endpoint {
	out := make([]models.Endpoint, 0, len(rc.endpointOrder))
	for _, id := range rc.endpointOrder {
		out = append(out, rc.endpoints[id])
	}
	return out
}

// Command returns the command registered under the exact token
func (rc *ResolvedConfig) Command(token string) (models.CommandSpec, bool) {
	cmd, ok := rc.commands[token]
	if !ok {
		return models.CommandSpec{}, false
	}
	return cmd.Clone(), true
}

// Commands returns every command in document order
func (rc *ResolvedConfig) Commands() []models.CommandSpec {
	out := make([]models.CommandSpec, 0, len(rc.commandOrder))
	for _, token := range rc.commandOrder {
		out = append(out, rc.commands[token].Clone())
	}
	return out
}
