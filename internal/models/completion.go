package models

// CompletionRequest is everything one upstream call needs
type CompletionRequest struct {
	EndpointID string
	APIKey     string
	BaseURL    string
	Provider   ProviderKind
	Model      string
	Parameters Params
	Message    string
}

// NewCompletionRequest merges a command's parameters with the user's message.
// The command's parameter mapping is the only parameter source.
func NewCompletionRequest(cmd CommandSpec, endpoint Endpoint, message string) CompletionRequest {
	return CompletionRequest{
		EndpointID: endpoint.ID,
		APIKey:     endpoint.APIKey,
		BaseURL:    endpoint.BaseURL,
		Provider:   endpoint.Provider,
		Model:      cmd.Model,
		Parameters: cmd.Parameters.Clone(),
		Message:    message,
	}
}

// CompletionResult is the success variant of an upstream call; failures are *ClientError
type CompletionResult struct {
	Text string
}
