package completions

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/internal/services"
	"github.com/Egham-7/adaptive-relay/internal/utils/clientcache"

	"github.com/anthropics/anthropic-sdk-go"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
)

// Client issues exactly one completion call per invocation. Failures are
// always *models.ClientError. Implementations never retry.
type Client interface {
	Complete(ctx context.Context, req models.CompletionRequest) (models.CompletionResult, error)
}

// Service is the Client used in production. It keeps one SDK client per
// endpoint over a shared pooled http.Client; command parameters travel as
// per-request options so no call state outlives a call.
type Service struct {
	httpClient       *http.Client
	timeout          time.Duration
	maxErrorBody     int
	openaiClients    *clientcache.Cache[openai.Client]
	anthropicClients *clientcache.Cache[anthropic.Client]
}

var _ Client = (*Service)(nil)

// NewService creates a completion service bounded by cfg
func NewService(cfg models.ClientConfig) *Service {
	transportCfg := services.DefaultClientConfig("")
	if cfg.MaxResponseBytes > 0 {
		transportCfg.MaxResponseBytes = cfg.MaxResponseBytes
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = transportCfg.Timeout
	}
	maxErrorBody := cfg.MaxErrorBodyBytes
	if maxErrorBody <= 0 {
		maxErrorBody = transportCfg.MaxErrorBytes
	}

	return &Service{
		httpClient:       &http.Client{Transport: services.NewTransport(transportCfg)},
		timeout:          timeout,
		maxErrorBody:     maxErrorBody,
		openaiClients:    clientcache.New[openai.Client](),
		anthropicClients: clientcache.New[anthropic.Client](),
	}
}

// Complete sends req.Message as a single user-role message. The call is
// bounded by the configured timeout on top of whatever deadline ctx carries.
func (s *Service) Complete(ctx context.Context, req models.CompletionRequest) (models.CompletionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var (
		text string
		err  error
	)
	switch req.Provider {
	case models.ProviderAnthropic:
		text, err = s.completeAnthropic(ctx, req)
	default:
		text, err = s.completeOpenAI(ctx, req)
	}
	if err != nil {
		return models.CompletionResult{}, classify(req.EndpointID, err, s.maxErrorBody)
	}

	if strings.TrimSpace(text) == "" {
		return models.CompletionResult{}, models.NewMalformedResponseError(req.EndpointID, "response carried no text", nil)
	}

	fiberlog.Debugf("Completion from endpoint %s (model %s) took %v", req.EndpointID, req.Model, time.Since(start))
	return models.CompletionResult{Text: text}, nil
}

// Close drops cached SDK clients and releases idle upstream connections
func (s *Service) Close() {
	s.openaiClients.Reset()
	s.anthropicClients.Reset()
	s.httpClient.CloseIdleConnections()
}

func clientKey(req models.CompletionRequest) string {
	return req.EndpointID + "|" + req.BaseURL
}

// jsonSetKey escapes sjson path syntax so parameter keys are set verbatim
func jsonSetKey(key string) string {
	if !strings.ContainsAny(key, `.*?|#@\`) {
		return key
	}
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
