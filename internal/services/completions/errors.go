package completions

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/internal/services"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v2"
)

var errNoChoices = errors.New("response contained no completion choices")

// classify maps an SDK or transport error onto the client error taxonomy.
// Order matters: an upstream status wins over the transport errors it may wrap.
func classify(endpoint string, err error, maxBody int) *models.ClientError {
	var clientErr *models.ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return models.NewUpstreamRejectedError(endpoint, openaiErr.StatusCode,
			upstreamBody(openaiErr.RawJSON(), openaiErr.StatusCode, maxBody))
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return models.NewUpstreamRejectedError(endpoint, anthropicErr.StatusCode,
			upstreamBody(anthropicErr.RawJSON(), anthropicErr.StatusCode, maxBody))
	}

	if errors.Is(err, services.ErrBodyTooLarge) || errors.Is(err, errNoChoices) {
		return models.NewMalformedResponseError(endpoint, "unusable response body", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewClientTimeoutError(endpoint, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.NewClientTimeoutError(endpoint, err)
	}

	if errors.Is(err, context.Canceled) {
		return models.NewUnreachableError(endpoint, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return models.NewUnreachableError(endpoint, err)
	}

	return models.NewMalformedResponseError(endpoint, "unexpected response", err)
}

func upstreamBody(raw string, status, maxBody int) string {
	if raw == "" {
		raw = http.StatusText(status)
	}
	return models.TruncateBody(raw, maxBody)
}
