package api

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/services/dedup"
	"github.com/Egham-7/adaptive-relay/internal/services/dispatcher"
	"github.com/Egham-7/adaptive-relay/internal/services/request"
	"github.com/Egham-7/adaptive-relay/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	// SecretTokenHeader carries the secret registered with setWebhook
	SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

	replyTimeout = 10 * time.Second
)

// Replier sends a dispatcher reply back to the originating chat
type Replier interface {
	SendMessage(ctx context.Context, chatID, replyTo int64, text string) error
}

// WebhookHandler receives Telegram updates and answers them synchronously
type WebhookHandler struct {
	secret      string
	timeout     time.Duration
	dispatcher  *dispatcher.Dispatcher
	replier     Replier
	dedup       *dedup.Store
	requestSvc  *request.Service
	responseSvc *response.Service
}

// NewWebhookHandler creates the webhook handler. store may be nil to disable de-duplication.
func NewWebhookHandler(
	secret string,
	timeout time.Duration,
	d *dispatcher.Dispatcher,
	replier Replier,
	store *dedup.Store,
) *WebhookHandler {
	if d == nil {
		panic("NewWebhookHandler: dispatcher cannot be nil")
	}
	if replier == nil {
		panic("NewWebhookHandler: replier cannot be nil")
	}
	return &WebhookHandler{
		secret:      secret,
		timeout:     timeout,
		dispatcher:  d,
		replier:     replier,
		dedup:       store,
		requestSvc:  request.NewService(),
		responseSvc: response.NewService(),
	}
}

// HandleUpdate processes one update. Once the update parses it always answers
// 200 so Telegram does not redeliver it; failures are reported in the chat.
func (h *WebhookHandler) HandleUpdate(c *fiber.Ctx) error {
	reqID := h.requestSvc.GetRequestID(c)

	if !h.authorized(c.Get(SecretTokenHeader)) {
		fiberlog.Warnf("[%s] Rejected webhook call with invalid secret token from %s", reqID, c.IP())
		return h.responseSvc.Unauthorized(c)
	}

	update, err := h.requestSvc.ParseUpdate(c)
	if err != nil {
		fiberlog.Warnf("[%s] %v", reqID, err)
		return h.responseSvc.BadRequest(c, "invalid update")
	}

	ctx := c.UserContext()
	if !h.dedup.FirstDelivery(ctx, update.UpdateID) {
		return h.responseSvc.Accepted(c, "duplicate")
	}

	in, ok := update.ToInbound(reqID)
	if !ok {
		fiberlog.Debugf("[%s] Update %d carries no text message", reqID, update.UpdateID)
		return h.responseSvc.Accepted(c, string(dispatcher.StateIgnored))
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	outcome := h.dispatcher.Dispatch(ctx, in)
	if outcome.State == dispatcher.StateAbandoned {
		// nothing was sent, so a redelivery must not be dropped
		h.dedup.Release(ctx, update.UpdateID)
	}
	if outcome.ShouldReply() {
		// the reply gets its own budget so a slow completion still gets answered
		replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
		defer cancel()
		if err := h.replier.SendMessage(replyCtx, in.ChatID, in.MessageID, outcome.Reply); err != nil {
			fiberlog.Errorf("[%s] Failed to deliver %s reply for %s: %v", reqID, outcome.State, outcome.Command, err)
		}
	}

	fiberlog.Infof("[%s] Update %d finished: %s", reqID, update.UpdateID, outcome.State)
	return h.responseSvc.Accepted(c, string(outcome.State))
}

func (h *WebhookHandler) authorized(token string) bool {
	if h.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
