package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/internal/services"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	// ActionTyping shows the "typing..." indicator
	ActionTyping = "typing"

	truncationMarker = "…"
	callTimeout      = 10 * time.Second
)

// APIError is a Bot API failure. It never carries the bot token.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	Cause       error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("telegram %s failed with status %d: %s", e.Method, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram %s failed: %v", e.Method, e.Cause)
}

// Unwrap allows error unwrapping
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Sender delivers replies and bot settings through the Telegram Bot API
type Sender struct {
	client           *services.Client
	token            string
	maxMessageLength int
}

// NewSender creates a sender for the bot in cfg
func NewSender(cfg models.TelegramConfig) *Sender {
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}

	clientCfg := services.DefaultClientConfig(base + "/bot" + cfg.BotToken)
	clientCfg.MaxResponseBytes = 256 << 10
	clientCfg.MaxErrorBytes = 1024

	return &Sender{
		client:           services.NewClientWithConfig(clientCfg),
		token:            cfg.BotToken,
		maxMessageLength: cfg.MaxMessageLength,
	}
}

// SendMessage replies in chatID, quoting replyTo when it is non-zero.
// Text longer than the configured maximum is cut on a rune boundary.
func (s *Sender) SendMessage(ctx context.Context, chatID, replyTo int64, text string) error {
	return s.call(ctx, "sendMessage", models.TelegramSendMessage{
		ChatID:           chatID,
		Text:             Truncate(text, s.maxMessageLength),
		ReplyToMessageID: replyTo,
	}, nil)
}

// SendChatAction shows a transient status such as ActionTyping
func (s *Sender) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return s.call(ctx, "sendChatAction", models.TelegramChatAction{ChatID: chatID, Action: action}, nil)
}

// SetMyCommands publishes the command menu. Telegram expects names without the leading slash.
func (s *Sender) SetMyCommands(ctx context.Context, commands []models.CommandSpec) error {
	body := models.TelegramSetMyCommands{Commands: make([]models.TelegramBotCommand, 0, len(commands))}
	for _, cmd := range commands {
		description := cmd.Description
		if description == "" {
			description = "Trigger " + cmd.Command
		}
		body.Commands = append(body.Commands, models.TelegramBotCommand{
			Command:     strings.TrimPrefix(cmd.Command, "/"),
			Description: description,
		})
	}
	return s.call(ctx, "setMyCommands", body, nil)
}

// SetWebhook registers webhookURL; Telegram echoes secret in X-Telegram-Bot-Api-Secret-Token
func (s *Sender) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	return s.call(ctx, "setWebhook", models.TelegramSetWebhook{
		URL:            webhookURL,
		SecretToken:    secret,
		AllowedUpdates: []string{"message"},
	}, nil)
}

// DeleteWebhook removes the registered webhook
func (s *Sender) DeleteWebhook(ctx context.Context) error {
	return s.call(ctx, "deleteWebhook", models.TelegramDeleteWebhook{}, nil)
}

// GetMe returns the bot's own user
func (s *Sender) GetMe(ctx context.Context) (models.TelegramUser, error) {
	var me models.TelegramUser
	err := s.call(ctx, "getMe", nil, &me)
	return me, err
}

// Close releases idle connections
func (s *Sender) Close() {
	s.client.Close()
}

func (s *Sender) call(ctx context.Context, method string, body, result any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callTimeout)
		defer cancel()
	}

	var resp models.TelegramResponse
	var err error
	if body == nil {
		err = s.client.Get(ctx, "/"+method, &resp, nil)
	} else {
		err = s.client.Post(ctx, "/"+method, body, &resp, nil)
	}
	if err != nil {
		return s.wrap(method, err)
	}

	if !resp.OK {
		return &APIError{Method: method, StatusCode: resp.ErrorCode, Description: resp.Description}
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return &APIError{Method: method, Cause: fmt.Errorf("error decoding result: %w", err)}
		}
	}

	fiberlog.Debugf("Telegram %s succeeded", method)
	return nil
}

// wrap converts a transport error and scrubs the bot token from any URL it carries
func (s *Sender) wrap(method string, err error) error {
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		description := statusErr.Body
		var resp models.TelegramResponse
		if json.Unmarshal([]byte(statusErr.Body), &resp) == nil && resp.Description != "" {
			description = resp.Description
		}
		return &APIError{Method: method, StatusCode: statusErr.StatusCode, Description: description}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && s.token != "" {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, s.token, "<redacted>")
	}
	return &APIError{Method: method, Cause: err}
}

// Truncate caps text to limit UTF-16 code units, the unit Telegram counts, marking
// the cut. limit <= 0 disables it.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf16Len(text) <= limit {
		return text
	}
	budget := limit - utf16Len(truncationMarker)
	units := 0
	for i, r := range text {
		n := runeUnits(r)
		if units+n > budget {
			return text[:i] + truncationMarker
		}
		units += n
	}
	return text
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// invalid UTF-8 is sent as U+FFFD, a single unit
func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
