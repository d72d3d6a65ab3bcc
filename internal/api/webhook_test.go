package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/config"
	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/internal/services/dedup"
	"github.com/Egham-7/adaptive-relay/internal/services/dispatcher"
	"github.com/Egham-7/adaptive-relay/internal/services/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cr3t"

type sentMessage struct {
	chatID, replyTo int64
	text            string
}

type fakeReplier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeReplier) SendMessage(_ context.Context, chatID, replyTo int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, replyTo: replyTo, text: text})
	return f.err
}

type stubClient struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (s *stubClient) Complete(context.Context, models.CompletionRequest) (models.CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return models.CompletionResult{}, s.err
	}
	return models.CompletionResult{Text: s.text}, nil
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	rc, err := config.NewResolvedConfig(
		[]models.Endpoint{{ID: "default_openai", APIKey: "sk-test", BaseURL: "https://api.openai.com/v1"}},
		[]models.CommandSpec{{Command: "/chat", Description: "General chat", Endpoint: "default_openai", Model: "gpt-3.5-turbo"}},
	)
	require.NoError(t, err)
	return registry.New(rc)
}

type testApp struct {
	app     *fiber.App
	client  *stubClient
	replier *fakeReplier
}

func newTestApp(t *testing.T, store *dedup.Store) *testApp {
	t.Helper()
	reg := newTestRegistry(t)
	client := &stubClient{text: "hi there"}
	replier := &fakeReplier{}

	d := dispatcher.New(reg, client, dispatcher.Options{BotUsername: "relay_bot"})
	webhook := NewWebhookHandler(testSecret, time.Second, d, replier, store)
	health := NewHealthHandler(reg, store)

	app := fiber.New()
	app.Post("/webhook/"+testSecret, webhook.HandleUpdate)
	app.Get("/health", health.HealthCheck)
	app.Get("/", health.Root)

	return &testApp{app: app, client: client, replier: replier}
}

func updateJSON(updateID int64, text string) string {
	body, _ := json.Marshal(models.TelegramUpdate{
		UpdateID: updateID,
		Message: &models.TelegramMessage{
			MessageID: 7,
			From:      &models.TelegramUser{ID: 1001},
			Chat:      models.TelegramChat{ID: 42, Type: "private"},
			Text:      text,
		},
	})
	return string(body)
}

func (a *testApp) post(t *testing.T, body, secret string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/"+testSecret, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretTokenHeader, secret)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestHandleUpdate_Replies(t *testing.T) {
	a := newTestApp(t, nil)

	status, body := a.post(t, updateJSON(1, "/chat hello"), testSecret)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "replied", body["state"])

	require.Len(t, a.replier.sent, 1)
	assert.Equal(t, sentMessage{chatID: 42, replyTo: 7, text: "hi there"}, a.replier.sent[0])
}

func TestHandleUpdate_RejectsBadSecret(t *testing.T) {
	a := newTestApp(t, nil)

	for _, secret := range []string{"", "wrong", testSecret + "x"} {
		status, _ := a.post(t, updateJSON(1, "/chat hello"), secret)
		assert.Equal(t, http.StatusUnauthorized, status, secret)
	}
	assert.Equal(t, 0, a.client.calls)
	assert.Empty(t, a.replier.sent)
}

func TestHandleUpdate_BadJSON(t *testing.T) {
	a := newTestApp(t, nil)

	status, _ := a.post(t, "{not json", testSecret)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.post(t, "", testSecret)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandleUpdate_UnknownCommandGetsHelp(t *testing.T) {
	a := newTestApp(t, nil)

	status, body := a.post(t, updateJSON(2, "/nope"), testSecret)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "help", body["state"])
	assert.Equal(t, 0, a.client.calls)

	require.Len(t, a.replier.sent, 1)
	assert.Contains(t, a.replier.sent[0].text, "/chat - General chat")
	assert.NotContains(t, a.replier.sent[0].text, "default_openai")
}

func TestHandleUpdate_FailureIsGeneric(t *testing.T) {
	a := newTestApp(t, nil)
	a.client.err = models.NewUpstreamRejectedError("default_openai", 500, "internal details")

	status, body := a.post(t, updateJSON(3, "/chat hello"), testSecret)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "failed", body["state"])
	require.Len(t, a.replier.sent, 1)
	assert.Equal(t, dispatcher.FailureReply, a.replier.sent[0].text)
}

func TestHandleUpdate_IgnoresNonCommands(t *testing.T) {
	a := newTestApp(t, nil)

	for i, body := range []string{
		updateJSON(4, "just chatting"),
		updateJSON(5, "/chat@other_bot hello"),
		`{"update_id":6,"edited_message":{"message_id":1,"chat":{"id":42,"type":"private"},"text":"/chat hi"}}`,
		`{"update_id":7}`,
	} {
		status, out := a.post(t, body, testSecret)
		assert.Equal(t, http.StatusOK, status, i)
		assert.Equal(t, "ignored", out["state"], i)
	}
	assert.Equal(t, 0, a.client.calls)
	assert.Empty(t, a.replier.sent)
}

func TestHandleUpdate_ReplyFailureStillAcknowledges(t *testing.T) {
	a := newTestApp(t, nil)
	a.replier.err = errors.New("telegram down")

	status, _ := a.post(t, updateJSON(8, "/chat hello"), testSecret)
	assert.Equal(t, http.StatusOK, status)
}

func TestHandleUpdate_DropsRedelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := newTestApp(t, dedup.New(client, time.Minute))

	_, first := a.post(t, updateJSON(9, "/chat hello"), testSecret)
	_, second := a.post(t, updateJSON(9, "/chat hello"), testSecret)

	assert.Equal(t, "replied", first["state"])
	assert.Equal(t, "duplicate", second["state"])
	assert.Equal(t, 1, a.client.calls)
	assert.Len(t, a.replier.sent, 1)
}

type blockingClient struct {
	calls atomic.Int32
}

func (b *blockingClient) Complete(ctx context.Context, _ models.CompletionRequest) (models.CompletionResult, error) {
	b.calls.Add(1)
	<-ctx.Done()
	return models.CompletionResult{}, ctx.Err()
}

func TestHandleUpdate_AbandonedUpdateIsRedelivered(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := dedup.New(client, time.Minute)
	completer := &blockingClient{}
	replier := &fakeReplier{}
	d := dispatcher.New(newTestRegistry(t), completer, dispatcher.Options{})
	webhook := NewWebhookHandler(testSecret, 0, d, replier, store)

	app := fiber.New()
	// the caller goes away mid-dispatch
	app.Use(func(c *fiber.Ctx) error {
		ctx, cancel := context.WithCancel(c.UserContext())
		defer cancel()
		time.AfterFunc(50*time.Millisecond, cancel)
		c.SetUserContext(ctx)
		return c.Next()
	})
	app.Post("/webhook/"+testSecret, webhook.HandleUpdate)
	a := &testApp{app: app, replier: replier}

	_, first := a.post(t, updateJSON(11, "/chat hello"), testSecret)
	assert.Equal(t, "abandoned", first["state"])
	assert.False(t, mr.Exists(dedup.Key(11)))
	assert.Empty(t, replier.sent)

	_, second := a.post(t, updateJSON(11, "/chat hello"), testSecret)
	assert.Equal(t, "abandoned", second["state"])
	assert.Equal(t, int32(2), completer.calls.Load())
}

func TestHealthCheck(t *testing.T) {
	a := newTestApp(t, nil)

	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "disabled", checks["redis"])
	assert.Equal(t, float64(1), checks["commands"])
}

func TestHealthCheck_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	a := newTestApp(t, dedup.New(client, time.Minute))
	mr.Close()

	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRoot(t *testing.T) {
	a := newTestApp(t, nil)

	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
