package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Egham-7/adaptive-relay/internal/models"
	"github.com/Egham-7/adaptive-relay/pkg/builder"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken  = "123:abc"
	testSecret = "s3cr3t"
)

type botAPICall struct {
	method string
	body   map[string]any
}

// fakeBotAPI records every Bot API call. Methods listed in fail answer with ok=false.
type fakeBotAPI struct {
	mu    sync.Mutex
	calls []botAPICall
	fail  map[string]bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)

	var body map[string]any
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, botAPICall{method: method, body: body})
	failing := f.fail[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: rejected"}`)
		return
	}
	if method == "getMe" {
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"username":"relay_bot"}}`)
		return
	}
	_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
}

func (f *fakeBotAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeBotAPI) last(method string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i].body, true
		}
	}
	return nil, false
}

func newFakeOpenAI(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-3.5-turbo",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestBuilder(botAPI, llm string) *builder.Builder {
	return builder.New().
		Telegram(testToken).
		TelegramAPIBaseURL(botAPI).
		Webhook("https://relay.example", testSecret).
		ClientTimeout(5*time.Second).
		AddOpenAICompatibleEndpoint("default_openai", llm, "sk-test").
		AddCommand("/chat", builder.NewCommandBuilder("default_openai", "gpt-3.5-turbo").
			WithDescription("General chat").
			WithTemperature(0.7).
			Build())
}

func postUpdate(t *testing.T, r *Relay, updateID int64, text string) map[string]any {
	t.Helper()
	body, err := json.Marshal(models.TelegramUpdate{
		UpdateID: updateID,
		Message: &models.TelegramMessage{
			MessageID: 11,
			From:      &models.TelegramUser{ID: 1001},
			Chat:      models.TelegramChat{ID: 42, Type: "group"},
			Text:      text,
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/"+testSecret, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", testSecret)

	resp, err := r.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRelay_EndToEnd(t *testing.T) {
	bot := &fakeBotAPI{}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)
	llm := newFakeOpenAI(t, "pong")

	r, err := NewRelayWithBuilder(newTestBuilder(botSrv.URL, llm.URL))
	require.NoError(t, err)
	require.NoError(t, r.Setup(context.Background()))

	assert.ElementsMatch(t, []string{"getMe", "setMyCommands", "setWebhook"}, bot.methods())

	webhook, ok := bot.last("setWebhook")
	require.True(t, ok)
	assert.Equal(t, "https://relay.example/webhook/"+testSecret, webhook["url"])
	assert.Equal(t, testSecret, webhook["secret_token"])

	commands, ok := bot.last("setMyCommands")
	require.True(t, ok)
	assert.Equal(t, []any{map[string]any{"command": "chat", "description": "General chat"}}, commands["commands"])

	out := postUpdate(t, r, 1, "/chat@relay_bot ping")
	assert.Equal(t, "replied", out["state"])

	_, typed := bot.last("sendChatAction")
	assert.True(t, typed)

	reply, ok := bot.last("sendMessage")
	require.True(t, ok)
	assert.Equal(t, "pong", reply["text"])
	assert.Equal(t, float64(42), reply["chat_id"])
	assert.Equal(t, float64(11), reply["reply_to_message_id"])

	out = postUpdate(t, r, 2, "/chat@other_bot ping")
	assert.Equal(t, "ignored", out["state"])

	r.Close(context.Background())
	_, removed := bot.last("deleteWebhook")
	assert.True(t, removed)
}

func TestRelay_HealthRoutes(t *testing.T) {
	bot := &fakeBotAPI{}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)
	llm := newFakeOpenAI(t, "pong")

	r, err := NewRelayWithBuilder(newTestBuilder(botSrv.URL, llm.URL).BotUsername("relay_bot"))
	require.NoError(t, err)
	require.NoError(t, r.Setup(context.Background()))
	t.Cleanup(func() { r.Close(context.Background()) })

	assert.NotContains(t, bot.methods(), "getMe")

	for _, route := range []string{"/", "/health"} {
		resp, err := r.App().Test(httptest.NewRequest(http.MethodGet, route, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, route)
	}
}

func TestRelay_DeduplicatesWithRedis(t *testing.T) {
	bot := &fakeBotAPI{}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)
	llm := newFakeOpenAI(t, "pong")
	mr := miniredis.RunT(t)

	r, err := NewRelayWithBuilder(newTestBuilder(botSrv.URL, llm.URL).Redis("redis://"+mr.Addr()+"/0", time.Minute))
	require.NoError(t, err)
	require.NoError(t, r.Setup(context.Background()))
	t.Cleanup(func() { r.Close(context.Background()) })

	assert.Equal(t, "replied", postUpdate(t, r, 5, "/chat ping")["state"])
	assert.Equal(t, "duplicate", postUpdate(t, r, 5, "/chat ping")["state"])
	assert.True(t, mr.Exists("relay:update:5"))
}

func TestRelay_WebhookRegistrationFailureIsFatal(t *testing.T) {
	bot := &fakeBotAPI{fail: map[string]bool{"setWebhook": true}}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)
	llm := newFakeOpenAI(t, "pong")

	r, err := NewRelayWithBuilder(newTestBuilder(botSrv.URL, llm.URL))
	require.NoError(t, err)

	err = r.Setup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set webhook")
	assert.NotContains(t, err.Error(), testToken)
	r.Close(context.Background())

	assert.NotContains(t, bot.methods(), "deleteWebhook")
}

func TestRelay_CommandMenuFailureIsNotFatal(t *testing.T) {
	bot := &fakeBotAPI{fail: map[string]bool{"setMyCommands": true, "getMe": true}}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)
	llm := newFakeOpenAI(t, "pong")

	r, err := NewRelayWithBuilder(newTestBuilder(botSrv.URL, llm.URL))
	require.NoError(t, err)
	require.NoError(t, r.Setup(context.Background()))
	t.Cleanup(func() { r.Close(context.Background()) })

	// without a known username every addressed command is served
	assert.Equal(t, "replied", postUpdate(t, r, 3, "/chat@relay_bot ping")["state"])
}

func TestRelay_InvalidConfig(t *testing.T) {
	r, err := NewRelayWithBuilder(builder.New().
		AddOpenAICompatibleEndpoint("ep", "https://example.com", "k").
		AddCommand("/chat", builder.NewCommandBuilder("ep", "m").Build()))
	require.NoError(t, err)

	err = r.Setup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.bot_token")
}
