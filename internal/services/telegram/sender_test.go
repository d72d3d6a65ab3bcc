package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/Egham-7/adaptive-relay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:ABC-secret-token"

type botAPI struct {
	mu     sync.Mutex
	paths  []string
	bodies []map[string]any
	reply  func(w http.ResponseWriter, r *http.Request)
}

func newBotAPI(t *testing.T) (*botAPI, *httptest.Server) {
	t.Helper()
	api := &botAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}

		api.mu.Lock()
		api.paths = append(api.paths, r.URL.Path)
		api.bodies = append(api.bodies, body)
		reply := api.reply
		api.mu.Unlock()

		if reply != nil {
			reply(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

func newTestSender(srv *httptest.Server, maxLen int) *Sender {
	return NewSender(models.TelegramConfig{
		BotToken:         testToken,
		APIBaseURL:       srv.URL,
		MaxMessageLength: maxLen,
	})
}

func TestSendMessage(t *testing.T) {
	api, srv := newBotAPI(t)
	s := newTestSender(srv, 4096)
	defer s.Close()

	require.NoError(t, s.SendMessage(context.Background(), 42, 7, "hi there"))

	require.Len(t, api.paths, 1)
	assert.Equal(t, "/bot"+testToken+"/sendMessage", api.paths[0])
	assert.Equal(t, float64(42), api.bodies[0]["chat_id"])
	assert.Equal(t, float64(7), api.bodies[0]["reply_to_message_id"])
	assert.Equal(t, "hi there", api.bodies[0]["text"])
}

func TestSendMessage_TruncatesLongText(t *testing.T) {
	api, srv := newBotAPI(t)
	s := newTestSender(srv, 10)

	require.NoError(t, s.SendMessage(context.Background(), 1, 0, strings.Repeat("é", 50)))

	text := api.bodies[0]["text"].(string)
	assert.Equal(t, 10, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, truncationMarker))
	_, hasReply := api.bodies[0]["reply_to_message_id"]
	assert.False(t, hasReply)
}

func TestSetMyCommands(t *testing.T) {
	api, srv := newBotAPI(t)
	s := newTestSender(srv, 0)

	err := s.SetMyCommands(context.Background(), []models.CommandSpec{
		{Command: "/chat", Description: "General chat"},
		{Command: "/code"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/bot"+testToken+"/setMyCommands", api.paths[0])
	commands := api.bodies[0]["commands"].([]any)
	require.Len(t, commands, 2)
	assert.Equal(t, map[string]any{"command": "chat", "description": "General chat"}, commands[0])
	assert.Equal(t, map[string]any{"command": "code", "description": "Trigger /code"}, commands[1])
}

func TestSetWebhookAndDelete(t *testing.T) {
	api, srv := newBotAPI(t)
	s := newTestSender(srv, 0)

	require.NoError(t, s.SetWebhook(context.Background(), "https://relay.example/webhook/s3cr3t", "s3cr3t"))
	require.NoError(t, s.DeleteWebhook(context.Background()))
	require.NoError(t, s.SendChatAction(context.Background(), 5, ActionTyping))

	require.Len(t, api.paths, 3)
	assert.Equal(t, "https://relay.example/webhook/s3cr3t", api.bodies[0]["url"])
	assert.Equal(t, "s3cr3t", api.bodies[0]["secret_token"])
	assert.True(t, strings.HasSuffix(api.paths[1], "/deleteWebhook"))
	assert.Equal(t, "typing", api.bodies[2]["action"])
}

func TestGetMe(t *testing.T) {
	api, srv := newBotAPI(t)
	api.reply = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":99,"is_bot":true,"username":"relay_bot"}}`)
	}
	s := newTestSender(srv, 0)

	me, err := s.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "relay_bot", me.Username)
	assert.True(t, me.IsBot)
}

func TestAPIError(t *testing.T) {
	api, srv := newBotAPI(t)
	api.reply = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	}
	s := newTestSender(srv, 0)

	err := s.SendMessage(context.Background(), 1, 0, "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Bad Request: chat not found", apiErr.Description)
	assert.NotContains(t, err.Error(), testToken)
}

func TestTransportErrorHidesToken(t *testing.T) {
	_, srv := newBotAPI(t)
	s := newTestSender(srv, 0)
	srv.Close()

	err := s.SendMessage(context.Background(), 1, 0, "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "hell"+truncationMarker, Truncate("hello!", 5))
	assert.Equal(t, "anything", Truncate("anything", 0))
	assert.Equal(t, truncationMarker, Truncate("ab", 1))
	assert.Equal(t, "日本"+truncationMarker, Truncate("日本語テキスト", 3))
}

func TestTruncate_CountsUTF16Units(t *testing.T) {
	out := Truncate(strings.Repeat("😀", 5000), 4096)
	assert.LessOrEqual(t, len(utf16.Encode([]rune(out))), 4096)
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.Equal(t, 2047, utf8.RuneCountInString(out)-1)

	// a surrogate pair is never split at the cut
	assert.Equal(t, "a"+truncationMarker, Truncate("a😀b", 3))
	assert.Equal(t, "a😀", Truncate("a😀", 3))
}
