package registry

import (
	"sync"
	"testing"

	"github.com/Egham-7/adaptive-relay/internal/config"
	"github.com/Egham-7/adaptive-relay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	rc, err := config.NewResolvedConfig(
		[]models.Endpoint{
			{ID: "default_openai", APIKey: "sk-test", BaseURL: "https://api.openai.com/v1"},
		},
		[]models.CommandSpec{
			{
				Command:     "/chat",
				Description: "General chat",
				Endpoint:    "default_openai",
				Model:       "gpt-3.5-turbo",
				Parameters: models.Params{
					{Key: "temperature", Value: models.FloatParam(0.7)},
					{Key: "max_tokens", Value: models.IntParam(150)},
				},
			},
			{Command: "/code", Description: "Code help", Endpoint: "default_openai", Model: "gpt-4o"},
		},
	)
	require.NoError(t, err)
	return New(rc)
}

func TestLookup(t *testing.T) {
	r := newTestRegistry(t)

	got, ok := r.Lookup("/chat")
	require.True(t, ok)
	assert.Equal(t, "gpt-3.5-turbo", got.Command.Model)
	assert.Equal(t, "default_openai", got.Endpoint.ID)
	assert.Equal(t, "sk-test", got.Endpoint.APIKey)
	assert.Equal(t, models.ProviderOpenAI, got.Endpoint.Provider)

	_, ok = r.Lookup("/nope")
	assert.False(t, ok)
}

func TestLookup_ExactMatchOnly(t *testing.T) {
	r := newTestRegistry(t)

	for _, token := range []string{"/Chat", "chat", "/chat@relay_bot", " /chat", "/chat "} {
		_, ok := r.Lookup(token)
		assert.False(t, ok, token)
	}
}

func TestLookup_IsPure(t *testing.T) {
	r := newTestRegistry(t)

	first, ok := r.Lookup("/chat")
	require.True(t, ok)

	// mutating a returned value must not leak into the registry
	first.Command.Parameters[0].Value = models.FloatParam(2)
	first.Command.Model = "changed"

	second, ok := r.Lookup("/chat")
	require.True(t, ok)
	assert.Equal(t, "gpt-3.5-turbo", second.Command.Model)
	temp, _ := second.Command.Parameters.Get("temperature")
	assert.Equal(t, "0.7", temp.String())
}

func TestLookup_ConcurrentReads(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, ok := r.Lookup("/code")
				assert.True(t, ok)
				assert.Equal(t, "gpt-4o", got.Command.Model)
			}
		}()
	}
	wg.Wait()
}

func TestCommands_DocumentOrder(t *testing.T) {
	r := newTestRegistry(t)

	cmds := r.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "/chat", cmds[0].Command)
	assert.Equal(t, "/code", cmds[1].Command)
	assert.Equal(t, 2, r.Len())
}
