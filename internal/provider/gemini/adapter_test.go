package gemini_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/provider/gemini"
)

func newProvider(t *testing.T) *gemini.Provider {
	t.Helper()
	p, err := gemini.NewProvider(gemini.DefaultSettings())
	require.NoError(t, err)
	return p
}

func TestProvider_Build(t *testing.T) {
	t.Run("should put key in query exactly once and never in a header", func(t *testing.T) {
		p := newProvider(t)

		req, err := p.Build(&domain.CallParams{
			Path:   "v1beta/models?key=stale",
			Method: http.MethodGet,
			APIKey: "g-secret",
		})
		require.NoError(t, err)

		parsed, err := url.Parse(req.URL)
		require.NoError(t, err)
		require.Equal(t, []string{"g-secret"}, parsed.Query()["key"])
		require.Equal(t, 1, strings.Count(req.URL, "key="))

		_, hasAuth := req.Headers["Authorization"]
		require.False(t, hasAuth)
	})

	t.Run("should always declare JSON content type", func(t *testing.T) {
		p := newProvider(t)

		req, err := p.Build(&domain.CallParams{
			Endpoint: domain.EndpointListModels,
			APIKey:   "g-secret",
		})
		require.NoError(t, err)
		require.Equal(t, http.MethodGet, req.Method)
		require.Nil(t, req.Body)
		require.Equal(t, "application/json", req.Headers["Content-Type"])
		require.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models?key=g-secret", req.URL)
	})

	t.Run("should build generateContent path from model", func(t *testing.T) {
		p := newProvider(t)
		data := json.RawMessage(`{"contents":[{"parts":[{"text":"hi"}]}]}`)

		req, err := p.Build(&domain.CallParams{
			Endpoint: domain.EndpointChatCompletions,
			Model:    "models/gemini-1.5-flash",
			APIKey:   "g-secret",
			Data:     data,
		})
		require.NoError(t, err)
		require.Equal(t, http.MethodPost, req.Method)

		parsed, err := url.Parse(req.URL)
		require.NoError(t, err)
		require.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", parsed.Path)
		require.JSONEq(t, string(data), string(req.Body))
	})

	t.Run("should build streaming request with sse alt", func(t *testing.T) {
		p := newProvider(t)

		req, err := p.Build(&domain.CallParams{
			Endpoint: domain.EndpointStreamChat,
			APIKey:   "g-secret",
			Chat: &domain.ChatRequest{
				Model: "gemini-1.5-pro",
				Messages: []domain.Message{
					{Role: "system", Content: "be brief"},
					{Role: "user", Content: "hi"},
					{Role: "assistant", Content: "hello"},
				},
			},
		})
		require.NoError(t, err)

		parsed, err := url.Parse(req.URL)
		require.NoError(t, err)
		require.Equal(t, "/v1beta/models/gemini-1.5-pro:streamGenerateContent", parsed.Path)
		require.Equal(t, "sse", parsed.Query().Get("alt"))
		require.Equal(t, "g-secret", parsed.Query().Get("key"))
		require.JSONEq(t, `{
			"contents": [
				{"role": "user", "parts": [{"text": "hi"}]},
				{"role": "model", "parts": [{"text": "hello"}]}
			],
			"systemInstruction": {"parts": [{"text": "be brief"}]}
		}`, string(req.Body))
	})

	t.Run("should require a model for chat", func(t *testing.T) {
		p := newProvider(t)

		_, err := p.Build(&domain.CallParams{
			Endpoint: domain.EndpointChatCompletions,
			APIKey:   "g-secret",
		})

		var configErr *domain.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		require.Equal(t, "model", configErr.Field)
	})

	t.Run("should require a key by default", func(t *testing.T) {
		p := newProvider(t)

		_, err := p.Build(&domain.CallParams{Endpoint: domain.EndpointListModels})
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("should use bearer header when placement is overridden", func(t *testing.T) {
		settings := gemini.DefaultSettings()
		settings.Auth = domain.AuthHeader
		p, err := gemini.NewProvider(settings)
		require.NoError(t, err)

		req, err := p.Build(&domain.CallParams{Endpoint: domain.EndpointListModels, APIKey: "g-secret"})
		require.NoError(t, err)
		require.Equal(t, "Bearer g-secret", req.Headers["Authorization"])
		require.NotContains(t, req.URL, "g-secret")
	})
}

func TestContentsBody(t *testing.T) {
	t.Run("should set generation config when options are given", func(t *testing.T) {
		body, err := gemini.ContentsBody(&domain.ChatRequest{
			Model:       "gemini-1.5-pro",
			Messages:    []domain.Message{{Role: "user", Content: "hi"}},
			Temperature: 0.2,
			MaxTokens:   100,
		})
		require.NoError(t, err)
		require.JSONEq(t, `{
			"contents": [{"role": "user", "parts": [{"text": "hi"}]}],
			"generationConfig": {"temperature": 0.2, "maxOutputTokens": 100}
		}`, string(body))
	})
}
