package custom_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/provider/custom"
)

func TestProvider_Build(t *testing.T) {
	p, err := custom.NewProvider(custom.DefaultSettings())
	require.NoError(t, err)

	t.Run("should use caller supplied base url", func(t *testing.T) {
		req, err := p.Build(&domain.CallParams{
			BaseURL:  "http://localhost:11434/",
			Endpoint: domain.EndpointChatCompletions,
			APIKey:   "local-key",
		})
		require.NoError(t, err)
		require.Equal(t, "http://localhost:11434/v1/chat/completions", req.URL)
		require.Equal(t, "Bearer local-key", req.Headers["Authorization"])
	})

	t.Run("should keep base path prefix", func(t *testing.T) {
		req, err := p.Build(&domain.CallParams{
			BaseURL: "https://llm.example.com/openai",
			Path:    "v1/models",
			Method:  http.MethodGet,
		})
		require.NoError(t, err)
		require.Equal(t, "https://llm.example.com/openai/v1/models", req.URL)
	})

	t.Run("should omit authorization when key is empty", func(t *testing.T) {
		req, err := p.Build(&domain.CallParams{
			BaseURL:  "http://localhost:8000",
			Endpoint: domain.EndpointListModels,
		})
		require.NoError(t, err)

		_, hasAuth := req.Headers["Authorization"]
		require.False(t, hasAuth)
	})

	t.Run("should fail without a base url", func(t *testing.T) {
		_, err := p.Build(&domain.CallParams{Endpoint: domain.EndpointChatCompletions, APIKey: "k"})

		var configErr *domain.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		require.Equal(t, "baseURL", configErr.Field)
	})

	t.Run("should reject a relative base url", func(t *testing.T) {
		_, err := p.Build(&domain.CallParams{BaseURL: "localhost", Endpoint: domain.EndpointListModels})
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("should fall back to configured base url", func(t *testing.T) {
		settings := custom.DefaultSettings()
		settings.BaseURL = "http://gateway.internal:9000"
		fallback, err := custom.NewProvider(settings)
		require.NoError(t, err)

		req, err := fallback.Build(&domain.CallParams{Endpoint: domain.EndpointListModels})
		require.NoError(t, err)
		require.Equal(t, "http://gateway.internal:9000/v1/models", req.URL)
	})
}
