package provider_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/provider"
)

func TestBodyFor(t *testing.T) {
	data := json.RawMessage(`{"a":1}`)

	t.Run("should carry data on write methods", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch} {
			require.JSONEq(t, `{"a":1}`, string(provider.BodyFor(method, data)))
		}
	})

	t.Run("should substitute empty object for missing data", func(t *testing.T) {
		require.JSONEq(t, `{}`, string(provider.BodyFor(http.MethodPost, nil)))
		require.JSONEq(t, `{}`, string(provider.BodyFor(http.MethodPost, json.RawMessage(`null`))))
	})

	t.Run("should drop data on other methods", func(t *testing.T) {
		require.Nil(t, provider.BodyFor(http.MethodGet, data))
		require.Nil(t, provider.BodyFor(http.MethodDelete, data))
	})
}

func TestResolveURL(t *testing.T) {
	t.Run("should merge query strings", func(t *testing.T) {
		u, err := provider.ResolveURL("https://host.example/base?tenant=a", "v1/items?page=2")
		require.NoError(t, err)
		require.Equal(t, "https://host.example/base/v1/items?page=2&tenant=a", u.String())
	})

	t.Run("should reject empty base", func(t *testing.T) {
		_, err := provider.ResolveURL("", "v1/models")

		var configErr *domain.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		require.Equal(t, "baseURL", configErr.Field)
	})
}

func TestSettings_RequireKey(t *testing.T) {
	t.Run("should not require key when placement is none", func(t *testing.T) {
		settings := provider.Settings{Name: domain.ProviderCustom, Auth: domain.AuthNone, KeyRequired: true}
		require.NoError(t, settings.RequireKey(""))
	})

	t.Run("should reject blank key", func(t *testing.T) {
		settings := provider.Settings{Name: domain.ProviderOpenAI, Auth: domain.AuthHeader, KeyRequired: true}
		require.ErrorIs(t, settings.RequireKey("   "), domain.ErrConfiguration)
	})
}

func TestResolveMethod(t *testing.T) {
	t.Run("should normalize explicit method", func(t *testing.T) {
		require.Equal(t, http.MethodPut, provider.ResolveMethod(" put ", domain.EndpointChatCompletions))
	})

	t.Run("should default by endpoint", func(t *testing.T) {
		require.Equal(t, http.MethodGet, provider.ResolveMethod("", domain.EndpointListModels))
		require.Equal(t, http.MethodPost, provider.ResolveMethod("", domain.EndpointChatCompletions))
	})
}
