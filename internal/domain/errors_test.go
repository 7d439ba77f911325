package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/hearth/internal/domain"
)

func TestTypedErrors(t *testing.T) {
	t.Run("should match sentinels through wrapping", func(t *testing.T) {
		cases := []struct {
			err      error
			sentinel error
		}{
			{&domain.ConfigurationError{Field: "apiKey"}, domain.ErrConfiguration},
			{&domain.UnknownProviderError{Provider: "x"}, domain.ErrUnknownProvider},
			{&domain.UpstreamError{Status: 500}, domain.ErrUpstream},
			{&domain.NetworkError{URL: "http://x", Err: errors.New("refused")}, domain.ErrNetwork},
			{&domain.StreamParseError{Payload: "{", Err: errors.New("bad")}, domain.ErrStreamParse},
		}

		for _, tc := range cases {
			wrapped := fmt.Errorf("context: %w", tc.err)
			require.ErrorIs(t, wrapped, tc.sentinel)
		}
	})

	t.Run("should name the missing field", func(t *testing.T) {
		require.Equal(t, "apiKey is required", (&domain.ConfigurationError{Field: "apiKey"}).Error())
		require.Equal(t, "auth: bad value", (&domain.ConfigurationError{Field: "auth", Reason: "bad value"}).Error())
	})

	t.Run("should unwrap the network cause", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := &domain.NetworkError{URL: "http://x", Err: cause}
		require.ErrorIs(t, err, cause)
	})
}

func TestParseProviderID(t *testing.T) {
	t.Run("should accept known providers case-insensitively", func(t *testing.T) {
		id, err := domain.ParseProviderID(" Gemini ")
		require.NoError(t, err)
		require.Equal(t, domain.ProviderGemini, id)
	})

	t.Run("should reject ids outside the set", func(t *testing.T) {
		_, err := domain.ParseProviderID("mistral")

		var providerErr *domain.UnknownProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Equal(t, "mistral", providerErr.Provider)
	})
}

func TestStreamEvent_IsDone(t *testing.T) {
	t.Run("should detect terminal marker", func(t *testing.T) {
		require.True(t, domain.StreamEvent{Payload: "[DONE]"}.IsDone())
		require.False(t, domain.StreamEvent{Payload: `{"choices":[]}`}.IsDone())
	})
}
