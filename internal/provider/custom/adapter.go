// Package custom adapts calls for arbitrary OpenAI-compatible endpoints whose
// base URL is supplied by the caller at call time.
package custom

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/provider"
	"github.com/davidbz/hearth/internal/provider/openai"
)

// Provider implements domain.Provider for caller-defined endpoints.
type Provider struct {
	settings provider.Settings
}

// NewProvider creates a custom adapter. settings.BaseURL is only a fallback
// for calls that don't carry their own base URL.
func NewProvider(settings provider.Settings) (*Provider, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid custom settings: %w", err)
	}

	return &Provider{settings: settings}, nil
}

// DefaultSettings returns the built-in settings for custom endpoints.
// The key is optional because some endpoints embed it in the URL.
func DefaultSettings() provider.Settings {
	return provider.Settings{
		Name:        domain.ProviderCustom,
		Auth:        domain.AuthHeader,
		KeyRequired: false,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() domain.ProviderID {
	return p.settings.Name
}

// Build resolves the outbound request against the caller's base URL.
func (p *Provider) Build(params *domain.CallParams) (*domain.OutboundRequest, error) {
	if params == nil {
		return nil, errors.New("call params cannot be nil")
	}

	base := params.BaseURL
	if base == "" {
		base = p.settings.BaseURL
	}
	if base == "" {
		return nil, &domain.ConfigurationError{Field: "baseURL", Reason: "custom provider requires a base URL"}
	}

	if err := p.settings.RequireKey(params.APIKey); err != nil {
		return nil, err
	}

	path, err := provider.ResolvePath(params, openai.Paths)
	if err != nil {
		return nil, err
	}

	target, err := provider.ResolveURL(base, path)
	if err != nil {
		return nil, err
	}

	data := params.Data
	method := provider.ResolveMethod(params.Method, params.Endpoint)
	if params.Path == "" && params.Endpoint == domain.EndpointStreamChat {
		method = http.MethodPost
		if params.Chat != nil {
			if data, err = openai.ChatBody(params.Chat, true); err != nil {
				return nil, err
			}
		}
	}

	headers := make(map[string]string)
	provider.ApplyAuth(target, headers, p.settings.Auth, params.APIKey)

	return provider.Assemble(method, target, headers, data), nil
}
