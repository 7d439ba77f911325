// Package openai adapts calls for OpenAI and OpenAI-compatible providers
// (DeepSeek uses the same wire shape). Keys travel in the Authorization
// header and chat bodies follow the chat completions schema.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/provider"
)

// Default upstream roots.
const (
	DefaultBaseURL         = "https://api.openai.com"
	DefaultDeepSeekBaseURL = "https://api.deepseek.com"
)

// Paths holds the logical endpoint mapping shared by OpenAI-compatible APIs.
//
//nolint:gochecknoglobals // Read-only lookup table.
var Paths = map[domain.Endpoint]string{
	domain.EndpointChatCompletions: "v1/chat/completions",
	domain.EndpointStreamChat:      "v1/chat/completions",
	domain.EndpointListModels:      "v1/models",
}

// Provider implements domain.Provider for OpenAI-compatible APIs.
type Provider struct {
	settings provider.Settings
}

// NewProvider creates an OpenAI-compatible adapter.
func NewProvider(settings provider.Settings) (*Provider, error) {
	if settings.BaseURL == "" {
		return nil, errors.New("base URL is required for OpenAI-compatible providers")
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s settings: %w", settings.Name, err)
	}

	return &Provider{settings: settings}, nil
}

// DefaultSettings returns the built-in settings for OpenAI.
func DefaultSettings() provider.Settings {
	return provider.Settings{
		Name:        domain.ProviderOpenAI,
		BaseURL:     DefaultBaseURL,
		Auth:        domain.AuthHeader,
		KeyRequired: true,
	}
}

// DeepSeekSettings returns the built-in settings for DeepSeek.
func DeepSeekSettings() provider.Settings {
	return provider.Settings{
		Name:        domain.ProviderDeepSeek,
		BaseURL:     DefaultDeepSeekBaseURL,
		Auth:        domain.AuthHeader,
		KeyRequired: true,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() domain.ProviderID {
	return p.settings.Name
}

// Build resolves the outbound request.
func (p *Provider) Build(params *domain.CallParams) (*domain.OutboundRequest, error) {
	if params == nil {
		return nil, errors.New("call params cannot be nil")
	}

	if err := p.settings.RequireKey(params.APIKey); err != nil {
		return nil, err
	}

	path, err := provider.ResolvePath(params, Paths)
	if err != nil {
		return nil, err
	}

	target, err := provider.ResolveURL(p.settings.BaseURL, path)
	if err != nil {
		return nil, err
	}

	data := params.Data
	method := provider.ResolveMethod(params.Method, params.Endpoint)
	if params.Path == "" && params.Endpoint == domain.EndpointStreamChat {
		method = http.MethodPost
		if params.Chat != nil {
			if data, err = ChatBody(params.Chat, true); err != nil {
				return nil, err
			}
		}
	}

	headers := make(map[string]string)
	provider.ApplyAuth(target, headers, p.settings.Auth, params.APIKey)

	return provider.Assemble(method, target, headers, data), nil
}

type chatCompletionBody struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

// ChatBody encodes a chat request in the chat completions schema.
func ChatBody(req *domain.ChatRequest, stream bool) (json.RawMessage, error) {
	if req.Model == "" {
		return nil, &domain.ConfigurationError{Field: "model"}
	}

	body, err := json.Marshal(chatCompletionBody{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat body: %w", err)
	}

	return body, nil
}
