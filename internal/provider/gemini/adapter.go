// Package gemini adapts calls for the Google Generative Language API.
// The API key travels as a "key" query parameter unless the placement is
// overridden in configuration.
package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/provider"
)

// DefaultBaseURL is the Generative Language API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const (
	modelsPath      = "v1beta/models"
	generateAction  = "generateContent"
	streamAction    = "streamGenerateContent?alt=sse"
	roleModel       = "model"
	roleUser        = "user"
	roleSystem      = "system"
	roleAssistant   = "assistant"
	modelNamePrefix = "models/"
)

// Provider implements domain.Provider for Gemini.
type Provider struct {
	settings provider.Settings
}

// NewProvider creates a Gemini adapter.
func NewProvider(settings provider.Settings) (*Provider, error) {
	if settings.BaseURL == "" {
		settings.BaseURL = DefaultBaseURL
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gemini settings: %w", err)
	}

	return &Provider{settings: settings}, nil
}

// DefaultSettings returns the built-in settings for Gemini.
func DefaultSettings() provider.Settings {
	return provider.Settings{
		Name:        domain.ProviderGemini,
		BaseURL:     DefaultBaseURL,
		Auth:        domain.AuthQuery,
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

	path, err := p.path(params)
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
			if data, err = ContentsBody(params.Chat); err != nil {
				return nil, err
			}
		}
	}

	headers := provider.JSONHeaders()
	provider.ApplyAuth(target, headers, p.settings.Auth, params.APIKey)

	return provider.Assemble(method, target, headers, data), nil
}

func (p *Provider) path(params *domain.CallParams) (string, error) {
	if params.Path != "" {
		return params.Path, nil
	}

	switch params.Endpoint {
	case domain.EndpointListModels:
		return modelsPath, nil
	case domain.EndpointChatCompletions, domain.EndpointStreamChat:
		model := params.Model
		if model == "" && params.Chat != nil {
			model = params.Chat.Model
		}
		model = strings.TrimPrefix(model, modelNamePrefix)
		if model == "" {
			return "", &domain.ConfigurationError{Field: "model"}
		}

		action := generateAction
		if params.Endpoint == domain.EndpointStreamChat {
			action = streamAction
		}
		return fmt.Sprintf("%s/%s:%s", modelsPath, model, action), nil
	case "":
		return "", &domain.ConfigurationError{Field: "endpoint"}
	default:
		return "", &domain.ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("unsupported endpoint %q", params.Endpoint)}
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateContentBody struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

// ContentsBody converts a chat request into the generateContent schema.
// System messages are folded into systemInstruction; assistant turns use the "model" role.
func ContentsBody(req *domain.ChatRequest) (json.RawMessage, error) {
	body := generateContentBody{Contents: make([]content, 0, len(req.Messages))}

	var system []part
	for _, msg := range req.Messages {
		switch msg.Role {
		case roleSystem:
			system = append(system, part{Text: msg.Content})
		case roleAssistant, roleModel:
			body.Contents = append(body.Contents, content{Role: roleModel, Parts: []part{{Text: msg.Content}}})
		default:
			body.Contents = append(body.Contents, content{Role: roleUser, Parts: []part{{Text: msg.Content}}})
		}
	}

	if len(system) > 0 {
		body.SystemInstruction = &content{Parts: system}
	}

	if req.Temperature > 0 || req.MaxTokens > 0 {
		body.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini body: %w", err)
	}

	return encoded, nil
}
