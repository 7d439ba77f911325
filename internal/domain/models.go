package domain

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ProviderID identifies an upstream LLM provider.
type ProviderID string

// Known providers.
const (
	ProviderOpenAI   ProviderID = "openai"
	ProviderGemini   ProviderID = "gemini"
	ProviderDeepSeek ProviderID = "deepseek"
	ProviderCustom   ProviderID = "custom"
)

// KnownProviders returns the enumerated provider set.
func KnownProviders() []ProviderID {
	return []ProviderID{ProviderOpenAI, ProviderGemini, ProviderDeepSeek, ProviderCustom}
}

// ParseProviderID validates a provider name against the enumerated set.
func ParseProviderID(name string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range KnownProviders() {
		if id == known {
			return id, nil
		}
	}
	return "", &UnknownProviderError{Provider: name}
}

// AuthPlacement describes where a provider expects its API key.
type AuthPlacement string

// Supported auth placements.
const (
	AuthHeader AuthPlacement = "header" // Authorization: Bearer <key>
	AuthQuery  AuthPlacement = "query"  // ?key=<key>
	AuthNone   AuthPlacement = "none"
)

// ParseAuthPlacement converts a config value into an AuthPlacement.
func ParseAuthPlacement(value string) (AuthPlacement, error) {
	switch AuthPlacement(strings.ToLower(strings.TrimSpace(value))) {
	case AuthHeader:
		return AuthHeader, nil
	case AuthQuery:
		return AuthQuery, nil
	case AuthNone:
		return AuthNone, nil
	default:
		return "", &ConfigurationError{Field: "auth", Reason: "unsupported auth placement " + value}
	}
}

// Endpoint is a logical provider operation, mapped to a concrete path by each adapter.
type Endpoint string

// Logical endpoints.
const (
	EndpointChatCompletions Endpoint = "chat"
	EndpointStreamChat      Endpoint = "stream-chat"
	EndpointListModels      Endpoint = "models"
)

// OutboundRequest is a fully resolved upstream call.
type OutboundRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"data,omitempty"`
}

// CallParams is the uniform shape callers use to reach a provider.
// Path, when set, takes precedence over Endpoint.
type CallParams struct {
	Provider ProviderID
	BaseURL  string
	Endpoint Endpoint
	Path     string
	Method   string
	APIKey   string
	Model    string
	Data     json.RawMessage
	Chat     *ChatRequest
}

// GatewayResult is the normalized outcome of one forwarded call.
type GatewayResult struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the upstream answered with a 2xx status.
func (r *GatewayResult) OK() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// ChatRequest is the provider-neutral chat payload used for streaming.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// StreamEvent is one decoded server-sent event.
type StreamEvent struct {
	EventType string
	Payload   string
}

// DoneMarker terminates an OpenAI-style event stream.
const DoneMarker = "[DONE]"

// IsDone reports whether the event is the terminal marker.
func (e StreamEvent) IsDone() bool {
	return strings.TrimSpace(e.Payload) == DoneMarker
}

// ChatDelta is an incremental fragment of assistant text.
type ChatDelta struct {
	Content string `json:"delta"`
}
