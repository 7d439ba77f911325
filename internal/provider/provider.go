// Package provider holds the request-shaping helpers shared by the concrete
// provider adapters. Adapters are pure: they turn domain.CallParams into a
// domain.OutboundRequest and never perform I/O.
package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/davidbz/hearth/internal/domain"
)

// HeaderContentType and friends are the only headers adapters ever set.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
	queryKeyParam       = "key"
)

//nolint:gochecknoglobals // Immutable empty JSON object.
var emptyObject = json.RawMessage(`{}`)

// Settings configures a provider adapter.
type Settings struct {
	Name        domain.ProviderID
	BaseURL     string
	Auth        domain.AuthPlacement
	KeyRequired bool
}

// Validate checks settings at construction time.
func (s Settings) Validate() error {
	if s.Name == "" {
		return &domain.ConfigurationError{Field: "name"}
	}

	switch s.Auth {
	case domain.AuthHeader, domain.AuthQuery, domain.AuthNone:
	default:
		return &domain.ConfigurationError{Field: "auth", Reason: fmt.Sprintf("unsupported auth placement %q", s.Auth)}
	}

	if s.BaseURL != "" {
		if _, err := parseBase(s.BaseURL); err != nil {
			return err
		}
	}

	return nil
}

// RequireKey fails when the provider's auth convention needs a key and none was given.
func (s Settings) RequireKey(apiKey string) error {
	if s.KeyRequired && s.Auth != domain.AuthNone && strings.TrimSpace(apiKey) == "" {
		return &domain.ConfigurationError{Field: "apiKey", Reason: fmt.Sprintf("%s requires an API key", s.Name)}
	}
	return nil
}

// ResolveMethod normalizes the HTTP method, defaulting by endpoint.
func ResolveMethod(method string, endpoint domain.Endpoint) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method != "" {
		return method
	}
	if endpoint == domain.EndpointListModels {
		return http.MethodGet
	}
	return http.MethodPost
}

// BodyFor returns the body to attach for a method. GET and other body-less
// methods always drop the payload; POST, PUT and PATCH always carry one.
func BodyFor(method string, data json.RawMessage) json.RawMessage {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		trimmed := strings.TrimSpace(string(data))
		if trimmed == "" || trimmed == "null" {
			return emptyObject
		}
		return data
	default:
		return nil
	}
}

// ResolvePath picks the explicit path or maps the logical endpoint.
func ResolvePath(params *domain.CallParams, paths map[domain.Endpoint]string) (string, error) {
	if params.Path != "" {
		return params.Path, nil
	}

	if params.Endpoint == "" {
		return "", &domain.ConfigurationError{Field: "endpoint"}
	}

	path, ok := paths[params.Endpoint]
	if !ok {
		return "", &domain.ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("unsupported endpoint %q", params.Endpoint)}
	}

	return path, nil
}

// ResolveURL joins a base URL and a path, keeping any query string from either.
func ResolveURL(base, path string) (*url.URL, error) {
	baseURL, err := parseBase(base)
	if err != nil {
		return nil, err
	}

	rel, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "path", Reason: err.Error()}
	}

	resolved := *baseURL
	resolved.Path = strings.TrimRight(baseURL.Path, "/") + "/" + rel.Path
	resolved.RawPath = ""

	query := baseURL.Query()
	for key, values := range rel.Query() {
		query[key] = values
	}
	resolved.RawQuery = query.Encode()

	return &resolved, nil
}

// ApplyAuth attaches the key according to the placement. An empty key is never attached.
func ApplyAuth(target *url.URL, headers map[string]string, auth domain.AuthPlacement, apiKey string) {
	if apiKey == "" {
		return
	}

	switch auth {
	case domain.AuthHeader:
		headers[HeaderAuthorization] = "Bearer " + apiKey
	case domain.AuthQuery:
		query := target.Query()
		query.Set(queryKeyParam, apiKey)
		target.RawQuery = query.Encode()
	case domain.AuthNone:
	}
}

// Assemble finishes an outbound request from its resolved parts.
func Assemble(method string, target *url.URL, headers map[string]string, data json.RawMessage) *domain.OutboundRequest {
	body := BodyFor(method, data)
	if body != nil {
		headers[HeaderContentType] = contentTypeJSON
	}

	return &domain.OutboundRequest{
		Method:  method,
		URL:     target.String(),
		Headers: headers,
		Body:    body,
	}
}

// JSONHeaders returns a header map that always declares a JSON content type.
func JSONHeaders() map[string]string {
	return map[string]string{HeaderContentType: contentTypeJSON}
}

func parseBase(base string) (*url.URL, error) {
	if strings.TrimSpace(base) == "" {
		return nil, &domain.ConfigurationError{Field: "baseURL"}
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "baseURL", Reason: err.Error()}
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &domain.ConfigurationError{Field: "baseURL", Reason: fmt.Sprintf("%q is not an absolute URL", base)}
	}

	return parsed, nil
}
