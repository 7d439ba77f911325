package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/observability"
	"github.com/davidbz/hearth/internal/stream"
)

// maxRequestBodySize caps inbound JSON bodies (4 MB).
const maxRequestBodySize int64 = 4 * 1024 * 1024

// Handler handles HTTP requests.
type Handler struct {
	gateway *domain.GatewayService
	tracker *stream.Tracker
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(gateway *domain.GatewayService, tracker *stream.Tracker) *Handler {
	return &Handler{
		gateway: gateway,
		tracker: tracker,
	}
}

// proxyRequest is the generic forwarding form.
type proxyRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Data    json.RawMessage   `json:"data"`
}

// providerCallRequest is the provider-routed form.
type providerCallRequest struct {
	APIKey  string          `json:"apiKey"`
	Data    json.RawMessage `json:"data"`
	Method  string          `json:"method"`
	BaseURL string          `json:"baseURL"`
	Model   string          `json:"model"`
}

// HandleProxy forwards {url, method, headers, data} verbatim.
func (h *Handler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req proxyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	observability.FromContext(ctx).Info("proxy request received",
		observability.String("method", req.Method),
	)

	result, err := h.gateway.Forward(ctx, &domain.OutboundRequest{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
		Body:    req.Data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeResult(w, r, result)
}

// HandleProviderCall serves /api/{provider}/{endpoint...}. A logical endpoint
// name (chat, stream-chat, models) is resolved by the adapter; anything else
// is used as the path under the provider's base URL.
func (h *Handler) HandleProviderCall(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")
	ctx := observability.WithProvider(r.Context(), providerName)

	var req providerCallRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	params := &domain.CallParams{
		Provider: domain.ProviderID(providerName),
		BaseURL:  req.BaseURL,
		Method:   req.Method,
		APIKey:   req.APIKey,
		Model:    req.Model,
		Data:     req.Data,
	}

	endpoint := strings.Trim(r.PathValue("endpoint"), "/")
	if logical, ok := logicalEndpoint(endpoint); ok {
		params.Endpoint = logical
	} else {
		params.Path = endpoint
	}

	if req.Model != "" {
		ctx = observability.WithModel(ctx, req.Model)
	}

	observability.FromContext(ctx).Info("provider call received",
		observability.String("endpoint", endpoint),
	)

	result, err := h.gateway.Call(ctx, params)
	if err != nil {
		writeError(w, r.WithContext(ctx), err)
		return
	}

	writeResult(w, r.WithContext(ctx), result)
}

// HandleGeminiModels lists Gemini models with the key carried as a query parameter.
func (h *Handler) HandleGeminiModels(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithProvider(r.Context(), string(domain.ProviderGemini))

	var req providerCallRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.gateway.Call(ctx, &domain.CallParams{
		Provider: domain.ProviderGemini,
		Endpoint: domain.EndpointListModels,
		Method:   http.MethodGet,
		APIKey:   req.APIKey,
	})
	if err != nil {
		writeError(w, r.WithContext(ctx), err)
		return
	}

	writeResult(w, r.WithContext(ctx), result)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}

func logicalEndpoint(name string) (domain.Endpoint, bool) {
	switch domain.Endpoint(name) {
	case domain.EndpointChatCompletions, domain.EndpointStreamChat, domain.EndpointListModels:
		return domain.Endpoint(name), true
	default:
		return "", false
	}
}

// decodeBody reads a JSON body. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &requestError{err: err}
	}
	return nil
}

// requestError marks an unreadable inbound body.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return fmt.Sprintf("invalid request body: %v", e.err)
}

func (e *requestError) Unwrap() error {
	return e.err
}

// writeResult relays an upstream result with its own status and body.
func writeResult(w http.ResponseWriter, r *http.Request, result *domain.GatewayResult) {
	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(result.Status)
	if _, err := w.Write(result.Body); err != nil {
		observability.FromContext(r.Context()).Warn("failed to write response", observability.Error(err))
	}
}

// writeError maps a gateway error to a status and writes it. Upstream errors
// keep the provider's status and body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		writeResult(w, r, &domain.GatewayResult{
			Status:      upstreamErr.Status,
			ContentType: upstreamErr.ContentType,
			Body:        upstreamErr.Body,
		})
		return
	}

	status := errorStatus(err)
	logger := observability.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", observability.Error(err))
	} else {
		logger.Info("request rejected", observability.Int("status", status), observability.Error(err))
	}

	writeJSONError(w, status, errorMessage(err))
}

func errorStatus(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, domain.ErrConfiguration),
		errors.Is(err, domain.ErrUnknownProvider),
		errors.Is(err, domain.ErrMissingTarget):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the innermost typed message so the caller sees the
// missing field rather than the wrapping chain.
func errorMessage(err error) string {
	var configErr *domain.ConfigurationError
	if errors.As(err, &configErr) {
		return configErr.Error()
	}

	var providerErr *domain.UnknownProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Error()
	}

	var networkErr *domain.NetworkError
	if errors.As(err, &networkErr) {
		return networkErr.Err.Error()
	}

	return err.Error()
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
