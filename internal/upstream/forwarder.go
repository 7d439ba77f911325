package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/metrics"
	"github.com/davidbz/hearth/internal/observability"
)

// maxResponseBodySize caps buffered upstream bodies (10 MB). Larger bodies
// are refused with a 502 rather than relayed cut short.
const maxResponseBodySize int64 = 10 * 1024 * 1024

var errResponseTooLarge = errors.New("upstream response exceeds 10MB")

// maxLoggedBody caps how much of an error body goes into a log line.
const maxLoggedBody = 2048

// Forwarder implements domain.Forwarder over net/http. Each call is attempted exactly once.
type Forwarder struct {
	buffered  *http.Client
	streaming *http.Client
	recorder  *metrics.Recorder
}

// NewForwarder creates a forwarder (DI constructor).
func NewForwarder(clients *Clients, recorder *metrics.Recorder) *Forwarder {
	return &Forwarder{
		buffered:  clients.Buffered,
		streaming: clients.Streaming,
		recorder:  recorder,
	}
}

// Forward performs a buffered call. Upstream statuses and bodies are relayed
// verbatim; transport failures become a 500 with {"error": "..."}.
func (f *Forwarder) Forward(ctx context.Context, req *domain.OutboundRequest) (*domain.GatewayResult, error) {
	httpReq, err := newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	target := RedactURL(req.URL)
	logger := observability.FromContext(ctx)
	logger.Debug("forwarding upstream request",
		observability.String("method", httpReq.Method),
		observability.String("url", target),
	)

	start := time.Now()
	resp, err := f.buffered.Do(httpReq)
	if err != nil {
		cause := unwrapURLError(err)
		f.recorder.ObserveForward(http.StatusInternalServerError, time.Since(start))
		logger.Error("upstream request failed",
			observability.String("url", target),
			observability.Error(cause),
		)
		return networkFailure(cause), nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := readBody(resp.Body)
	elapsed := time.Since(start)
	if errors.Is(err, errResponseTooLarge) {
		f.recorder.ObserveForward(http.StatusBadGateway, elapsed)
		logger.Error("upstream response too large",
			observability.String("url", target),
			observability.Int("status", resp.StatusCode),
			observability.Error(err),
		)
		return errorResult(http.StatusBadGateway, err.Error()), nil
	}
	if err != nil {
		cause := unwrapURLError(err)
		f.recorder.ObserveForward(http.StatusInternalServerError, elapsed)
		logger.Error("failed to read upstream response",
			observability.String("url", target),
			observability.Int("status", resp.StatusCode),
			observability.Error(cause),
		)
		return networkFailure(cause), nil
	}

	f.recorder.ObserveForward(resp.StatusCode, elapsed)

	result := &domain.GatewayResult{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}

	if !result.OK() {
		logger.Warn("upstream returned error status",
			observability.String("url", target),
			observability.Int("status", resp.StatusCode),
			observability.String("upstream_error", ErrorMessage(body)),
			observability.Duration("elapsed", elapsed),
		)
		return result, nil
	}

	logger.Info("upstream request succeeded",
		observability.String("url", target),
		observability.Int("status", resp.StatusCode),
		observability.Duration("elapsed", elapsed),
	)

	return result, nil
}

// Open performs a streaming call and hands the open body to the caller.
func (f *Forwarder) Open(ctx context.Context, req *domain.OutboundRequest) (io.ReadCloser, error) {
	httpReq, err := newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	target := RedactURL(req.URL)
	logger := observability.FromContext(ctx)
	logger.Debug("opening upstream stream",
		observability.String("method", httpReq.Method),
		observability.String("url", target),
	)

	//nolint:bodyclose // Body is handed to the caller on success and closed below otherwise.
	resp, err := f.streaming.Do(httpReq)
	if err != nil {
		cause := unwrapURLError(err)
		f.recorder.ObserveOpen(http.StatusInternalServerError)
		logger.Error("upstream stream request failed",
			observability.String("url", target),
			observability.Error(cause),
		)
		return nil, &domain.NetworkError{URL: target, Err: cause}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() {
			_ = resp.Body.Close()
		}()

		upstreamErr := &domain.UpstreamError{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
		}

		body, readErr := readBody(resp.Body)
		switch {
		case errors.Is(readErr, errResponseTooLarge):
			upstreamErr.Status = http.StatusBadGateway
			upstreamErr.ContentType = "application/json"
			upstreamErr.Body = errorBody(readErr.Error())
		case readErr != nil:
			upstreamErr.ContentType = "application/json"
			upstreamErr.Body = errorBody("failed to read upstream error body: " + unwrapURLError(readErr).Error())
		default:
			upstreamErr.Body = body
		}

		f.recorder.ObserveOpen(upstreamErr.Status)
		logger.Warn("upstream stream returned error status",
			observability.String("url", target),
			observability.Int("status", resp.StatusCode),
			observability.String("upstream_error", ErrorMessage(upstreamErr.Body)),
		)

		return nil, upstreamErr
	}

	f.recorder.ObserveOpen(resp.StatusCode)
	return resp.Body, nil
}

// ErrorMessage extracts a readable message from a provider error body for logging.
// OpenAI-style bodies nest it under error.message, others use error as a string.
func ErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message", "0.error.message"} {
			if value := gjson.GetBytes(body, path); value.Exists() && value.Type == gjson.String {
				return value.String()
			}
		}
	}

	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}

func newHTTPRequest(ctx context.Context, req *domain.OutboundRequest) (*http.Request, error) {
	if req == nil || strings.TrimSpace(req.URL) == "" {
		return nil, domain.ErrMissingTarget
	}

	target, err := url.Parse(req.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, &domain.ConfigurationError{Field: "url", Reason: fmt.Sprintf("%q is not an absolute URL", RedactURL(req.URL))}
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	hasBody := len(req.Body) > 0 && method != http.MethodGet && method != http.MethodHead
	if hasBody {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for name, value := range SanitizeHeaders(req.Headers) {
		httpReq.Header.Set(name, value)
	}

	if hasBody && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

// readBody reads at most maxResponseBodySize bytes and reports
// errResponseTooLarge when the upstream sent more.
func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxResponseBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxResponseBodySize {
		return nil, errResponseTooLarge
	}
	return body, nil
}

func networkFailure(err error) *domain.GatewayResult {
	message := err.Error()
	if message == "" {
		message = "upstream request failed"
	}
	return errorResult(http.StatusInternalServerError, message)
}

func errorResult(status int, message string) *domain.GatewayResult {
	return &domain.GatewayResult{
		Status:      status,
		ContentType: "application/json",
		Body:        errorBody(message),
	}
}

// errorBody renders {"error": message} with the message JSON-escaped.
func errorBody(message string) []byte {
	body, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return []byte(`{"error":"upstream request failed"}`)
	}
	return body
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the
// target URL and with it any query-string key.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
