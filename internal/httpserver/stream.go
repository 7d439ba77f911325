package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/observability"
	"github.com/davidbz/hearth/internal/stream"
)

// chatStreamRequest starts a streaming chat relay.
type chatStreamRequest struct {
	Provider    string           `json:"provider"`
	BaseURL     string           `json:"baseURL"`
	APIKey      string           `json:"apiKey"`
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"maxTokens"`
	SessionID   string           `json:"sessionId"`
}

// HandleChatStream relays an upstream chat stream to the browser as SSE:
// a session event, one data event per delta, then [DONE], "stopped" or "error".
// Failures before the upstream answers are returned as plain JSON errors.
func (h *Handler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatStreamRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx = observability.WithProvider(ctx, req.Provider)
	ctx = observability.WithModel(ctx, req.Model)

	outbound, err := h.gateway.Build(ctx, &domain.CallParams{
		Provider: domain.ProviderID(req.Provider),
		BaseURL:  req.BaseURL,
		Endpoint: domain.EndpointStreamChat,
		APIKey:   req.APIKey,
		Model:    req.Model,
		Chat: &domain.ChatRequest{
			Model:       req.Model,
			Messages:    req.Messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		},
	})
	if err != nil {
		writeError(w, r.WithContext(ctx), err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	session := h.tracker.Start(req.SessionID)
	defer h.tracker.Release(session)

	ctx = observability.WithSessionID(ctx, session.ID())
	logger := observability.FromContext(ctx)
	logger.Info("stream request started")

	// Streams outlive the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug("could not clear write deadline", observability.Error(err))
	}

	events := &eventWriter{w: w, flusher: flusher}

	open := func(ctx context.Context) (io.ReadCloser, error) {
		body, err := h.gateway.OpenStream(ctx, outbound)
		if err != nil {
			return nil, err
		}
		events.start(session.ID())
		return body, nil
	}

	state := session.Run(ctx, open, stream.Callbacks{
		OnDelta: func(delta domain.ChatDelta) {
			events.send("", delta)
		},
		OnError: func(err error) {
			if !events.started {
				writeError(w, r.WithContext(ctx), err)
				return
			}
			events.send("error", map[string]string{"error": errorMessage(err)})
		},
	})

	switch state {
	case stream.StateFinished:
		events.done()
	case stream.StateCancelled:
		if ctx.Err() != nil {
			logger.Info("stream client disconnected")
			return
		}
		if !events.started {
			events.start(session.ID())
		}
		events.send("stopped", map[string]string{"reason": domain.ErrCancelled.Error()})
	case stream.StateErrored, stream.StateIdle, stream.StateStreaming:
	}

	logger.Info("stream request completed", observability.String("state", state.String()))
}

// HandleCancelStream stops the session with the given id. Unknown or already
// finished sessions are a no-op.
func (h *Handler) HandleCancelStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	ctx := observability.WithSessionID(r.Context(), sessionID)

	cancelled := h.tracker.Cancel(sessionID)
	observability.FromContext(ctx).Info("stream stop requested",
		observability.Bool("cancelled", cancelled),
	)

	w.WriteHeader(http.StatusNoContent)
}

// eventWriter writes SSE frames to the browser. It is used from the
// session's goroutine only.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (e *eventWriter) start(sessionID string) {
	e.w.Header().Set("Content-Type", "text/event-stream")
	e.w.Header().Set("Cache-Control", "no-cache")
	e.w.Header().Set("Connection", "keep-alive")
	e.w.Header().Set("X-Session-Id", sessionID)
	e.w.WriteHeader(http.StatusOK)
	e.started = true

	e.send("session", map[string]string{"sessionId": sessionID})
}

func (e *eventWriter) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	if event != "" {
		fmt.Fprintf(e.w, "event: %s\n", event)
	}
	fmt.Fprintf(e.w, "data: %s\n\n", data)
	e.flusher.Flush()
}

func (e *eventWriter) done() {
	fmt.Fprintf(e.w, "data: %s\n\n", domain.DoneMarker)
	e.flusher.Flush()
}
