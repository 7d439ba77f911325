// Package echo provides an in-process upstream that speaks the OpenAI chat
// wire format and echoes the request messages back. It lets the gateway be
// exercised end to end without a real provider account.
package echo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/observability"
)

const (
	ModelName         = "echo4"
	defaultChunkDelay = 10 * time.Millisecond
)

// Config configures the echo upstream. An empty APIKey accepts any caller.
type Config struct {
	APIKey     string
	ChunkDelay time.Duration
}

// Upstream is an http.Handler serving /v1/models and /v1/chat/completions.
type Upstream struct {
	apiKey     string
	chunkDelay time.Duration
	mux        *http.ServeMux
}

// NewUpstream creates the echo upstream.
func NewUpstream(cfg Config) *Upstream {
	delay := cfg.ChunkDelay
	if delay <= 0 {
		delay = defaultChunkDelay
	}

	u := &Upstream{
		apiKey:     cfg.APIKey,
		chunkDelay: delay,
		mux:        http.NewServeMux(),
	}

	u.mux.HandleFunc("GET /v1/models", u.handleModels)
	u.mux.HandleFunc("POST /v1/chat/completions", u.handleChat)

	return u
}

func (u *Upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+u.apiKey {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	u.mux.ServeHTTP(w, r)
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
}

type chunkDelta struct {
	Content string `json:"content,omitempty"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chatChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

type completionChoice struct {
	Index        int            `json:"index"`
	Message      domain.Message `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type completion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
}

func (u *Upstream) handleModels(w http.ResponseWriter, r *http.Request) {
	observability.FromContext(r.Context()).Debug("echo upstream listing models")

	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data": []map[string]string{
			{"id": ModelName, "object": "model", "owned_by": "hearth"},
		},
	})
}

func (u *Upstream) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.Model != ModelName {
		writeError(w, http.StatusNotFound, fmt.Sprintf("model %s is not supported by echo upstream", req.Model))
		return
	}

	content := BuildContent(req.Messages)
	id := fmt.Sprintf("echo-%d", time.Now().UnixNano())

	if !req.Stream {
		writeJSON(w, http.StatusOK, completion{
			ID:      id,
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   req.Model,
			Choices: []completionChoice{{
				Message:      domain.Message{Role: "assistant", Content: content},
				FinishReason: "stop",
			}},
		})
		return
	}

	u.stream(w, r, id, req.Model, content)
}

// stream writes one SSE event per word, then a finish chunk and [DONE].
func (u *Upstream) stream(w http.ResponseWriter, r *http.Request, id, model, content string) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	send := func(delta string, finish *string) {
		data, _ := json.Marshal(chatChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []chunkChoice{{Delta: chunkDelta{Content: delta}, FinishReason: finish}},
		})
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	words := strings.Fields(content)
	for i, word := range words {
		delta := word
		if i < len(words)-1 {
			delta += " "
		}

		select {
		case <-ctx.Done():
			logger.Debug("echo stream aborted by caller", observability.Int("sent", i))
			return
		case <-time.After(u.chunkDelay):
		}

		send(delta, nil)
	}

	stop := "stop"
	send("", &stop)
	fmt.Fprintf(w, "data: %s\n\n", domain.DoneMarker)
	flusher.Flush()
}

// BuildContent renders the echoed reply for a conversation.
func BuildContent(messages []domain.Message) string {
	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(fmt.Sprintf("[%s]: %s\n", msg.Role, msg.Content))
	}
	return builder.String()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]map[string]string{
		"error": {"message": message, "type": "invalid_request_error"},
	})
}
