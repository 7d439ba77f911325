package stream

import (
	"encoding/json"
	"errors"

	"github.com/openai/openai-go"
	"github.com/tidwall/gjson"

	"github.com/davidbz/hearth/internal/domain"
)

// geminiTextPath locates the text of a native Gemini stream chunk.
const geminiTextPath = "candidates.0.content.parts.0.text"

var errInvalidJSON = errors.New("payload is not valid JSON")

// ParseDelta extracts the incremental text from one event payload. OpenAI
// style chunks use choices[0].delta.content; chunks without choices fall back
// to the Gemini candidate text. A chunk with neither yields "".
func ParseDelta(payload string) (string, error) {
	if !gjson.Valid(payload) {
		return "", &domain.StreamParseError{Payload: payload, Err: errInvalidJSON}
	}

	var chunk openai.ChatCompletionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", &domain.StreamParseError{Payload: payload, Err: err}
	}

	if len(chunk.Choices) > 0 {
		return chunk.Choices[0].Delta.Content, nil
	}

	if text := gjson.Get(payload, geminiTextPath); text.Exists() {
		return text.String(), nil
	}

	return "", nil
}
