package stream_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/stream"
)

func readAll(t *testing.T, r *stream.EventReader) []domain.StreamEvent {
	t.Helper()

	var events []domain.StreamEvent
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, event)
	}
}

func TestEventReader_Next(t *testing.T) {
	t.Run("should strip data prefix", func(t *testing.T) {
		events := readAll(t, stream.NewEventReader(newChunkReader("data: {\"a\":1}\n\n")))

		require.Equal(t, []domain.StreamEvent{{EventType: "data", Payload: `{"a":1}`}}, events)
	})

	t.Run("should accept data without a space after the colon", func(t *testing.T) {
		events := readAll(t, stream.NewEventReader(newChunkReader("data:[DONE]\n\n")))

		require.Len(t, events, 1)
		require.True(t, events[0].IsDone())
	})

	t.Run("should skip comments and blocks without data", func(t *testing.T) {
		events := readAll(t, stream.NewEventReader(newChunkReader(
			": keep-alive\n\n",
			"id: 7\n\n",
			"data: x\n\n",
		)))

		require.Len(t, events, 1)
		require.Equal(t, "x", events[0].Payload)
	})

	t.Run("should join multi-line data and keep event name", func(t *testing.T) {
		events := readAll(t, stream.NewEventReader(newChunkReader("event: message\ndata: a\ndata: b\n\n")))

		require.Equal(t, []domain.StreamEvent{{EventType: "message", Payload: "a\nb"}}, events)
	})

	t.Run("should find separator split across reads", func(t *testing.T) {
		events := readAll(t, stream.NewEventReader(newChunkReader("data: one\n", "\ndata: two\n\n")))

		require.Len(t, events, 2)
		require.Equal(t, "one", events[0].Payload)
		require.Equal(t, "two", events[1].Payload)
	})

	t.Run("should surface read errors", func(t *testing.T) {
		r := stream.NewEventReader(io.MultiReader(newChunkReader("data: ok\n\n"), errReader{}))

		event, err := r.Next()
		require.NoError(t, err)
		require.Equal(t, "ok", event.Payload)

		_, err = r.Next()
		require.ErrorIs(t, err, errBroken)
	})
}

var errBroken = errors.New("broken pipe")

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errBroken
}

func TestParseDelta(t *testing.T) {
	t.Run("should read first choice content", func(t *testing.T) {
		content, err := stream.ParseDelta(`{"choices":[{"delta":{"content":"Hel"}},{"delta":{"content":"x"}}]}`)
		require.NoError(t, err)
		require.Equal(t, "Hel", content)
	})

	t.Run("should fall back to gemini candidate text", func(t *testing.T) {
		content, err := stream.ParseDelta(`{"candidates":[{"content":{"parts":[{"text":"Hola"}],"role":"model"}}]}`)
		require.NoError(t, err)
		require.Equal(t, "Hola", content)
	})

	t.Run("should return empty string when no content is present", func(t *testing.T) {
		content, err := stream.ParseDelta(`{"choices":[]}`)
		require.NoError(t, err)
		require.Empty(t, content)
	})

	t.Run("should report malformed json as parse error", func(t *testing.T) {
		_, err := stream.ParseDelta(`{"choices":[`)
		require.ErrorIs(t, err, domain.ErrStreamParse)

		var parseErr *domain.StreamParseError
		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, `{"choices":[`, parseErr.Payload)
	})
}
