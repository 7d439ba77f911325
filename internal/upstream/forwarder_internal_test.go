package upstream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorBody(t *testing.T) {
	t.Run("should escape quotes in the message", func(t *testing.T) {
		body := errorBody(`read "body": connection reset`)

		require.True(t, json.Valid(body))

		var decoded map[string]string
		require.NoError(t, json.Unmarshal(body, &decoded))
		require.Equal(t, `read "body": connection reset`, decoded["error"])
	})
}
