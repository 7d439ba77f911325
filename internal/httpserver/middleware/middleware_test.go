package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/hearth/internal/config"
	"github.com/davidbz/hearth/internal/httpserver/middleware"
	"github.com/davidbz/hearth/internal/observability"
)

func TestChain(t *testing.T) {
	t.Run("should apply first middleware outermost", func(t *testing.T) {
		var order []string
		tag := func(name string) middleware.Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		handler := middleware.Chain(tag("a"), tag("b"), tag("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, []string{"a", "b", "c", "handler"}, order)
	})
}

func TestTrace(t *testing.T) {
	t.Run("should inject ids into context and headers", func(t *testing.T) {
		var requestID string
		handler := middleware.Trace()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID = observability.GetRequestID(r.Context())
			w.WriteHeader(http.StatusAccepted)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusAccepted, rec.Code)
		require.NotEmpty(t, requestID)
		require.Equal(t, requestID, rec.Header().Get("X-Request-Id"))
		require.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
	})

	t.Run("should keep an inbound request id", func(t *testing.T) {
		handler := middleware.Trace()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "browser-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "browser-42", rec.Header().Get("X-Request-Id"))
	})

	t.Run("should keep the writer flushable", func(t *testing.T) {
		handler := middleware.Trace()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			flusher, ok := w.(http.Flusher)
			require.True(t, ok)
			_, _ = w.Write([]byte("data: x\n\n"))
			flusher.Flush()
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.True(t, rec.Flushed)
	})
}

func TestCORS(t *testing.T) {
	t.Run("should answer preflight for allowed origins", func(t *testing.T) {
		handler := middleware.CORS(&config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
			AllowedMethods: []string{http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
		})(http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodOptions, "/api/chat/stream/abc", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	})

	t.Run("should expose session and request id headers", func(t *testing.T) {
		handler := middleware.CORS(&config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
			ExposedHeaders: []string{"X-Session-Id", "X-Request-Id", "X-Trace-Id"},
		})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("X-Session-Id", "s-1")
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		exposed := rec.Header().Get("Access-Control-Expose-Headers")
		require.Contains(t, exposed, "X-Session-Id")
		require.Contains(t, exposed, "X-Request-Id")
		require.Contains(t, exposed, "X-Trace-Id")
	})

	t.Run("should pass through when config is nil", func(t *testing.T) {
		handler := middleware.CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusTeapot, rec.Code)
	})
}
