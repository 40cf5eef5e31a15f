package gemini_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trkd-health/feed-backend/internal/gemini"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *gemini.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := gemini.New("test-key", srv.URL, "test-model")
	require.NoError(t, err)
	return client
}

func TestGenerateReturnsCandidateText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.URL.Path, "/models/test-model:generateContent")
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "{\"item001\": "}, {"text": "{}}"}]}}]}`))
	})

	out, err := client.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, `{"item001": {}}`, out)
}

func TestGenerateStructuredError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded"}}`))
	})

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateNonJSONErrorBody(t *testing.T) {
	// proxies answer with HTML; the status code must survive into the error
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>Bad Gateway</html>"))
	})

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
	require.Contains(t, err.Error(), "Bad Gateway")
	require.NotContains(t, err.Error(), "decode response")
}

func TestGenerateNoCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no candidates")
}
