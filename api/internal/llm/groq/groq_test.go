package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorpy/api/internal/llm"
)

func newTestEngine(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New("test-key", "llama-3.3-70b-versatile").WithBaseURL(srv.URL).WithHTTPClient(srv.Client())
}

func TestComplete_SendsMessagesAndParams(t *testing.T) {
	var got chatRequest
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama-3.3-70b-versatile","choices":[{"message":{"content":"  Hint 1: think about slicing. "}}]}`))
	})

	msgs := []llm.Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "hi"}}
	out, err := e.Complete(context.Background(), msgs, llm.Params{Temperature: 0.7, MaxTokens: 200})
	require.NoError(t, err)

	assert.Equal(t, "Hint 1: think about slicing.", out.Content)
	assert.Equal(t, "groq", out.Engine)
	assert.Equal(t, msgs, got.Messages)
	assert.Equal(t, 200, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-9)
}

func TestComplete_ModelOverride(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.1-8b-instant", req.Model)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})
	out, err := e.Complete(context.Background(), nil, llm.Params{Model: "llama-3.1-8b-instant"})
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", out.Model)
}

func TestComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   llm.ErrorKind
	}{
		{"invalid key", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key","code":"invalid_api_key"}}`, llm.KindAuth},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached for model"}}`, llm.KindRateLimit},
		{"rate limited raw body", http.StatusTooManyRequests, `slow down`, llm.KindRateLimit},
		{"server error", http.StatusInternalServerError, `oops`, llm.KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := e.Complete(context.Background(), nil, llm.Params{})
			require.Error(t, err)
			assert.Equal(t, tt.want, llm.Classify(err))

			var pe *llm.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
		})
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := e.Complete(context.Background(), nil, llm.Params{})
	assert.EqualError(t, err, "groq: empty response")
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestComplete_BlankContent(t *testing.T) {
	for _, content := range []string{"", "  \n "} {
		body := `{"model":"m","choices":[{"message":{"role":"assistant","content":` + strconv.Quote(content) + `}}]}`
		e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := e.Complete(context.Background(), nil, llm.Params{})
		assert.ErrorIs(t, err, llm.ErrEmptyCompletion, "content %q", content)
	}
}

func TestComplete_MissingKey(t *testing.T) {
	_, err := New("", "m").Complete(context.Background(), nil, llm.Params{})
	require.Error(t, err)
	assert.Equal(t, llm.KindAuth, llm.Classify(err))
}
