package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsqa/internal/domain"
)

func TestChatClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3-8b-8192", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "what is a chunk?", req.Messages[0].Content)
		assert.Equal(t, 256, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"A bounded slice of text."}}]}`))
	}))
	defer srv.Close()

	client, err := NewChatClient(Options{APIKey: "gsk-test", BaseURL: srv.URL, Model: "llama3-8b-8192", MaxTokens: 256})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "what is a chunk?")
	require.NoError(t, err)
	assert.Equal(t, "A bounded slice of text.", out)
	assert.Equal(t, "llama3-8b-8192", client.ModelName())
}

func TestChatClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"status", http.StatusServiceUnavailable, `overloaded`, "503"},
		{"api error", http.StatusOK, `{"error":{"message":"invalid model"}}`, "invalid model"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no response"},
		{"garbage", http.StatusOK, `not json`, "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewChatClient(Options{BaseURL: srv.URL, Model: "m"})
			require.NoError(t, err)

			out, err := client.Generate(context.Background(), "q")
			assert.ErrorIs(t, err, domain.ErrGeneration)
			assert.Contains(t, err.Error(), tt.message)
			assert.Empty(t, out)
		})
	}
}

func TestChatClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client, err := NewChatClient(Options{BaseURL: srv.URL, Model: "m", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
