package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	var captured completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Use a compressor."}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "test-key", "gpt-4o-mini")
	reply, err := client.Complete(context.Background(), []ChatMessage{
		{Role: RoleSystem, Content: "You help producers."},
		{Role: RoleUser, Content: "My mix is muddy."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Use a compressor.", reply)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, RoleUser, captured.Messages[1].Role)
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "test-key", "gpt-4o-mini")
	reply, err := client.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestOpenAIClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "test-key", "gpt-4o-mini")
	_, err := client.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestOpenAIClientContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewOpenAIClient(server.URL, "test-key", "gpt-4o-mini")
	_, err := client.Complete(ctx, []ChatMessage{{Role: RoleUser, Content: "hi"}})
	assert.Error(t, err)
}
