package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rickchristie/agentloops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTavily_MissingKey(t *testing.T) {
	client, err := NewTavily(TavilyConfig{})

	assert.Nil(t, client)
	assert.ErrorIs(t, err, agentloops.ErrMissingCredential)
}

func TestTavily_Search(t *testing.T) {
	var got tavilyRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"title": "a", "url": "https://a", "content": "first", "score": 0.9},
			{"title": "b", "url": "https://b", "content": "second", "score": 0.8},
			{"title": "c", "url": "https://c", "content": "third", "score": 0.7}
		]}`))
	}))
	defer server.Close()

	client, err := NewTavily(TavilyConfig{APIKey: "tvly-key", BaseURL: server.URL + "/", SearchDepth: "advanced"})
	require.NoError(t, err)
	execCtx := agentloops.NewExecutionContext(context.Background(), "test", nil)

	results, err := client.Search(execCtx, "go generics", 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, results)
	assert.Equal(t, tavilyRequest{Query: "go generics", MaxResults: 2, SearchDepth: "advanced"}, got)
	assert.Equal(t, "Bearer tvly-key", auth)

	assert.Equal(t, int64(1), execCtx.Stats().GetRetrievalCount())
	assert.Equal(t, int64(2), execCtx.Stats().GetCounter(agentloops.KeyRetrievalSnippets))
	events := execCtx.Events()
	require.Len(t, events, 2)
	before, ok := events[0].(*agentloops.BeforeRetrievalEvent)
	require.True(t, ok)
	assert.Equal(t, agentloops.ProviderTavily, before.Provider)
	assert.Equal(t, 2, before.MaxResults)
}

func TestTavily_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"detail": "invalid key"}`, wantStatus: 401},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", wantStatus: 502},
		{name: "invalid body", status: http.StatusOK, body: "<html>", wantStatus: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := NewTavily(TavilyConfig{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)
			execCtx := agentloops.NewExecutionContext(context.Background(), "test", nil)

			results, err := client.Search(execCtx, "q", 2)

			assert.Nil(t, results)
			var te *agentloops.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, agentloops.ProviderTavily, te.Provider)
			assert.Equal(t, tc.wantStatus, te.StatusCode)
			assert.Equal(t, int64(1), execCtx.Stats().GetCounter(agentloops.KeyRetrievalErrors))
		})
	}
}

func TestTavily_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewTavily(TavilyConfig{APIKey: "k", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Search(agentloops.NewExecutionContext(context.Background(), "test", nil), "q", 1)

	assert.True(t, agentloops.IsTransportError(err))
}

func TestTavily_ZeroResults(t *testing.T) {
	client, err := NewTavily(TavilyConfig{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)

	results, err := client.Search(agentloops.NewExecutionContext(context.Background(), "test", nil), "q", 0)

	require.NoError(t, err)
	assert.Empty(t, results)
}
