package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsAggregator/internal/config"
)

func TestOpenAIClientGenerate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "classify this", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Technology "}}]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewOpenAIClient(config.AIConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "secret", Timeout: time.Second})
	got, err := client.Generate(context.Background(), "classify this")
	require.NoError(t, err)
	assert.Equal(t, " Technology ", got)
}

func TestOpenAIClientErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/empty") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	client := NewOpenAIClient(config.AIConfig{Endpoint: srv.URL, Model: "m", APIKey: "k"})
	_, err := client.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	client = NewOpenAIClient(config.AIConfig{Endpoint: srv.URL + "/empty", Model: "m", APIKey: "k"})
	_, err = client.Generate(context.Background(), "x")
	assert.ErrorContains(t, err, "no choices")

	_, err = NewOpenAIClient(config.AIConfig{}).Generate(context.Background(), "x")
	assert.ErrorContains(t, err, "misconfigured")
}

func TestGeminiClientGenerate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"7"}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient(context.Background(), config.AIConfig{
		APIKey:   "key",
		Model:    "gemini-test",
		Endpoint: srv.URL,
	})
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), "score this")
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}

func TestNewSelectsProvider(t *testing.T) {
	t.Parallel()

	gen, err := New(context.Background(), config.AIConfig{Provider: config.ProviderGemini})
	require.NoError(t, err)
	assert.Nil(t, gen)

	gen, err = New(context.Background(), config.AIConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "m", Endpoint: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, gen)

	gen, err = New(context.Background(), config.AIConfig{Provider: config.ProviderGemini, APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, gen)

	_, err = New(context.Background(), config.AIConfig{Provider: "other", APIKey: "k"})
	assert.Error(t, err)
}
