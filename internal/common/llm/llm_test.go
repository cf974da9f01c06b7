package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"application-workflow/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGenerator_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["prompt"])
		assert.Equal(t, "json", body["response_format"])

		_ = json.NewEncoder(w).Encode(map[string]string{"text": `[{"title":"Q"}]`})
	}))
	defer server.Close()

	gen := NewHTTPGenerator(Options{BaseURL: server.URL + "/", APIKey: "secret", MaxTokens: 100})
	text, err := gen.Generate(context.Background(), Request{Purpose: "questions", Prompt: "hello", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"Q"}]`, text)
}

func TestHTTPGenerator_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer server.Close()

	gen := NewHTTPGenerator(Options{BaseURL: server.URL, MaxRetries: 2})
	text, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPGenerator_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	gen := NewHTTPGenerator(Options{BaseURL: server.URL, MaxRetries: 3})
	_, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPGenerator_EmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  "})
	}))
	defer server.Close()

	_, err := NewHTTPGenerator(Options{BaseURL: server.URL}).Generate(context.Background(), Request{Prompt: "p"})
	assert.True(t, errors.Is(err, ErrGenerationFailed))
}

func TestInstrument_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	gen := Instrument(NewHTTPGenerator(Options{BaseURL: server.URL}), 50*time.Millisecond, logger.NewTestLogger(t))
	_, err := gen.Generate(context.Background(), Request{Purpose: "analysis", Prompt: "p"})
	assert.True(t, errors.Is(err, ErrLLMTimeout))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced", "```json\n{\"a\": [1]}\n```", `{"a": [1]}`},
		{"prose", "Here you go: [1,2] thanks", `[1,2]`},
		{"no json", "  nothing  ", "nothing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}
