package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cublic-github/team-summary-bot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		limit          int
		expectedChunks int
	}{
		{
			name:           "Short text is one chunk",
			text:           "hello",
			limit:          2000,
			expectedChunks: 1,
		},
		{
			name:           "Exact limit is one chunk",
			text:           strings.Repeat("a", 2000),
			limit:          2000,
			expectedChunks: 1,
		},
		{
			name:           "One over the limit splits",
			text:           strings.Repeat("a", 2001),
			limit:          2000,
			expectedChunks: 2,
		},
		{
			name:           "Multi-byte text counts runes, not bytes",
			text:           strings.Repeat("あ", 2500),
			limit:          2000,
			expectedChunks: 2,
		},
		{
			name:           "Empty text yields no chunks",
			text:           "",
			limit:          2000,
			expectedChunks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitChunks(tt.text, tt.limit)
			assert.Len(t, chunks, tt.expectedChunks)

			// Lossless and order-preserving
			assert.Equal(t, tt.text, strings.Join(chunks, ""))

			for _, chunk := range chunks {
				assert.LessOrEqual(t, len([]rune(chunk)), tt.limit)
			}
		})
	}
}

func TestService_SendDigest(t *testing.T) {
	var received []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		require.NoError(t, decodeJSON(r, &payload))
		received = append(received, payload.Content)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	service := NewService(&config.Config{WebhookURL: server.URL})

	text := strings.Repeat("x", 2500)
	err := service.SendDigest(text)

	require.NoError(t, err)
	assert.Len(t, received, 2)
	assert.Equal(t, text, strings.Join(received, ""))
}

func TestService_SendDigest_SecondChunkFails(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	service := NewService(&config.Config{WebhookURL: server.URL})

	err := service.SendDigest(strings.Repeat("x", 2500))

	// Partial delivery is reported as failure; the first chunk stays posted.
	assert.Error(t, err)
	assert.Equal(t, 2, requests)
}

func TestService_SendDigest_AcceptsOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{WebhookURL: server.URL})

	assert.NoError(t, service.SendDigest("short digest"))
}

func TestWebhookNotifier_NeverFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// Failing webhook, unreachable webhook, and no webhook at all:
	// Notify must swallow all of them.
	assert.NotPanics(t, func() {
		NewWebhookNotifier(server.URL).Notify("failing endpoint")
		NewWebhookNotifier("http://127.0.0.1:1").Notify("unreachable endpoint")
		NewWebhookNotifier("").Notify("not configured")
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "title", firstLine("title\nbody"))
	assert.Equal(t, "only", firstLine("only"))
	assert.Equal(t, "", firstLine("\nbody"))
}
