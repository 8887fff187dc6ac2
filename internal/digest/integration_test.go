package digest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cublic-github/team-summary-bot/internal/config"
	"github.com/cublic-github/team-summary-bot/internal/models"
	"github.com/cublic-github/team-summary-bot/internal/notifications"
	"github.com/cublic-github/team-summary-bot/internal/roster"
	"github.com/cublic-github/team-summary-bot/internal/summarizer"
	"github.com/cublic-github/team-summary-bot/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher is a canned guild: one channel, no threads, two messages in
// the window and one outside it.
type stubFetcher struct {
	noAccess bool
}

func (f *stubFetcher) ListTextChannels(ctx context.Context) ([]models.Source, error) {
	return []models.Source{{ID: "1", Name: "general", Kind: models.KindChannel}}, nil
}

func (f *stubFetcher) ListActiveThreads(ctx context.Context) (map[string][]models.Source, error) {
	return map[string][]models.Source{}, nil
}

func (f *stubFetcher) ListRecentArchivedThreads(ctx context.Context, channelID string, window models.Window) ([]models.Source, error) {
	return nil, nil
}

func (f *stubFetcher) FetchMessages(ctx context.Context, source models.Source, since time.Time) (models.FetchResult, error) {
	if f.noAccess {
		return models.FetchResult{NoAccess: true}, nil
	}
	all := []models.Message{
		{Timestamp: since.Add(20 * time.Hour), Author: models.Author{ID: "100"}, Content: "later"},
		{Timestamp: since.Add(2 * time.Hour), Author: models.Author{ID: "999", Username: "guest"}, Content: "earlier"},
		{Timestamp: since.Add(-time.Hour), Author: models.Author{ID: "999", Username: "guest"}, Content: "out of window"},
	}
	var inWindow []models.Message
	for _, msg := range all {
		if msg.Timestamp.After(since) {
			inWindow = append(inWindow, msg)
		}
	}
	return models.FetchResult{Messages: inWindow}, nil
}

// scriptedGenerator drives the summarizer candidate chain end to end.
type scriptedGenerator struct {
	responses map[string]func() (string, string, error)
}

func (g *scriptedGenerator) Generate(ctx context.Context, model, prompt string) (string, string, error) {
	if fn, ok := g.responses[model]; ok {
		return fn()
	}
	return "", "", errors.New("unknown model")
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func newDeliveryServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var chunks []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Content string `json:"content"`
		}
		require.NoError(t, decodeBody(r, &payload))
		chunks = append(chunks, payload.Content)
		w.WriteHeader(http.StatusNoContent)
	}))
	return server, &chunks
}

func TestIntegration_WindowFilteringAndAttribution(t *testing.T) {
	server, chunks := newDeliveryServer(t)
	defer server.Close()

	memberRoster := roster.New([]models.Member{{MemberName: "酒井", ID: "100"}}, true)
	builder := transcript.NewBuilder(&stubFetcher{}, memberRoster, true)

	gen := &scriptedGenerator{responses: map[string]func() (string, string, error){
		"primary": func() (string, string, error) { return "model digest", "", nil },
	}}
	notifier := notifications.NewWebhookNotifier("")
	summaryService := summarizer.New(gen, []string{"primary"}, notifier)
	delivery := notifications.NewService(&config.Config{WebhookURL: server.URL})

	service := NewService(builder, summaryService, delivery, notifier)
	report, err := service.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Delivered)
	require.Len(t, *chunks, 1)
	assert.True(t, strings.HasSuffix((*chunks)[0], "model digest"))

	// The transcript the run was built from held exactly the two in-window
	// messages, chronologically, attributed via the roster.
	window := report.Window
	text, err := builder.Build(context.Background(), window)
	require.NoError(t, err)
	assert.Contains(t, text, "guest: earlier\n")
	assert.Contains(t, text, "酒井: later\n")
	assert.NotContains(t, text, "out of window")
	assert.Less(t, strings.Index(text, "earlier"), strings.Index(text, "later"))
}

func TestIntegration_NoAccessChannelStillSummarized(t *testing.T) {
	server, chunks := newDeliveryServer(t)
	defer server.Close()

	builder := transcript.NewBuilder(&stubFetcher{noAccess: true}, roster.New(nil, true), true)
	gen := &scriptedGenerator{responses: map[string]func() (string, string, error){
		"primary": func() (string, string, error) { return "digest of a quiet day", "", nil },
	}}

	notifier := notifications.NewWebhookNotifier("")
	summaryService := summarizer.New(gen, []string{"primary"}, notifier)
	delivery := notifications.NewService(&config.Config{WebhookURL: server.URL})

	service := NewService(builder, summaryService, delivery, notifier)
	report, err := service.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Delivered)
	require.Len(t, *chunks, 1)

	text, err := builder.Build(context.Background(), report.Window)
	require.NoError(t, err)
	assert.Equal(t, "\n\n--- チャンネル: #general ---\nスキップ\n", text)
}

func TestIntegration_ModelFallbackChain(t *testing.T) {
	server, _ := newDeliveryServer(t)
	defer server.Close()

	builder := transcript.NewBuilder(&stubFetcher{}, roster.New(nil, true), true)
	gen := &scriptedGenerator{responses: map[string]func() (string, string, error){
		"primary":   func() (string, string, error) { return "", "", errors.New("provider down") },
		"secondary": func() (string, string, error) { return "secondary digest", "", nil },
	}}

	notifier := notifications.NewWebhookNotifier("")
	summaryService := summarizer.New(gen, []string{"primary", "secondary"}, notifier)
	delivery := notifications.NewService(&config.Config{WebhookURL: server.URL})

	service := NewService(builder, summaryService, delivery, notifier)
	report, err := service.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "secondary", report.ModelUsed)
	assert.True(t, strings.HasSuffix(report.Summary, "secondary digest"))
	assert.True(t, strings.HasPrefix(report.Summary, "🗓️"))
}

func TestIntegration_AllModelsEmptyUsesExcerpt(t *testing.T) {
	server, chunks := newDeliveryServer(t)
	defer server.Close()

	builder := transcript.NewBuilder(&stubFetcher{}, roster.New(nil, true), true)
	gen := &scriptedGenerator{responses: map[string]func() (string, string, error){
		"primary":   func() (string, string, error) { return "", "STOP", nil },
		"secondary": func() (string, string, error) { return "", "SAFETY", nil },
	}}

	notifier := notifications.NewWebhookNotifier("")
	summaryService := summarizer.New(gen, []string{"primary", "secondary"}, notifier)
	delivery := notifications.NewService(&config.Config{WebhookURL: server.URL})

	service := NewService(builder, summaryService, delivery, notifier)
	report, err := service.Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, report.ModelUsed)
	assert.Contains(t, report.Summary, "自動生成に失敗しました")
	assert.Contains(t, report.Summary, "--- チャンネル: #general ---")
	require.NotEmpty(t, *chunks)
}
