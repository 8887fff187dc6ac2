package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Generation options are fixed: the digest should read the same from run to
// run, so sampling stays near-deterministic and output is bounded.
const (
	generationTemperature = 0.2
	generationMaxTokens   = 10000
)

// TextGenerator is one generative-model backend. It returns the generated
// text and, when the provider exposes one, a finish-reason diagnostic for
// empty responses.
type TextGenerator interface {
	Generate(ctx context.Context, model, prompt string) (text string, finishReason string, err error)
}

// GeminiGenerator generates text through the Gemini API.
type GeminiGenerator struct {
	apiKey      string
	mu          sync.Mutex
	genaiClient *genai.Client
}

// Ensure GeminiGenerator implements TextGenerator
var _ TextGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(apiKey string) *GeminiGenerator {
	return &GeminiGenerator{apiKey: apiKey}
}

// getClient returns or creates a genai client (thread-safe)
func (g *GeminiGenerator) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.genaiClient != nil {
		return g.genaiClient, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	g.genaiClient = client
	logrus.Debug("Gemini client created and cached")
	return g.genaiClient, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.genaiClient == nil {
		return nil
	}
	err := g.genaiClient.Close()
	g.genaiClient = nil
	return err
}

// Generate submits the prompt to the named Gemini model.
func (g *GeminiGenerator) Generate(ctx context.Context, model, prompt string) (string, string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", "", err
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(generationTemperature)
	m.SetMaxOutputTokens(generationMaxTokens)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", "", nil
	}

	candidate := resp.Candidates[0]
	finishReason := candidate.FinishReason.String()
	if candidate.Content == nil {
		return "", finishReason, nil
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return strings.TrimSpace(text.String()), finishReason, nil
}
