package summarizer

import (
	"context"
	"fmt"

	"github.com/cublic-github/team-summary-bot/internal/notifications"
	"github.com/sirupsen/logrus"
)

// fallbackPrefix marks a digest produced without any model: the run still
// delivers something, namely the head of the raw transcript.
const (
	fallbackPrefix   = "（自動生成に失敗しました。入力ログの先頭を添付します）\n\n"
	fallbackMaxChars = 800
)

// Result is the outcome of a summarization attempt. Text is always
// non-empty when the transcript itself is non-empty.
type Result struct {
	Text      string
	ModelUsed string
	Fallback  bool
	Errors    []string
}

// Summarizer tries an ordered list of candidate models and keeps the first
// non-empty answer. It never fails: exhausting all candidates degrades to a
// truncated transcript excerpt.
type Summarizer struct {
	generator  TextGenerator
	candidates []string
	notifier   notifications.Notifier
}

// New creates a summarizer over the given candidate models, in priority order.
func New(generator TextGenerator, candidates []string, notifier notifications.Notifier) *Summarizer {
	return &Summarizer{
		generator:  generator,
		candidates: candidates,
		notifier:   notifier,
	}
}

// Summarize produces the digest body for a transcript.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) Result {
	prompt := buildPrompt(transcript)
	var failures []string

	for _, model := range s.candidates {
		logrus.Infof("generate_summary: trying model=%s", model)

		text, finishReason, err := s.generator.Generate(ctx, model, prompt)
		if err != nil {
			logrus.Errorf("generate_summary: %s failed: %v", model, err)
			s.notifier.Notify(fmt.Sprintf("❌ generate_summary: %s failed: %v", model, err))
			failures = append(failures, fmt.Sprintf("%s: %v", model, err))
			continue
		}
		if text == "" {
			logrus.Warnf("generate_summary: empty text from %s, finishReason=%s", model, finishReason)
			failures = append(failures, fmt.Sprintf("%s: empty response (finishReason=%s)", model, finishReason))
			continue
		}

		logrus.Infof("generate_summary: model %s succeeded (%d chars)", model, len([]rune(text)))
		s.notifier.Notify(fmt.Sprintf("🧠 model_used=%s", model))
		return Result{Text: text, ModelUsed: model, Errors: failures}
	}

	logrus.Error("generate_summary: all model candidates exhausted, using transcript excerpt")
	return Result{
		Text:     fallbackPrefix + headRunes(transcript, fallbackMaxChars),
		Fallback: true,
		Errors:   failures,
	}
}

func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
