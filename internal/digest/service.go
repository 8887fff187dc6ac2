package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cublic-github/team-summary-bot/internal/models"
	"github.com/cublic-github/team-summary-bot/internal/notifications"
	"github.com/cublic-github/team-summary-bot/internal/summarizer"
	"github.com/sirupsen/logrus"
)

// TranscriptBuilder assembles the day's transcript.
type TranscriptBuilder interface {
	Build(ctx context.Context, window models.Window) (string, error)
}

// SummarizerInterface turns a transcript into the digest body.
type SummarizerInterface interface {
	Summarize(ctx context.Context, transcript string) summarizer.Result
}

// The digest title is dated in the community's local time, fixed at UTC+9.
var jst = time.FixedZone("JST", 9*60*60)

var jpWeekdays = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// Service runs the daily digest job: collect, summarize, deliver.
type Service struct {
	builder    TranscriptBuilder
	summarizer SummarizerInterface
	delivery   notifications.DeliveryInterface
	notifier   notifications.Notifier
	now        func() time.Time

	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds the outcome of the most recent run.
type Metrics struct {
	LastRun          time.Time `json:"last_run"`
	LastRunDuration  string    `json:"last_run_duration"`
	TranscriptLength int       `json:"transcript_length"`
	SummaryLength    int       `json:"summary_length"`
	ModelUsed        string    `json:"model_used"`
	FallbackUsed     bool      `json:"fallback_used"`
	Delivered        bool      `json:"delivered"`
	ErrorCount       int       `json:"error_count"`
}

// NewService creates a digest service.
func NewService(builder TranscriptBuilder, s SummarizerInterface, delivery notifications.DeliveryInterface, notifier notifications.Notifier) *Service {
	return &Service{
		builder:    builder,
		summarizer: s,
		delivery:   delivery,
		notifier:   notifier,
		now:        time.Now,
		metrics:    &Metrics{},
	}
}

// Run performs one digest run to completion. The window is fixed at entry;
// collection and summarization degrade per source or per model, and only
// scope enumeration or delivery failures surface as errors.
func (s *Service) Run(ctx context.Context) (*models.DigestReport, error) {
	start := s.now()
	logrus.Info("daily-summary: job started")
	s.notifier.Notify("🚀 daily-summary 開始")

	window := models.NewWindow(start)

	transcript, err := s.builder.Build(ctx, window)
	if err != nil {
		logrus.Errorf("daily-summary: transcript build failed: %v", err)
		s.recordRun(start, 0, nil, false)
		return nil, fmt.Errorf("failed to build transcript: %w", err)
	}
	logrus.Infof("daily-summary: collected text length=%d", len([]rune(transcript)))

	result := s.summarizer.Summarize(ctx, transcript)

	finalSummary := Title(start) + result.Text

	report := &models.DigestReport{
		GeneratedAt:      start,
		Window:           window,
		TranscriptLength: len([]rune(transcript)),
		Summary:          finalSummary,
		ModelUsed:        result.ModelUsed,
	}

	deliveryErr := s.delivery.SendDigest(finalSummary)
	report.Delivered = deliveryErr == nil
	s.recordRun(start, len([]rune(transcript)), &result, report.Delivered)

	logrus.Infof("daily-summary: delivered=%t total_length=%d", report.Delivered, len([]rune(finalSummary)))
	if deliveryErr != nil {
		logrus.Errorf("daily-summary: delivery failed: %v", deliveryErr)
		s.notifier.Notify(fmt.Sprintf("❌ daily-summary 失敗: %v", deliveryErr))
		return report, fmt.Errorf("failed to deliver digest: %w", deliveryErr)
	}

	s.notifier.Notify("✅ daily-summary 成功")
	return report, nil
}

// Title returns the digest title line for a run starting at now: the date of
// the summarized day (24 hours back) with its Japanese weekday.
func Title(now time.Time) string {
	target := now.Add(-24 * time.Hour).In(jst)
	return fmt.Sprintf("🗓️ %s（%s）サマリー\n\n",
		target.Format("2006年01月02日"), jpWeekdays[target.Weekday()])
}

func (s *Service) recordRun(start time.Time, transcriptLen int, result *summarizer.Result, delivered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = start
	s.metrics.LastRunDuration = s.now().Sub(start).String()
	s.metrics.TranscriptLength = transcriptLen
	s.metrics.Delivered = delivered

	if result == nil {
		s.metrics.SummaryLength = 0
		s.metrics.ModelUsed = ""
		s.metrics.FallbackUsed = false
		s.metrics.ErrorCount = 1
		return
	}

	s.metrics.SummaryLength = len([]rune(result.Text))
	s.metrics.ModelUsed = result.ModelUsed
	s.metrics.FallbackUsed = result.Fallback
	s.metrics.ErrorCount = len(result.Errors)
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
