package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/cublic-github/team-summary-bot/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Discord rejects messages longer than 2000 characters. The operational log
// channel splits a little earlier to leave room for the level prefix.
const (
	maxMessageLength = 2000
	maxLogChunk      = 1800
)

// Service posts the digest to the destination webhook and, when configured,
// mails a copy.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements DeliveryInterface
var _ DeliveryInterface = (*Service)(nil)

type webhookPayload struct {
	Content string `json:"content"`
}

// NewService creates a new delivery service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(15 * time.Second),
	}
}

// SendDigest posts the digest text to the Discord webhook in order-preserving
// chunks. It stops on the first chunk the webhook rejects; chunks already
// posted stay posted. An email copy, if configured, is best-effort.
func (s *Service) SendDigest(text string) error {
	chunks := SplitChunks(text, maxMessageLength)

	for i, chunk := range chunks {
		resp, err := s.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(webhookPayload{Content: chunk}).
			Post(s.config.WebhookURL)

		if err != nil {
			return fmt.Errorf("failed to post digest chunk %d/%d: %w", i+1, len(chunks), err)
		}

		if !isWebhookSuccess(resp.StatusCode()) {
			return fmt.Errorf("digest webhook returned status %d on chunk %d/%d: %s",
				resp.StatusCode(), i+1, len(chunks), truncate(string(resp.Body()), 200))
		}
	}

	logrus.Infof("Posted digest in %d chunks (%d chars)", len(chunks), len([]rune(text)))

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(text); err != nil {
			logrus.Errorf("Failed to send digest email copy: %v", err)
		} else {
			logrus.Info("Successfully sent digest email copy")
		}
	}

	return nil
}

func (s *Service) sendEmail(text string) error {
	subject := firstLine(text)
	if subject == "" {
		subject = "Daily summary"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// SplitChunks splits text into contiguous chunks of at most limit characters.
// Concatenating the chunks reproduces the input exactly. Splitting counts
// runes so multi-byte text never exceeds the platform limit.
func SplitChunks(text string, limit int) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func isWebhookSuccess(status int) bool {
	return status == 200 || status == 204
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
