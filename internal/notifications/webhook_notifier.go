package notifications

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// WebhookNotifier forwards operational messages (job start/success/failure,
// API error excerpts) to a Discord webhook. Every failure here is swallowed:
// the side channel is observability only and must never affect a run.
type WebhookNotifier struct {
	webhookURL string
	client     *resty.Client
}

// Ensure WebhookNotifier implements Notifier
var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier for the given webhook URL. An empty
// URL yields a notifier that only logs locally.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client:     resty.New().SetTimeout(10 * time.Second),
	}
}

// Notify sends the message to the log webhook, splitting long payloads.
func (n *WebhookNotifier) Notify(message string) {
	if n.webhookURL == "" {
		logrus.Debugf("Log webhook not configured, dropping notification: %s", truncate(message, 120))
		return
	}

	for _, chunk := range SplitChunks(message, maxLogChunk) {
		resp, err := n.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(webhookPayload{Content: chunk}).
			Post(n.webhookURL)

		if err != nil {
			logrus.Warnf("Log webhook send failed: %v", err)
			return
		}
		if !isWebhookSuccess(resp.StatusCode()) {
			logrus.Warnf("Log webhook returned status %d: %s", resp.StatusCode(), truncate(string(resp.Body()), 200))
			return
		}
	}
}
