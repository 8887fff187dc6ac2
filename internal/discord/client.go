package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cublic-github/team-summary-bot/internal/models"
	"github.com/cublic-github/team-summary-bot/internal/notifications"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the Discord REST API endpoint.
	DefaultBaseURL = "https://discord.com/api/v10"

	// channelTypeText is Discord's type code for guild text channels.
	channelTypeText = 0

	// messageFetchLimit caps how many messages one source contributes per
	// run. There is no pagination: posts beyond the most recent 100 inside
	// the window are dropped.
	messageFetchLimit = 100
)

// Client is a REST client for the guild the digest covers.
type Client struct {
	token    string
	guildID  string
	client   *resty.Client
	notifier notifications.Notifier
}

type apiChannel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     int    `json:"type"`
	ParentID string `json:"parent_id"`
}

type apiThread struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ParentID       string `json:"parent_id"`
	ThreadMetadata struct {
		ArchiveTimestamp string `json:"archive_timestamp"`
	} `json:"thread_metadata"`
}

type apiThreadList struct {
	Threads []apiThread `json:"threads"`
}

type apiMessage struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
	Author    struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
	} `json:"author"`
}

// NewClient creates a Discord client for one guild. baseURL is normally
// DefaultBaseURL; tests point it at a local server.
func NewClient(token, guildID, baseURL string, notifier notifications.Notifier) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		token:   token,
		guildID: guildID,
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(12 * time.Second).
			SetHeader("Authorization", "Bot "+token),
		notifier: notifier,
	}
}

// ListTextChannels returns the guild's text channels in platform order.
func (c *Client) ListTextChannels(ctx context.Context) ([]models.Source, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/guilds/%s/channels", c.guildID))

	if err != nil {
		return nil, fmt.Errorf("failed to list guild channels: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("guild channel list returned status %d: %s",
			resp.StatusCode(), excerpt(resp.Body()))
	}

	var channels []apiChannel
	if err := json.Unmarshal(resp.Body(), &channels); err != nil {
		return nil, fmt.Errorf("failed to parse guild channel list: %w", err)
	}

	var sources []models.Source
	for _, ch := range channels {
		if ch.Type != channelTypeText {
			continue
		}
		sources = append(sources, models.Source{
			ID:   ch.ID,
			Name: ch.Name,
			Kind: models.KindChannel,
		})
	}
	return sources, nil
}

// ListActiveThreads returns all currently active threads of the guild,
// grouped by parent channel id.
func (c *Client) ListActiveThreads(ctx context.Context) (map[string][]models.Source, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/guilds/%s/threads/active", c.guildID))

	if err != nil {
		return nil, fmt.Errorf("failed to list active threads: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("active thread list returned status %d: %s",
			resp.StatusCode(), excerpt(resp.Body()))
	}

	var list apiThreadList
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("failed to parse active thread list: %w", err)
	}

	byParent := make(map[string][]models.Source)
	for _, t := range list.Threads {
		if t.ParentID == "" {
			continue
		}
		byParent[t.ParentID] = append(byParent[t.ParentID], models.Source{
			ID:       t.ID,
			Name:     t.Name,
			Kind:     models.KindActiveThread,
			ParentID: t.ParentID,
		})
	}
	return byParent, nil
}

// ListRecentArchivedThreads returns a channel's public archived threads whose
// archive time still falls inside the window. Missing permission yields an
// empty result, not an error.
func (c *Client) ListRecentArchivedThreads(ctx context.Context, channelID string, window models.Window) ([]models.Source, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/channels/%s/threads/archived/public", channelID))

	if err != nil {
		return nil, fmt.Errorf("failed to list archived threads: %w", err)
	}
	if resp.StatusCode() == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("archived thread list returned status %d: %s",
			resp.StatusCode(), excerpt(resp.Body()))
	}

	var list apiThreadList
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("failed to parse archived thread list: %w", err)
	}

	var sources []models.Source
	for _, t := range list.Threads {
		if ts := t.ThreadMetadata.ArchiveTimestamp; ts != "" {
			archivedAt, err := parseTimestamp(ts)
			if err != nil {
				logrus.Warnf("Skipping archived thread %s with bad archive timestamp %q: %v", t.ID, ts, err)
				continue
			}
			if archivedAt.Before(window.Since) {
				continue
			}
		}
		sources = append(sources, models.Source{
			ID:       t.ID,
			Name:     t.Name,
			Kind:     models.KindArchivedThread,
			ParentID: channelID,
		})
	}
	return sources, nil
}

// FetchMessages retrieves the most recent messages of a channel or thread and
// keeps those strictly newer than since, in the platform's newest-first
// order. Permission problems and upstream errors both come back as NoAccess;
// only transport failures are errors.
func (c *Client) FetchMessages(ctx context.Context, source models.Source, since time.Time) (models.FetchResult, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", messageFetchLimit)).
		Get(fmt.Sprintf("/channels/%s/messages", source.ID))

	if err != nil {
		return models.FetchResult{}, fmt.Errorf("failed to fetch messages for %s %s: %w", source.Kind, source.Name, err)
	}

	label := source.Name
	if label == "" {
		label = source.ID
	}
	logrus.Infof("%s: %s, status: %d", source.Kind, label, resp.StatusCode())

	if resp.StatusCode() == http.StatusForbidden {
		logrus.Warnf("No access to %s %s", source.Kind, label)
		return models.FetchResult{NoAccess: true}, nil
	}
	if resp.StatusCode() != http.StatusOK {
		logrus.Errorf("Message fetch for %s %s returned status %d: %s",
			source.Kind, label, resp.StatusCode(), excerpt(resp.Body()))
		c.notifier.Notify(fmt.Sprintf("❌ fetch messages: %s=%s status=%d body=%s",
			source.Kind, label, resp.StatusCode(), excerpt(resp.Body())))
		return models.FetchResult{NoAccess: true}, nil
	}

	var raw []apiMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return models.FetchResult{}, fmt.Errorf("failed to parse messages for %s %s: %w", source.Kind, label, err)
	}

	var messages []models.Message
	for _, msg := range raw {
		ts, err := parseTimestamp(msg.Timestamp)
		if err != nil {
			logrus.Warnf("Skipping message %s with bad timestamp %q: %v", msg.ID, msg.Timestamp, err)
			continue
		}
		if !ts.After(since) {
			continue
		}
		messages = append(messages, models.Message{
			Timestamp: ts,
			Author: models.Author{
				ID:         msg.Author.ID,
				Username:   msg.Author.Username,
				GlobalName: msg.Author.GlobalName,
			},
			Content: msg.Content,
		})
	}

	logrus.Infof("  -> %d messages in window", len(messages))
	return models.FetchResult{Messages: messages}, nil
}

func parseTimestamp(ts string) (time.Time, error) {
	return time.Parse(time.RFC3339, ts)
}

func excerpt(body []byte) string {
	const limit = 200
	runes := []rune(string(body))
	if len(runes) <= limit {
		return string(body)
	}
	return string(runes[:limit])
}
