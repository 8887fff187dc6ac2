package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cublic-github/team-summary-bot/internal/models"
	"github.com/cublic-github/team-summary-bot/internal/roster"
	"github.com/sirupsen/logrus"
)

// Fetcher is the slice of the chat platform the builder needs. The Discord
// client implements it; tests substitute a mock.
type Fetcher interface {
	ListTextChannels(ctx context.Context) ([]models.Source, error)
	ListActiveThreads(ctx context.Context) (map[string][]models.Source, error)
	ListRecentArchivedThreads(ctx context.Context, channelID string, window models.Window) ([]models.Source, error)
	FetchMessages(ctx context.Context, source models.Source, since time.Time) (models.FetchResult, error)
}

// Transcript markers. The digest is written for a Japanese-speaking team,
// matching the prompt and title.
const (
	markerSkipped = "スキップ"
	markerNoPosts = "投稿なし"
	noTitle       = "(no title)"
)

// Timestamps in the transcript are local to the community, fixed at UTC+9.
var jst = time.FixedZone("JST", 9*60*60)

// Builder assembles the daily transcript: every text channel in platform
// order, each followed by its active threads and, when enabled, its recently
// archived public threads.
type Builder struct {
	fetcher         Fetcher
	roster          *roster.Roster
	includeArchived bool
}

// NewBuilder creates a transcript builder.
func NewBuilder(fetcher Fetcher, r *roster.Roster, includeArchived bool) *Builder {
	return &Builder{
		fetcher:         fetcher,
		roster:          r,
		includeArchived: includeArchived,
	}
}

// Build walks the guild and returns the transcript for the window. Scope
// enumeration failures abort the build; per-source fetch problems only skip
// that source.
func (b *Builder) Build(ctx context.Context, window models.Window) (string, error) {
	threadsByParent, err := b.fetcher.ListActiveThreads(ctx)
	if err != nil {
		return "", err
	}

	channels, err := b.fetcher.ListTextChannels(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, ch := range channels {
		logrus.Infof("--- channel: #%s ---", ch.Name)

		sb.WriteString(fmt.Sprintf("\n\n--- チャンネル: #%s ---\n", ch.Name))
		if err := b.appendSource(ctx, &sb, ch, window); err != nil {
			return "", err
		}

		for _, t := range threadsByParent[ch.ID] {
			sb.WriteString(fmt.Sprintf("\n--- スレッド: %s ---\n", threadName(t)))
			if err := b.appendSource(ctx, &sb, t, window); err != nil {
				return "", err
			}
		}

		if !b.includeArchived {
			continue
		}
		archived, err := b.fetcher.ListRecentArchivedThreads(ctx, ch.ID, window)
		if err != nil {
			return "", err
		}
		for _, t := range archived {
			sb.WriteString(fmt.Sprintf("\n--- スレッド(アーカイブ): %s ---\n", threadName(t)))
			if err := b.appendSource(ctx, &sb, t, window); err != nil {
				return "", err
			}
		}
	}

	return sb.String(), nil
}

// appendSource fetches one source and appends its block: a skip marker when
// the bot has no access, an explicit no-posts marker when the window is
// empty, otherwise the messages in chronological order.
func (b *Builder) appendSource(ctx context.Context, sb *strings.Builder, source models.Source, window models.Window) error {
	result, err := b.fetcher.FetchMessages(ctx, source, window.Since)
	if err != nil {
		return err
	}

	if result.NoAccess {
		sb.WriteString(markerSkipped + "\n")
		return nil
	}
	if len(result.Messages) == 0 {
		sb.WriteString(markerNoPosts + "\n")
		return nil
	}

	// Platform order is newest-first; the transcript reads oldest-first.
	for i := len(result.Messages) - 1; i >= 0; i-- {
		msg := result.Messages[i]
		sb.WriteString(fmt.Sprintf("%s %s: %s\n",
			msg.Timestamp.In(jst).Format("15:04"),
			b.roster.Resolve(msg.Author),
			msg.Content))
	}
	return nil
}

func threadName(t models.Source) string {
	if t.Name == "" {
		return noTitle
	}
	return t.Name
}
