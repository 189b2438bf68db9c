package announce

import (
	"context"
	"log/slog"

	"deploynotify/internal/external"
	"deploynotify/internal/types"
)

// Notifier is the announce function handler.
type Notifier struct {
	poster    external.ChatPoster
	channels  ChannelMap
	iconEmoji string
	logger    *slog.Logger
}

// NewNotifier creates a Notifier that posts through poster.
func NewNotifier(poster external.ChatPoster, channels ChannelMap, iconEmoji string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		poster:    poster,
		channels:  channels,
		iconEmoji: iconEmoji,
		logger:    logger,
	}
}

// Handle posts evt.Message to the channel for evt.Level and returns Slack's
// decoded response. Exactly one request is made; errors from the chat client
// are returned unchanged.
func (n *Notifier) Handle(ctx context.Context, evt types.NotificationEvent) (map[string]any, error) {
	channel := n.channels.Resolve(evt.Level)

	resp, err := n.poster.PostMessage(ctx, types.ChatMessage{
		IconEmoji: n.iconEmoji,
		Channel:   channel,
		Text:      evt.Message,
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to post notification",
			"level", string(evt.Level),
			"channel", channel,
			"error", err,
		)
		return nil, err
	}

	n.logger.InfoContext(ctx, "notification posted",
		"level", string(evt.Level),
		"channel", channel,
	)
	return resp, nil
}
