package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter logs instead of calling Telegram. It reads from a ChannelFeed so
// posts can be injected locally with Record. Every member is reported as administrator.
type NoopBotAdapter struct {
	feed *ChannelFeed
	log  *zerolog.Logger
}

func NewNoopBotAdapter(feed *ChannelFeed, logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{feed: feed, log: &l}
}

func (b *NoopBotAdapter) FetchRecentMessages(ctx context.Context, channel string, limit int) ([]model.ChannelMessage, error) {
	return b.feed.FetchRecentMessages(ctx, channel, limit)
}

func (b *NoopBotAdapter) ForwardMessage(ctx context.Context, groupID int64, msg model.ChannelMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("group_id", groupID).Str("channel", msg.Channel).Int64("seq", msg.Seq).Msg("[noop-telegram] forward")
	return nil
}

func (b *NoopBotAdapter) GetMemberRole(ctx context.Context, chatID, userID int64) (model.MemberRole, error) {
	return model.RoleAdministrator, nil
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("[noop-telegram] send")
	return nil
}
