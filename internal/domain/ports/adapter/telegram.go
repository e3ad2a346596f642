package adapter

import (
	"context"

	"telegram-channel-relay/internal/domain/model"
)

// ChannelReader returns the newest posts of a channel, most recent first.
type ChannelReader interface {
	FetchRecentMessages(ctx context.Context, channel string, limit int) ([]model.ChannelMessage, error)
}

// MessageForwarder forwards a channel post into a group chat.
type MessageForwarder interface {
	ForwardMessage(ctx context.Context, groupID int64, msg model.ChannelMessage) error
}

// MembershipChecker resolves the role a user holds in a chat.
type MembershipChecker interface {
	GetMemberRole(ctx context.Context, chatID, userID int64) (model.MemberRole, error)
}

// RelayBot is everything the forward loop needs from the messaging platform.
type RelayBot interface {
	ChannelReader
	MessageForwarder
}

// TelegramBotAdapter is the full platform port.
type TelegramBotAdapter interface {
	RelayBot
	MembershipChecker
	SendMessage(ctx context.Context, chatID int64, text string) error
}
