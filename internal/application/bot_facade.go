package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/usecase"

	"github.com/rs/zerolog"
)

// BotFacade turns chat commands into registry calls.
// Methods return the reply text; the error, when set, classifies the outcome for logs and metrics.
type BotFacade struct {
	Registry usecase.RegistryUseCase
	members  MembershipChecker
	tr       Translator
	log      *zerolog.Logger
}

func NewBotFacade(registry usecase.RegistryUseCase, members MembershipChecker, tr Translator, logger *zerolog.Logger) *BotFacade {
	l := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{Registry: registry, members: members, tr: tr, log: &l}
}

func (b *BotFacade) HandleStart(ctx context.Context, chatID int64) string {
	b.log.Info().Int64("group_id", chatID).Msg("start requested")
	return b.tr.T("start_message", chatID)
}

func (b *BotFacade) HandleHelp(ctx context.Context) string {
	return b.tr.T("help_message")
}

// HandleBind binds the group to the channel named in args ("@name").
func (b *BotFacade) HandleBind(ctx context.Context, chatID, userID int64, args string) (string, error) {
	if !isGroupChat(chatID) {
		return b.tr.T("error_group_only"), domain.ErrInvalidArgument
	}
	args = strings.TrimSpace(args)
	if args == "" {
		return b.tr.T("usage_bind"), domain.ErrInvalidArgument
	}
	ref := strings.Fields(args)[0]
	channel, err := model.ParseChannelRef(ref)
	if err != nil {
		if !strings.HasPrefix(ref, model.ChannelPrefix) {
			return b.tr.T("usage_bind"), err
		}
		return b.tr.T("bind_invalid_channel", ref), err
	}

	if text, err := b.authorize(ctx, chatID, userID); err != nil {
		return text, err
	}

	binding, err := b.Registry.Bind(ctx, chatID, channel)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidChannelName) {
			return b.tr.T("bind_invalid_channel", ref), err
		}
		b.log.Error().Err(err).Int64("group_id", chatID).Msg("bind failed")
		return b.tr.T("error_generic"), err
	}
	return b.tr.T("bind_ok", binding.Channel), nil
}

func (b *BotFacade) HandleUnbind(ctx context.Context, chatID, userID int64) (string, error) {
	if !isGroupChat(chatID) {
		return b.tr.T("error_group_only"), domain.ErrInvalidArgument
	}
	if text, err := b.authorize(ctx, chatID, userID); err != nil {
		return text, err
	}
	existed, err := b.Registry.Unbind(ctx, chatID)
	if err != nil {
		b.log.Error().Err(err).Int64("group_id", chatID).Msg("unbind failed")
		return b.tr.T("error_generic"), err
	}
	if !existed {
		return b.tr.T("unbind_none"), nil
	}
	return b.tr.T("unbind_ok"), nil
}

func (b *BotFacade) HandleStatus(ctx context.Context, chatID int64) (string, error) {
	st, err := b.Registry.Status(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.tr.T("status_none"), nil
		}
		return b.tr.T("error_generic"), err
	}
	return b.tr.T("status_bound", st.Binding.Channel, st.Binding.BoundAt.Format("2006-01-02 15:04 MST"), st.LastSeq), nil
}

// HandleBotRemoved drops the binding of a group the bot was removed from.
func (b *BotFacade) HandleBotRemoved(ctx context.Context, chatID int64) error {
	existed, err := b.Registry.Unbind(ctx, chatID)
	if err != nil {
		return fmt.Errorf("unbind removed group %d: %w", chatID, err)
	}
	if existed {
		b.log.Info().Int64("group_id", chatID).Msg("bot removed from group, binding dropped")
	}
	return nil
}

// authorize lets only the group creator and administrators through.
func (b *BotFacade) authorize(ctx context.Context, chatID, userID int64) (string, error) {
	role, err := b.members.GetMemberRole(ctx, chatID, userID)
	if err != nil {
		b.log.Warn().Err(err).Int64("group_id", chatID).Int64("user_id", userID).Msg("role lookup failed")
		return b.tr.T("error_generic"), err
	}
	if !role.IsElevated() {
		return b.tr.T("error_unauthorized"), domain.ErrUnauthorized
	}
	return "", nil
}

// Group and supergroup ids are negative; private chats use the user's positive id.
func isGroupChat(chatID int64) bool { return chatID < 0 }
