package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-channel-relay/internal/application"
	"telegram-channel-relay/internal/config"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/adapter"
	"telegram-channel-relay/internal/infra/metrics"
	red "telegram-channel-relay/internal/infra/redis"
	"telegram-channel-relay/internal/infra/worker"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RealTelegramBotAdapter polls updates, feeds channel posts into the ChannelFeed
// and delegates group commands to BotFacade.
type RealTelegramBotAdapter struct {
	api      botAPI
	selfName string
	cfg      *config.BotConfig

	feed        *ChannelFeed
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	translator  application.Translator
	log         *zerolog.Logger

	updateWorkers int
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, feed *ChannelFeed, translator application.Translator, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	bot.Debug = cfg.Debug
	return newAdapter(bot, bot.Self.UserName, cfg, feed, translator, rateLimiter, logger)
}

func newAdapter(api botAPI, selfName string, cfg *config.BotConfig, feed *ChannelFeed, translator application.Translator, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if feed == nil {
		return nil, errors.New("channel feed is nil")
	}
	if translator == nil {
		return nil, errors.New("translator is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	l := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		api:           api,
		selfName:      selfName,
		cfg:           cfg,
		feed:          feed,
		rateLimiter:   rateLimiter,
		translator:    translator,
		log:           &l,
		updateWorkers: workers,
	}, nil
}

// SetFacade wires the command facade. The facade checks roles through this adapter,
// so it is built after it.
func (r *RealTelegramBotAdapter) SetFacade(f *application.BotFacade) { r.facade = f }

// StartPolling receives updates until ctx is cancelled.
// Channel posts are recorded inline; commands and membership changes go to the worker pool.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("bot facade is nil")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = r.cfg.PollTimeout
	u.AllowedUpdates = []string{"message", "channel_post", "my_chat_member"}
	updates := r.api.GetUpdatesChan(u)

	pool := worker.NewPool(r.updateWorkers, r.log)
	pool.Start(ctx)
	defer pool.Stop()

	r.log.Info().Str("bot", r.selfName).Int("workers", r.updateWorkers).Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			r.api.StopReceivingUpdates()
			r.log.Info().Msg("polling stopped")
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return errors.New("update channel closed")
			}
			if up.ChannelPost != nil {
				r.recordChannelPost(up.ChannelPost)
				continue
			}
			if err := pool.SubmitWait(ctx, func(ctx context.Context) error {
				return r.handleUpdate(ctx, up)
			}); err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Int("update_id", up.UpdateID).Msg("update dropped")
			}
		}
	}
}

func (r *RealTelegramBotAdapter) recordChannelPost(post *tgbotapi.Message) {
	if post.Chat == nil {
		return
	}
	msg := model.ChannelMessage{
		Seq:      int64(post.MessageID),
		ChatID:   post.Chat.ID,
		Channel:  post.Chat.UserName,
		PostedAt: post.Time().UTC(),
	}
	if r.feed.Record(msg) {
		metrics.IncChannelPost()
		r.log.Debug().Str("channel", msg.Channel).Int64("seq", msg.Seq).Msg("channel post recorded")
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if cm := update.MyChatMember; cm != nil {
		role := model.MemberRole(cm.NewChatMember.Status)
		if role.IsGone() {
			return r.facade.HandleBotRemoved(ctx, cm.Chat.ID)
		}
		return nil
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return nil
	}
	return r.handleCommand(ctx, msg)
}

// FetchRecentMessages reads from the channel feed.
func (r *RealTelegramBotAdapter) FetchRecentMessages(ctx context.Context, channel string, limit int) ([]model.ChannelMessage, error) {
	return r.feed.FetchRecentMessages(ctx, channel, limit)
}

// ForwardMessage copies msg into groupID with Telegram's forward attribution.
func (r *RealTelegramBotAdapter) ForwardMessage(ctx context.Context, groupID int64, msg model.ChannelMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fwd := tgbotapi.NewForward(groupID, msg.ChatID, int(msg.Seq))
	if msg.ChatID == 0 {
		fwd.FromChannelUsername = model.ChannelPrefix + msg.Channel
	}
	if _, err := r.api.Send(fwd); err != nil {
		return r.apiError("forwardMessage", err)
	}
	return nil
}

func (r *RealTelegramBotAdapter) GetMemberRole(ctx context.Context, chatID, userID int64) (model.MemberRole, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	member, err := r.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return "", r.apiError("getChatMember", err)
	}
	return model.MemberRole(member.Status), nil
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return r.apiError("sendMessage", err)
	}
	return nil
}

// apiError counts and annotates a failed Bot API call.
func (r *RealTelegramBotAdapter) apiError(method string, err error) error {
	metrics.IncTelegramAPIError(method)
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		r.log.Warn().Str("method", method).Dur("retry_after", time.Duration(tgErr.RetryAfter)*time.Second).Msg("telegram flood control")
	}
	return fmt.Errorf("telegram %s: %w", method, err)
}
