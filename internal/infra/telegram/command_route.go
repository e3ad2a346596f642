package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/infra/metrics"
)

const (
	commandRateLimit  = 20
	commandRateWindow = time.Minute
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) (string, error)

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":  r.handleStartCommand,
		"help":   r.handleHelpCommand,
		"bind":   r.handleBindCommand,
		"unbind": r.handleUnbindCommand,
		"status": r.handleStatusCommand,
	}
}

func (r *RealTelegramBotAdapter) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if !r.addressedToMe(message) {
		return nil
	}
	name := message.Command()
	handler, ok := r.commandRoutes()[name]
	if !ok {
		return nil
	}

	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.AllowCommand(ctx, message.From.ID, name, commandRateLimit, commandRateWindow)
		if err != nil {
			r.log.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			metrics.IncTelegramCommand("/"+name, commandResult(domain.ErrRateLimited))
			return r.SendMessage(ctx, message.Chat.ID, r.translator.T("error_rate_limited"))
		}
	}

	text, err := handler(ctx, message)
	metrics.IncTelegramCommand("/"+name, commandResult(err))
	if err != nil {
		r.log.Debug().Err(err).Str("command", name).Int64("group_id", message.Chat.ID).Int64("user_id", message.From.ID).Msg("command rejected")
	}
	if text == "" {
		return nil
	}
	return r.SendMessage(ctx, message.Chat.ID, text)
}

// addressedToMe drops "/cmd@otherbot" in groups with several bots.
func (r *RealTelegramBotAdapter) addressedToMe(message *tgbotapi.Message) bool {
	full := message.CommandWithAt()
	i := strings.Index(full, "@")
	if i < 0 || r.selfName == "" {
		return true
	}
	return strings.EqualFold(full[i+1:], r.selfName)
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) (string, error) {
	return r.facade.HandleStart(ctx, message.Chat.ID), nil
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) (string, error) {
	return r.facade.HandleHelp(ctx), nil
}

func (r *RealTelegramBotAdapter) handleBindCommand(ctx context.Context, message *tgbotapi.Message) (string, error) {
	return r.facade.HandleBind(ctx, message.Chat.ID, message.From.ID, message.CommandArguments())
}

func (r *RealTelegramBotAdapter) handleUnbindCommand(ctx context.Context, message *tgbotapi.Message) (string, error) {
	return r.facade.HandleUnbind(ctx, message.Chat.ID, message.From.ID)
}

func (r *RealTelegramBotAdapter) handleStatusCommand(ctx context.Context, message *tgbotapi.Message) (string, error) {
	return r.facade.HandleStatus(ctx, message.Chat.ID)
}

func commandResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidChannelName):
		return "invalid"
	default:
		return "error"
	}
}
