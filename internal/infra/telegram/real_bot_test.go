//go:build !integration

package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-channel-relay/internal/application"
	"telegram-channel-relay/internal/config"
	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/infra/memory"
	"telegram-channel-relay/internal/usecase"
)

type fakeAPI struct {
	mu       sync.Mutex
	forwards []tgbotapi.ForwardConfig
	messages []tgbotapi.MessageConfig
	roles    map[int64]string
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{roles: map[int64]string{}, updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	switch v := c.(type) {
	case tgbotapi.ForwardConfig:
		f.forwards = append(f.forwards, v)
	case tgbotapi.MessageConfig:
		f.messages = append(f.messages, v)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.roles[cfg.UserID]
	if !ok {
		status = "member"
	}
	return tgbotapi.ChatMember{Status: status}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	return out
}

type echoTranslator struct{}

func (echoTranslator) T(key string, args ...interface{}) string { return key }

const (
	testGroup = int64(-1001)
	testAdmin = int64(7)
)

func newTestAdapter(t *testing.T) (*RealTelegramBotAdapter, *fakeAPI, *memory.Store) {
	t.Helper()
	api := newFakeAPI()
	api.roles[testAdmin] = "administrator"
	feed, err := NewChannelFeed(10, 8, nopLogger())
	require.NoError(t, err)

	r, err := newAdapter(api, "relay_bot", &config.BotConfig{Workers: 2, PollTimeout: 1}, feed, echoTranslator{}, nil, nopLogger())
	require.NoError(t, err)

	store := memory.NewStore()
	reg := usecase.NewRegistryUseCase(store, store, nopLogger())
	r.SetFacade(application.NewBotFacade(reg, r, echoTranslator{}, nopLogger()))
	return r, api, store
}

func commandMessage(chatID, userID int64, text, cmd string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "supergroup"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func TestHandleUpdate_Commands(t *testing.T) {
	ctx := context.Background()

	t.Run("admin bind is stored and acknowledged", func(t *testing.T) {
		r, api, store := newTestAdapter(t)
		err := r.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage(testGroup, testAdmin, "/bind @freegamesnot", "/bind")})
		require.NoError(t, err)

		b, err := store.FindByGroup(ctx, testGroup)
		require.NoError(t, err)
		assert.Equal(t, "freegamesnot", b.Channel)
		assert.Equal(t, []string{"bind_ok"}, api.sent())
	})

	t.Run("member bind is refused", func(t *testing.T) {
		r, api, store := newTestAdapter(t)
		require.NoError(t, r.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage(testGroup, 99, "/bind @freegamesnot", "/bind")}))

		_, err := store.FindByGroup(ctx, testGroup)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, []string{"error_unauthorized"}, api.sent())
	})

	t.Run("commands for another bot are ignored", func(t *testing.T) {
		r, api, _ := newTestAdapter(t)
		require.NoError(t, r.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage(testGroup, testAdmin, "/help@other_bot", "/help@other_bot")}))
		assert.Empty(t, api.sent())

		require.NoError(t, r.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage(testGroup, testAdmin, "/help@Relay_Bot", "/help@Relay_Bot")}))
		assert.Equal(t, []string{"help_message"}, api.sent())
	})

	t.Run("unknown commands and plain text are ignored", func(t *testing.T) {
		r, api, _ := newTestAdapter(t)
		require.NoError(t, r.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage(testGroup, testAdmin, "/nope", "/nope")}))
		require.NoError(t, r.handleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: testAdmin}, Chat: &tgbotapi.Chat{ID: testGroup}, Text: "hello",
		}}))
		assert.Empty(t, api.sent())
	})
}

func TestHandleUpdate_BotRemoved(t *testing.T) {
	ctx := context.Background()
	r, _, store := newTestAdapter(t)
	require.NoError(t, r.handleUpdate(ctx, tgbotapi.Update{Message: commandMessage(testGroup, testAdmin, "/bind @freegamesnot", "/bind")}))

	require.NoError(t, r.handleUpdate(ctx, tgbotapi.Update{MyChatMember: &tgbotapi.ChatMemberUpdated{
		Chat:          tgbotapi.Chat{ID: testGroup},
		NewChatMember: tgbotapi.ChatMember{Status: "kicked"},
	}}))

	_, err := store.FindByGroup(ctx, testGroup)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartPolling_RecordsChannelPosts(t *testing.T) {
	r, api, _ := newTestAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.StartPolling(ctx) }()

	for _, id := range []int{11, 12} {
		api.updates <- tgbotapi.Update{ChannelPost: &tgbotapi.Message{
			MessageID: id,
			Chat:      &tgbotapi.Chat{ID: -100500, Type: "channel", UserName: "FreeGamesNot"},
			Date:      int(time.Now().Unix()),
		}}
	}

	assert.Eventually(t, func() bool {
		got, _ := r.FetchRecentMessages(context.Background(), "freegamesnot", 10)
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	got, _ := r.FetchRecentMessages(context.Background(), "freegamesnot", 10)
	assert.Equal(t, []int64{12, 11}, seqs(got))
	assert.Equal(t, int64(-100500), got[0].ChatID)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	api.mu.Lock()
	assert.True(t, api.stopped)
	api.mu.Unlock()
}

func TestForwardMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards by chat id", func(t *testing.T) {
		r, api, _ := newTestAdapter(t)
		require.NoError(t, r.ForwardMessage(ctx, testGroup, model.ChannelMessage{Seq: 5, ChatID: -100500, Channel: "freegamesnot"}))
		require.Len(t, api.forwards, 1)
		f := api.forwards[0]
		assert.Equal(t, testGroup, f.ChatID)
		assert.Equal(t, int64(-100500), f.FromChatID)
		assert.Equal(t, 5, f.MessageID)
	})

	t.Run("falls back to the channel username", func(t *testing.T) {
		r, api, _ := newTestAdapter(t)
		require.NoError(t, r.ForwardMessage(ctx, testGroup, model.ChannelMessage{Seq: 5, Channel: "freegamesnot"}))
		require.Len(t, api.forwards, 1)
		assert.Equal(t, "@freegamesnot", api.forwards[0].FromChannelUsername)
	})

	t.Run("wraps api errors", func(t *testing.T) {
		r, api, _ := newTestAdapter(t)
		api.sendErr = &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 3}}
		err := r.ForwardMessage(ctx, testGroup, model.ChannelMessage{Seq: 5, ChatID: -100500})
		var tgErr *tgbotapi.Error
		require.True(t, errors.As(err, &tgErr))
		assert.Equal(t, 3, tgErr.RetryAfter)
	})
}

func TestCommandResult(t *testing.T) {
	assert.Equal(t, "ok", commandResult(nil))
	assert.Equal(t, "unauthorized", commandResult(domain.ErrUnauthorized))
	assert.Equal(t, "invalid", commandResult(domain.ErrInvalidChannelName))
	assert.Equal(t, "rate_limited", commandResult(domain.ErrRateLimited))
	assert.Equal(t, "error", commandResult(errors.New("x")))
}
