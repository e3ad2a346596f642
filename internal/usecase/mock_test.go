//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/adapter"
	"telegram-channel-relay/internal/infra/memory"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type forwardCall struct {
	GroupID int64
	Seq     int64
}

var _ adapter.RelayBot = (*MockRelayBot)(nil)

// MockRelayBot serves canned posts per channel and records forwards.
type MockRelayBot struct {
	mu sync.Mutex

	Posts      map[string][]model.ChannelMessage
	FetchErr   map[string]error
	ForwardErr func(groupID int64, msg model.ChannelMessage) error

	Forwards   []forwardCall
	FetchLimit int
}

func NewMockRelayBot() *MockRelayBot {
	return &MockRelayBot{
		Posts:    map[string][]model.ChannelMessage{},
		FetchErr: map[string]error{},
	}
}

func (m *MockRelayBot) FetchRecentMessages(ctx context.Context, channel string, limit int) ([]model.ChannelMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchLimit = limit
	if err := m.FetchErr[channel]; err != nil {
		return nil, err
	}
	return m.Posts[channel], nil
}

func (m *MockRelayBot) ForwardMessage(ctx context.Context, groupID int64, msg model.ChannelMessage) error {
	if m.ForwardErr != nil {
		if err := m.ForwardErr(groupID, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Forwards = append(m.Forwards, forwardCall{GroupID: groupID, Seq: msg.Seq})
	return nil
}

// ForwardedTo returns the sequence numbers forwarded into a group, in call order.
func (m *MockRelayBot) ForwardedTo(groupID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, f := range m.Forwards {
		if f.GroupID == groupID {
			out = append(out, f.Seq)
		}
	}
	return out
}

func posts(channel string, seqs ...int64) []model.ChannelMessage {
	out := make([]model.ChannelMessage, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, model.ChannelMessage{Seq: s, ChatID: -100999, Channel: channel})
	}
	return out
}

// failingStore wraps the memory store and injects errors.
type failingStore struct {
	*memory.Store
	listErr    error
	getErr     map[string]error
	advanceErr error
	initErr    error
	saveErr    error
}

func newFailingStore() *failingStore {
	return &failingStore{Store: memory.NewStore(), getErr: map[string]error{}}
}

func (f *failingStore) ListAll(ctx context.Context) ([]model.ChannelBinding, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.ListAll(ctx)
}

func (f *failingStore) Get(ctx context.Context, channel string) (int64, error) {
	if err := f.getErr[channel]; err != nil {
		return 0, err
	}
	return f.Store.Get(ctx, channel)
}

func (f *failingStore) Advance(ctx context.Context, channel string, seq int64) (bool, error) {
	if f.advanceErr != nil {
		return false, f.advanceErr
	}
	return f.Store.Advance(ctx, channel, seq)
}

func (f *failingStore) Init(ctx context.Context, channel string) error {
	if f.initErr != nil {
		return f.initErr
	}
	return f.Store.Init(ctx, channel)
}

func (f *failingStore) Save(ctx context.Context, b *model.ChannelBinding) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, b)
}

var errBoom = errors.New("boom")
