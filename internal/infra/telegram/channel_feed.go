package telegram

import (
	"context"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/adapter"
)

var _ adapter.ChannelReader = (*ChannelFeed)(nil)

// window holds the newest posts of one channel, ascending by Seq.
type window struct {
	mu   sync.Mutex
	msgs []model.ChannelMessage
}

func (w *window) add(msg model.ChannelMessage, limit int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := sort.Search(len(w.msgs), func(i int) bool { return w.msgs[i].Seq >= msg.Seq })
	if i < len(w.msgs) && w.msgs[i].Seq == msg.Seq {
		w.msgs[i] = msg
		return
	}
	w.msgs = append(w.msgs, model.ChannelMessage{})
	copy(w.msgs[i+1:], w.msgs[i:])
	w.msgs[i] = msg
	if over := len(w.msgs) - limit; over > 0 {
		w.msgs = append(w.msgs[:0:0], w.msgs[over:]...)
	}
}

// newest returns up to n posts, most recent first.
func (w *window) newest(n int) []model.ChannelMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n > len(w.msgs) {
		n = len(w.msgs)
	}
	out := make([]model.ChannelMessage, 0, n)
	for i := len(w.msgs) - 1; i >= len(w.msgs)-n; i-- {
		out = append(out, w.msgs[i])
	}
	return out
}

// ChannelFeed remembers the channel posts delivered through getUpdates.
// The Bot API has no history call, so this is the only way to read a channel.
type ChannelFeed struct {
	mu       sync.Mutex
	channels *lru.Cache[string, *window]
	perChan  int
	log      *zerolog.Logger
}

func NewChannelFeed(windowSize, maxChannels int, logger *zerolog.Logger) (*ChannelFeed, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("feed window must be positive, got %d", windowSize)
	}
	cache, err := lru.New[string, *window](maxChannels)
	if err != nil {
		return nil, fmt.Errorf("create feed cache: %w", err)
	}
	l := logger.With().Str("component", "ChannelFeed").Logger()
	return &ChannelFeed{channels: cache, perChan: windowSize, log: &l}, nil
}

// Record stores a post. Posts of channels without a public name are ignored.
func (f *ChannelFeed) Record(msg model.ChannelMessage) bool {
	name := model.NormalizeChannelName(msg.Channel)
	if name == "" || msg.Seq <= 0 {
		return false
	}
	msg.Channel = name

	f.mu.Lock()
	w, ok := f.channels.Get(name)
	if !ok {
		w = &window{}
		if evicted := f.channels.Add(name, w); evicted {
			f.log.Debug().Str("channel", name).Msg("feed full, evicted least recent channel")
		}
	}
	f.mu.Unlock()

	w.add(msg, f.perChan)
	return true
}

// FetchRecentMessages returns the newest limit posts of channel, most recent first.
// A channel that has not posted since start-up yields an empty slice.
func (f *ChannelFeed) FetchRecentMessages(ctx context.Context, channel string, limit int) ([]model.ChannelMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	w, ok := f.channels.Get(model.NormalizeChannelName(channel))
	if !ok {
		return []model.ChannelMessage{}, nil
	}
	return w.newest(limit), nil
}
