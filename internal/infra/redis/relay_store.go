package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/repository"
)

const defaultKeyPrefix = "relay"

var _ repository.Store = (*RelayStore)(nil)

// RelayStore keeps bindings in one hash and each cursor in its own key:
//
//	<prefix>:bindings           HASH group_id -> JSON ChannelBinding
//	<prefix>:cursor:<channel>   STRING last_seq
//
// The tick lock and the command rate limiter share the same prefix.
type RelayStore struct {
	client RedisClient
	prefix string
}

func NewRelayStore(client RedisClient, prefix string) *RelayStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RelayStore{client: client, prefix: prefix}
}

// advanceScript sets the cursor only when the new value is greater. Returns 1 when it moved.
const advanceScript = `
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local seq = tonumber(ARGV[1])
if seq > cur then
	redis.call("SET", KEYS[1], ARGV[1])
	return 1
end
return 0`

func (s *RelayStore) bindingsKey() string { return s.prefix + ":bindings" }

func (s *RelayStore) cursorKey(channel string) string {
	return fmt.Sprintf("%s:cursor:%s", s.prefix, channel)
}

func (s *RelayStore) Save(ctx context.Context, b *model.ChannelBinding) error {
	if b == nil {
		return domain.ErrInvalidArgument
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.bindingsKey(), strconv.FormatInt(b.GroupID, 10), data)
}

func (s *RelayStore) Delete(ctx context.Context, groupID int64) (bool, error) {
	n, err := s.client.HDel(ctx, s.bindingsKey(), strconv.FormatInt(groupID, 10))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RelayStore) FindByGroup(ctx context.Context, groupID int64) (*model.ChannelBinding, error) {
	data, err := s.client.HGet(ctx, s.bindingsKey(), strconv.FormatInt(groupID, 10))
	if IsNil(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var b model.ChannelBinding
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, fmt.Errorf("decode binding %d: %w", groupID, err)
	}
	return &b, nil
}

func (s *RelayStore) ListAll(ctx context.Context) ([]model.ChannelBinding, error) {
	all, err := s.client.HGetAll(ctx, s.bindingsKey())
	if err != nil {
		return nil, err
	}
	out := make([]model.ChannelBinding, 0, len(all))
	for field, data := range all {
		var b model.ChannelBinding
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, fmt.Errorf("decode binding %s: %w", field, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *RelayStore) Get(ctx context.Context, channel string) (int64, error) {
	val, err := s.client.Get(ctx, s.cursorKey(channel))
	if IsNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	seq, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor for %s: %w", channel, err)
	}
	return seq, nil
}

func (s *RelayStore) Init(ctx context.Context, channel string) error {
	_, err := s.client.SetNX(ctx, s.cursorKey(channel), 0, 0)
	return err
}

func (s *RelayStore) Advance(ctx context.Context, channel string, seq int64) (bool, error) {
	res, err := s.client.Eval(ctx, advanceScript, []string{s.cursorKey(channel)}, seq)
	if err != nil {
		return false, err
	}
	n, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected advance reply %T", res)
	}
	return n == 1, nil
}

// Close is a no-op; the client is owned by the caller.
func (s *RelayStore) Close() error { return nil }
