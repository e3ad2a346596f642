package pebblestore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/repository"
)

var _ repository.Store = (*Store)(nil)

const (
	bindingPrefix = "binding/"
	cursorPrefix  = "cursor/"
)

// Store persists bindings and cursors in a local pebble database.
//
// Key layout:
//
//	binding/<group_id> -> JSON ChannelBinding
//	cursor/<channel>   -> [last_seq:8] big endian
type Store struct {
	db *pebble.DB
	// serialises read-modify-write on cursors
	mu sync.Mutex
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, b *model.ChannelBinding) error {
	if b == nil {
		return domain.ErrInvalidArgument
	}
	val, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.db.Set(bindingKey(b.GroupID), val, pebble.Sync)
}

func (s *Store) Delete(ctx context.Context, groupID int64) (bool, error) {
	key := bindingKey(groupID)
	_, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = closer.Close()
	return true, s.db.Delete(key, pebble.Sync)
}

func (s *Store) FindByGroup(ctx context.Context, groupID int64) (*model.ChannelBinding, error) {
	val, closer, err := s.db.Get(bindingKey(groupID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var b model.ChannelBinding
	if err := json.Unmarshal(val, &b); err != nil {
		return nil, fmt.Errorf("decode binding %d: %w", groupID, err)
	}
	return &b, nil
}

func (s *Store) ListAll(ctx context.Context) ([]model.ChannelBinding, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(bindingPrefix),
		UpperBound: []byte(bindingPrefix + "~"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []model.ChannelBinding
	for iter.First(); iter.Valid(); iter.Next() {
		var b model.ChannelBinding
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			return nil, fmt.Errorf("decode binding %s: %w", iter.Key(), err)
		}
		out = append(out, b)
	}
	return out, iter.Error()
}

func (s *Store) Get(ctx context.Context, channel string) (int64, error) {
	return s.readCursor(channel)
}

func (s *Store) Init(ctx context.Context, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, closer, err := s.db.Get(cursorKey(channel))
	if err == nil {
		return closer.Close()
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}
	return s.db.Set(cursorKey(channel), encodeSeq(0), pebble.Sync)
}

func (s *Store) Advance(ctx context.Context, channel string, seq int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.readCursor(channel)
	if err != nil {
		return false, err
	}
	if seq <= cur {
		return false, nil
	}
	if err := s.db.Set(cursorKey(channel), encodeSeq(seq), pebble.Sync); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) readCursor(channel string) (int64, error) {
	val, closer, err := s.db.Get(cursorKey(channel))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid cursor record for %s: %d bytes", channel, len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

func bindingKey(groupID int64) []byte {
	return []byte(bindingPrefix + strconv.FormatInt(groupID, 10))
}

func cursorKey(channel string) []byte {
	return []byte(cursorPrefix + channel)
}

func encodeSeq(seq int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(seq))
	return buf
}
