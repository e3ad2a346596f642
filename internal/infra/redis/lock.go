package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned by TryLock when another owner holds the key.
var ErrLockHeld = errors.New("lock held by another owner")

// Locker is a single-key lease lock. Replicas sharing a store use it so only one
// of them runs a forward tick at a time.
type Locker struct {
	client RedisClient
	prefix string
}

func NewLocker(client RedisClient, prefix string) *Locker {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) key(name string) string { return fmt.Sprintf("%s:lock:%s", l.prefix, name) }

// TryLock takes the lock for ttl without waiting. The returned token unlocks it.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(name), token, ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// Unlock releases the lock if token still owns it.
func (l *Locker) Unlock(ctx context.Context, name, token string) error {
	_, err := l.client.Eval(ctx, unlockScript, []string{l.key(name)}, token)
	return err
}
