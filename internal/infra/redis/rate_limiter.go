package redis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rateScript bumps a fixed-window counter and starts the window on the first hit.
const rateScript = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`

// RateLimiter counts bot commands per user and command in fixed windows.
// Keys live under the relay's key prefix, so relays sharing a Redis keep separate budgets.
type RateLimiter struct {
	client RedisClient
	prefix string
}

func NewRateLimiter(client RedisClient, prefix string) *RateLimiter {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RateLimiter{client: client, prefix: prefix}
}

func (r *RateLimiter) commandKey(userID int64, command string) string {
	return fmt.Sprintf("%s:ratelimit:%s:%d", r.prefix, strings.TrimPrefix(command, "/"), userID)
}

// AllowCommand reports whether userID may run command once more within window.
func (r *RateLimiter) AllowCommand(ctx context.Context, userID int64, command string, limit int, window time.Duration) (bool, error) {
	res, err := r.client.Eval(ctx, rateScript, []string{r.commandKey(userID, command)}, window.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", command, err)
	}
	count, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("rate limit %s: unexpected reply %T", command, res)
	}
	return count <= int64(limit), nil
}
