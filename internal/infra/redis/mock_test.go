//go:build !integration

package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var _ RedisClient = (*fakeRedis)(nil)

// fakeRedis is a small in-memory stand-in for the Redis commands the package uses.
// Eval understands advanceScript, unlockScript and rateScript.
type fakeRedis struct {
	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	expires map[string]time.Duration

	evalErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		strings: map[string]string{},
		hashes:  map[string]map[string]string{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.strings[key]; ok {
		return false, nil
	}
	f.strings[key] = toString(value)
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.strings[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) HSet(ctx context.Context, key, field string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[key]
	if !ok {
		h = map[string]string{}
		f.hashes[key] = h
	}
	h[field] = toString(value)
	return nil
}

func (f *fakeRedis) HGet(ctx context.Context, key, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.hashes[key][field]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRedis) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, field := range fields {
		if _, ok := f.hashes[key][field]; ok {
			delete(f.hashes[key], field)
			n++
		}
	}
	return n, nil
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	if len(keys) != 1 || len(args) != 1 {
		return nil, errors.New("fakeRedis: unsupported script")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch script {
	case unlockScript:
		if v, ok := f.strings[keys[0]]; ok && v == toString(args[0]) {
			delete(f.strings, keys[0])
			return int64(1), nil
		}
		return int64(0), nil
	case rateScript:
		n, _ := strconv.ParseInt(f.strings[keys[0]], 10, 64)
		n++
		f.strings[keys[0]] = strconv.FormatInt(n, 10)
		if n == 1 {
			ms, _ := args[0].(int64)
			f.expires[keys[0]] = time.Duration(ms) * time.Millisecond
		}
		return n, nil
	case advanceScript:
	default:
		return nil, errors.New("fakeRedis: unsupported script")
	}
	cur, _ := strconv.ParseInt(f.strings[keys[0]], 10, 64)
	seq, _ := strconv.ParseInt(toString(args[0]), 10, 64)
	if seq > cur {
		f.strings[keys[0]] = strconv.FormatInt(seq, 10)
		return int64(1), nil
	}
	return int64(0), nil
}

func (f *fakeRedis) Close() error { return nil }

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
