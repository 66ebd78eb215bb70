package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Locker serializes the load, mutate and save sequence of the store.
// The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// MutexLocker serializes writers within one process
type MutexLocker struct {
	sem chan struct{}
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{sem: make(chan struct{}, 1)}
}

func (l *MutexLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

const defaultLockRetry = 25 * time.Millisecond

// RedisLocker serializes writers across processes sharing one document.
// The lock expires after ttl so a crashed holder cannot wedge the store.
type RedisLocker struct {
	client   *redis.Client
	key      string
	ttl      time.Duration
	retry    time.Duration
	newToken func() string
	log      logrus.FieldLogger
}

func NewRedisLocker(client *redis.Client, key string, ttl time.Duration, log logrus.FieldLogger) *RedisLocker {
	return &RedisLocker{
		client:   client,
		key:      key,
		ttl:      ttl,
		retry:    defaultLockRetry,
		newToken: uuid.NewString,
		log:      log,
	}
}

func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := l.newToken()

	for {
		acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: acquire lock %s: %v", ErrStorage, l.key, err)
		}
		if acquired {
			var once sync.Once
			return func() { once.Do(func() { l.release(token) }) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisLocker) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		l.log.WithFields(logrus.Fields{"key": l.key, "error": err.Error()}).
			Warn("Failed to release store lock, it will expire on its own")
	}
}
