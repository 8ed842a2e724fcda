package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/mentorship-hub/pkg/logger"
)

// ErrLockTimeout is returned when a lock is not acquired before the
// context ends.
var ErrLockTimeout = errors.New("lock: acquire timeout")

// Release deletes the lock key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a distributed shared.Locker built on SET NX PX. A holder that
// dies loses the lock after TTL.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
	poll   time.Duration
	log    *logger.Logger
}

// NewLocker creates a locker. Zero ttl and poll use the defaults.
func NewLocker(client redis.UniversalClient, ttl, poll time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	if poll <= 0 {
		poll = 25 * time.Millisecond
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Locker{
		client: client,
		ttl:    ttl,
		poll:   poll,
		log:    log.With(logger.Component("redis_locker")),
	}
}

// Lock blocks until key is acquired or ctx ends.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := LockKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn("lock release failed", logger.String("key", key), logger.Err(err))
	}
}
