package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bgshelf-api/internal/logging"
)

// releaseIfOwnerScript deletes the lock only if it still carries our token,
// so a holder whose TTL lapsed cannot release someone else's lock.
var releaseIfOwnerScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// extendIfOwnerScript pushes the expiry out while the lock still carries our token.
var extendIfOwnerScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RedisLocker implements Locker with SET NX PX. A held lock is extended
// every TTL/3 until released, so the TTL only bounds how long a crashed
// holder blocks others.
type RedisLocker struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
}

// RedisLockerConfig holds configuration for the Redis locker.
type RedisLockerConfig struct {
	TTL       time.Duration
	KeyPrefix string
}

// NewRedisLocker creates a Redis-backed locker on an existing client.
func NewRedisLocker(client redis.UniversalClient, cfg RedisLockerConfig) *RedisLocker {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "bgshelf:lock"
	}
	return &RedisLocker{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

func (l *RedisLocker) redisKey(key string) string {
	return l.keyPrefix + ":" + key
}

// TryLock acquires key if nobody holds it.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	rk := l.redisKey(key)

	ok, err := l.client.SetNX(ctx, rk, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(rk, token, stop, done)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done

			// The caller's context may already be cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseIfOwnerScript.Run(ctx, l.client, []string{rk}, token).Err(); err != nil {
				logging.Warn().Err(err).Str("key", rk).Msg("[RedisLocker] Release failed")
			}
		})
	}
	return release, true, nil
}

// keepAlive extends the lock until stop is closed or ownership is lost.
func (l *RedisLocker) keepAlive(rk, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := extendIfOwnerScript.Run(ctx, l.client, []string{rk}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				logging.Warn().Err(err).Str("key", rk).Msg("[RedisLocker] Extend failed")
				continue
			}
			if n == 0 {
				logging.Warn().Str("key", rk).Msg("[RedisLocker] Lock lost before release")
				return
			}
		}
	}
}

var _ Locker = (*RedisLocker)(nil)
