package jobxredis

import (
	"context"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/idx"
	"github.com/alebhayan/King-Laminaat/pkg/jobx"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements jobx.Locker with SET NX PX.
type RedisLocker struct {
	rdb redis.Cmdable
}

func NewRedisLocker(rdb redis.Cmdable) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (jobx.Lock, bool, error) {
	token := idx.NewUUID()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, redisErrors.NewWithCause(ErrAcquire, err).WithDetail("key", key)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLock{rdb: l.rdb, key: key, token: token}, true, nil
}

type redisLock struct {
	rdb   redis.Cmdable
	key   string
	token string
}

func (l *redisLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return redisErrors.NewWithCause(ErrRelease, err).WithDetail("key", l.key)
	}
	if n == 0 {
		return redisErrors.New(ErrLost).WithDetail("key", l.key)
	}
	return nil
}
