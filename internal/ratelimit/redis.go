package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// casScript implements compare-and-swap over a plain string value. The empty
// expected value stands for "key absent". Running it as a script makes the
// read-compare-write a single atomic step on the Redis side.
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false then cur = '' end
if cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'EX', tonumber(ARGV[3]))
return 1
`)

// RedisStore shares counters across gateway instances. Usage snapshots are
// stored as compact JSON; the entry TTL outlives the day reset by a small
// slack, so idle keys evict themselves without a janitor.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) redisKey(key string) string {
	return "qnet:ratelimit:" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (Usage, bool, error) {
	val, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if err == redis.Nil {
		return Usage{}, false, nil
	}
	if err != nil {
		return Usage{}, false, fmt.Errorf("ratelimit: redis get: %w", err)
	}

	var u Usage
	if err := json.Unmarshal([]byte(val), &u); err != nil {
		return Usage{}, false, fmt.Errorf("ratelimit: corrupt usage state for %q: %w", key, err)
	}
	return u, true, nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, prev, next Usage, ttl time.Duration) (bool, error) {
	// The stored bytes are always produced by this marshaller, so comparing
	// serialized forms is equivalent to comparing snapshots.
	var prevRaw string
	if prev != (Usage{}) {
		b, err := json.Marshal(prev)
		if err != nil {
			return false, err
		}
		prevRaw = string(b)
	}

	nextRaw, err := json.Marshal(next)
	if err != nil {
		return false, err
	}

	seconds := int64(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	swapped, err := casScript.Run(ctx, s.client, []string{s.redisKey(key)}, prevRaw, string(nextRaw), seconds).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis cas: %w", err)
	}
	return swapped == 1, nil
}
