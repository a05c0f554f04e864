package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "baduk:"

// Redis stores each record as a JSON string and indexes ids per position hash
// in a set.
type Redis struct {
	client *redis.Client
}

// OpenRedis connects to addr, either host:port or a redis:// URL.
func OpenRedis(ctx context.Context, addr string) (*Redis, error) {
	opts := &redis.Options{
		Addr: addr,
		DB:   0,
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		opts = parsed
	}
	client := redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctxPing).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisPrefix+searchPrefix+rec.ID, data, 0)
		pipe.SAdd(ctx, redisPrefix+hashPrefix+rec.Hash, rec.ID)
		return nil
	})
	return err
}

func (r *Redis) Load(ctx context.Context, id string) (Record, error) {
	var rec Record
	val, err := r.client.Get(ctx, redisPrefix+searchPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return rec, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal([]byte(val), &rec)
	return rec, err
}

func (r *Redis) ByHash(ctx context.Context, hash string) ([]Record, error) {
	ids, err := r.client.SMembers(ctx, redisPrefix+hashPrefix+hash).Result()
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisPrefix + searchPrefix + id
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sortByTime(recs)
	return recs, nil
}

func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
