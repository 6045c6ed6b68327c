package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/hrygo/flashdeck/store"
)

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "flashdeck:audio:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisStore keeps audio clips in Redis so several server instances can share one cache.
//
// Layout under KeyPrefix:
//
//	blob:{key}  string holding the clip bytes
//	lru         sorted set of keys scored by last access (unix ms)
//	size        hash of key to clip size
//	seq         hash of key to insertion sequence, breaking access-time ties
//	counter     insertion sequence counter
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, config *RedisConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	slog.Info("redis audio cache connected", "addr", config.Addr)
	return &RedisStore{client: client, keyPrefix: config.KeyPrefix}, nil
}

func (r *RedisStore) GetEntry(ctx context.Context, key string) (*store.AudioEntry, error) {
	blob, err := r.client.Get(ctx, r.blobKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, offline(err)
	}
	accessed, err := r.client.ZScore(ctx, r.lruKey(), key).Result()
	if err != nil && err != redis.Nil {
		return nil, offline(err)
	}
	return &store.AudioEntry{
		Key:        key,
		Blob:       blob,
		Size:       int64(len(blob)),
		AccessedTs: int64(accessed),
	}, nil
}

func (r *RedisStore) PutEntry(ctx context.Context, entry *store.AudioEntry) error {
	seq, err := r.client.Incr(ctx, r.keyPrefix+"counter").Result()
	if err != nil {
		return offline(err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.blobKey(entry.Key), entry.Blob, 0)
		pipe.ZAdd(ctx, r.lruKey(), redis.Z{Score: float64(entry.AccessedTs), Member: entry.Key})
		pipe.HSet(ctx, r.keyPrefix+"size", entry.Key, entry.Size)
		// A replaced clip keeps its original insertion position.
		pipe.HSetNX(ctx, r.keyPrefix+"seq", entry.Key, seq)
		return nil
	})
	return offline(err)
}

// TouchEntry updates the access time of an existing key and ignores unknown keys.
func (r *RedisStore) TouchEntry(ctx context.Context, key string, accessedTs int64) error {
	err := r.client.ZAddXX(ctx, r.lruKey(), redis.Z{Score: float64(accessedTs), Member: key}).Err()
	return offline(err)
}

func (r *RedisStore) DeleteEntry(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.blobKey(key))
		pipe.ZRem(ctx, r.lruKey(), key)
		pipe.HDel(ctx, r.keyPrefix+"size", key)
		pipe.HDel(ctx, r.keyPrefix+"seq", key)
		return nil
	})
	return offline(err)
}

// ListEntries returns all entries without blobs, least recently accessed first.
func (r *RedisStore) ListEntries(ctx context.Context) ([]*store.AudioEntry, error) {
	members, err := r.client.ZRangeWithScores(ctx, r.lruKey(), 0, -1).Result()
	if err != nil {
		return nil, offline(err)
	}
	sizes, err := r.client.HGetAll(ctx, r.keyPrefix+"size").Result()
	if err != nil {
		return nil, offline(err)
	}
	seqs, err := r.client.HGetAll(ctx, r.keyPrefix+"seq").Result()
	if err != nil {
		return nil, offline(err)
	}

	type ordered struct {
		entry *store.AudioEntry
		seq   int64
	}
	items := make([]ordered, 0, len(members))
	for _, z := range members {
		key, ok := z.Member.(string)
		if !ok {
			continue
		}
		size, _ := strconv.ParseInt(sizes[key], 10, 64)
		seq, _ := strconv.ParseInt(seqs[key], 10, 64)
		items = append(items, ordered{
			entry: &store.AudioEntry{Key: key, Size: size, AccessedTs: int64(z.Score)},
			seq:   seq,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].entry.AccessedTs != items[j].entry.AccessedTs {
			return items[i].entry.AccessedTs < items[j].entry.AccessedTs
		}
		return items[i].seq < items[j].seq
	})

	list := make([]*store.AudioEntry, 0, len(items))
	for _, item := range items {
		list = append(list, item.entry)
	}
	return list, nil
}

func (r *RedisStore) ClearEntries(ctx context.Context) error {
	keys, err := r.client.ZRange(ctx, r.lruKey(), 0, -1).Result()
	if err != nil {
		return offline(err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, r.blobKey(key))
		}
		pipe.Del(ctx, r.lruKey(), r.keyPrefix+"size", r.keyPrefix+"seq")
		return nil
	})
	return offline(err)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) blobKey(key string) string {
	return r.keyPrefix + "blob:" + key
}

func (r *RedisStore) lruKey() string {
	return r.keyPrefix + "lru"
}

func offline(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", store.ErrStoreOffline, err)
}
