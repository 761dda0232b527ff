package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// JSONStore caches serialized documents shared across replicas.
type JSONStore interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, prefix string) error
}

// LoadJSON returns the cached document for key, or runs loader once per key
// and caches its result.
func LoadJSON[T any](ctx context.Context, store JSONStore, flight *singleflight.Group, key string, loader func(context.Context) (T, error)) (T, error) {
	var out T
	if store == nil || key == "" {
		return loader(ctx)
	}

	if ok, err := store.GetJSON(ctx, key, &out); err == nil && ok {
		return out, nil
	}

	load := func() (any, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		// A failed write only costs a reload on the next call.
		_ = store.SetJSON(ctx, key, loaded)
		return loaded, nil
	}

	if flight == nil {
		v, err := load()
		if err != nil {
			return out, err
		}
		return v.(T), nil
	}

	v, err, _ := flight.Do(key, load)
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

// MemoryJSONStore keeps encoded documents in a local Store.
type MemoryJSONStore struct {
	store *Store
}

func NewMemoryJSONStore(ttl time.Duration) *MemoryJSONStore {
	return &MemoryJSONStore{store: NewStore(ttl)}
}

func (m *MemoryJSONStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	v, ok := m.store.Get(ctx, key)
	if !ok {
		return false, nil
	}
	raw, _ := v.([]byte)
	if err := sonic.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (m *MemoryJSONStore) SetJSON(ctx context.Context, key string, value any) error {
	raw, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}
	m.store.Set(ctx, key, raw)
	return nil
}

func (m *MemoryJSONStore) Invalidate(ctx context.Context, prefix string) error {
	m.store.DeletePrefix(ctx, prefix)
	return nil
}

// RedisJSONStore keeps encoded documents under a namespace in Redis.
type RedisJSONStore struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

func NewRedisJSONStore(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisJSONStore {
	namespace = strings.TrimSpace(namespace)
	if namespace != "" && !strings.HasSuffix(namespace, ":") {
		namespace += ":"
	}
	return &RedisJSONStore{client: client, namespace: namespace, ttl: ttl}
}

func (r *RedisJSONStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.client.Get(ctx, r.namespace+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := sonic.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisJSONStore) SetJSON(ctx context.Context, key string, value any) error {
	raw, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.namespace+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisJSONStore) Invalidate(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, r.namespace+prefix+"*", 200).Iterator()
	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", prefix, err)
	}
	return nil
}
