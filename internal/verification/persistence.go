package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned by Persistence.Get when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// Persistence stores the serialized session of a seller.
type Persistence interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SessionKey is the storage key of a seller's session.
func SessionKey(sellerID string) string {
	return "seller-session:" + sellerID
}

// MemoryPersistence keeps sessions in a map. Used by tests and single-node dev runs.
type MemoryPersistence struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{data: make(map[string][]byte)}
}

func (m *MemoryPersistence) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNoSession
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryPersistence) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryPersistence) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// RedisPersistence stores sessions as plain string keys with an optional TTL.
type RedisPersistence struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisPersistence(client redis.Cmdable, ttl time.Duration) *RedisPersistence {
	return &RedisPersistence{client: client, ttl: ttl}
}

func (r *RedisPersistence) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (r *RedisPersistence) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisPersistence) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
