package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is prepended to every session key.
const DefaultRedisPrefix = "gremlin:session:"

// RedisRegistry implements Registry using Redis, so that several client processes
// can share one id space.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix (default: "gremlin:session:").
	Prefix string
	// TTL expires claims of sessions that were never released (0 = never expire).
	TTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisRegistry connects to Redis and checks the connection.
func NewRedisRegistry(cfg RedisConfig) (*RedisRegistry, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisRegistryFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisRegistryFromClient creates a registry from an existing client.
func NewRedisRegistryFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisRegistry {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisRegistry{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisRegistry) key(id string) string {
	return r.prefix + id
}

func (r *RedisRegistry) check() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRegistryClosed
	}
	return nil
}

// Claim stores the id with SETNX, so only one claimant wins.
func (r *RedisRegistry) Claim(ctx context.Context, id string) error {
	if err := r.check(); err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.key(id), time.Now().UTC().Format(time.RFC3339Nano), r.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim session %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionTaken, id)
	}
	return nil
}

func (r *RedisRegistry) Release(ctx context.Context, id string) error {
	if err := r.check(); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("release session %s: %w", id, err)
	}
	return nil
}

func (r *RedisRegistry) Active(ctx context.Context) ([]string, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	var ids []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (r *RedisRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	return r.client.Close()
}
