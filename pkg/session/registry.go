package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aixgo-dev/gremlin/pkg/config"
)

// Common registry errors.
var (
	// ErrSessionTaken is returned when claiming a session id that is already active.
	ErrSessionTaken = errors.New("session id already in use")
	// ErrRegistryClosed is returned when operating on a closed registry.
	ErrRegistryClosed = errors.New("session registry is closed")
)

// Registry records the ids of open server sessions so that two transactions never
// share one. Implementations must be safe for concurrent use.
type Registry interface {
	// Claim marks id as active. Returns ErrSessionTaken if it already is.
	Claim(ctx context.Context, id string) error

	// Release marks id as no longer active. Releasing an unknown id is not an error.
	Release(ctx context.Context, id string) error

	// Active returns the active session ids in sorted order.
	Active(ctx context.Context) ([]string, error)

	// Close releases any resources held by the registry.
	Close() error
}

// MemoryRegistry keeps session ids in process memory.
type MemoryRegistry struct {
	mu     sync.Mutex
	active map[string]time.Time
	closed bool
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{active: make(map[string]time.Time)}
}

func (r *MemoryRegistry) Claim(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.active[id]; ok {
		return fmt.Errorf("%w: %s", ErrSessionTaken, id)
	}
	r.active[id] = time.Now()
	return nil
}

func (r *MemoryRegistry) Release(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	delete(r.active, id)
	return nil
}

func (r *MemoryRegistry) Active(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// NewRegistry builds the registry selected by cfg.
func NewRegistry(cfg config.SessionRegistryConfig) (Registry, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryRegistry(), nil
	case "redis":
		return NewRedisRegistry(RedisConfig{Addr: cfg.RedisAddr, TTL: cfg.TTL})
	default:
		return nil, fmt.Errorf("unknown session registry store %q", cfg.Store)
	}
}
