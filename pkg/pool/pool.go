// Package pool bounds the number of transports open to a server and hands them out
// to one caller at a time.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/aixgo-dev/gremlin/internal/logging"
	"github.com/aixgo-dev/gremlin/pkg/protocol"
	"github.com/aixgo-dev/gremlin/pkg/transport"
)

const defaultPingTimeout = 5 * time.Second

// Factory creates an unconnected transport.
type Factory func() *transport.Transport

// Config configures a Pool.
type Config struct {
	// Limit is the maximum number of transports, busy or idle.
	Limit int
	// IdleTimeout closes transports left idle longer than this on keepalive runs.
	// Zero keeps idle transports forever.
	IdleTimeout time.Duration
	// Keepalive is a cron spec, e.g. "@every 30s", for pinging idle transports.
	// Empty disables keepalive.
	Keepalive string
}

// Observer receives pool measurements.
type Observer interface {
	PoolConnections(busy, idle int)
	AcquireWait(d time.Duration)
}

type noopObserver struct{}

func (noopObserver) PoolConnections(int, int)  {}
func (noopObserver) AcquireWait(time.Duration) {}

// Stats is a snapshot of the pool.
type Stats struct {
	Limit int
	Busy  int
	Idle  int
}

type idleEntry struct {
	t     *transport.Transport
	since time.Time
}

// Pool is a bounded set of transports. Acquire blocks while Limit transports are in use.
type Pool struct {
	factory  Factory
	cfg      Config
	sem      *semaphore.Weighted
	logger   logrus.FieldLogger
	observer Observer

	mu      sync.Mutex
	idle    []idleEntry
	busy    map[*transport.Transport]struct{}
	closed  bool
	drained bool
	cron    *cron.Cron
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithObserver reports pool measurements to o.
func WithObserver(o Observer) Option {
	return func(p *Pool) { p.observer = o }
}

// New creates a pool. Transports are created lazily by factory.
func New(factory Factory, cfg Config, opts ...Option) (*Pool, error) {
	if factory == nil {
		return nil, errors.New("pool factory is required")
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("pool limit must be positive, got %d", cfg.Limit)
	}
	p := &Pool{
		factory:  factory,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.Limit)),
		logger:   logging.Default(),
		observer: noopObserver{},
		busy:     make(map[*transport.Transport]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Acquire returns a connected transport for the caller's exclusive use. It reuses an
// idle transport when one is still connected, otherwise creates a new one.
func (p *Pool) Acquire(ctx context.Context) (*transport.Transport, error) {
	if p.isClosed() {
		return nil, protocol.ErrClientClosed
	}

	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.observer.AcquireWait(time.Since(start))

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, protocol.ErrClientClosed
	}
	var stale []*transport.Transport
	var t *transport.Transport
	for len(p.idle) > 0 {
		e := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if e.t.Connected() {
			t = e.t
			break
		}
		stale = append(stale, e.t)
	}
	fresh := t == nil
	if fresh {
		t = p.factory()
	}
	p.busy[t] = struct{}{}
	p.report()
	p.mu.Unlock()

	for _, s := range stale {
		_ = s.Close()
	}

	if fresh {
		if err := t.Connect(ctx); err != nil {
			p.mu.Lock()
			delete(p.busy, t)
			p.report()
			p.mu.Unlock()
			_ = t.Close()
			p.sem.Release(1)
			return nil, err
		}
		p.logger.WithField("url", t.URL()).Debug("pool opened transport")
	}
	return t, nil
}

// Release returns t to the pool. Transports that lost their connection are closed
// instead of being kept.
func (p *Pool) Release(t *transport.Transport) error {
	p.mu.Lock()
	if _, ok := p.busy[t]; !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: release of a transport not acquired from this pool", protocol.ErrResourceLeak)
	}
	delete(p.busy, t)
	discard := p.closed || !t.Connected()
	if !discard {
		p.idle = append(p.idle, idleEntry{t: t, since: time.Now()})
	}
	p.report()
	p.mu.Unlock()

	if discard {
		_ = t.Close()
	}
	p.sem.Release(1)
	return nil
}

// With acquires a transport, runs fn with it and releases it.
func (p *Pool) With(ctx context.Context, fn func(t *transport.Transport) error) error {
	t, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	fnErr := fn(t)
	if err := p.Release(t); err != nil {
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Limit: p.cfg.Limit, Busy: len(p.busy), Idle: len(p.idle)}
}

// Close closes idle transports, then waits until no transport is in use. Acquire fails
// with ErrClientClosed afterwards and transports released later are closed. When ctx
// ends first Close reports ErrResourceLeak and can be called again to finish the drain.
// Closing a drained pool is a no-op.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.drained {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	c := p.cron
	p.cron = nil
	idle := p.idle
	p.idle = nil
	p.report()
	p.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}

	var g errgroup.Group
	for _, e := range idle {
		g.Go(e.t.Close)
	}
	closeErr := g.Wait()

	limit := int64(p.cfg.Limit)
	if err := p.sem.Acquire(ctx, limit); err != nil {
		return errors.Join(
			fmt.Errorf("%w: %d transports still in use: %w", protocol.ErrResourceLeak, p.Stats().Busy, err),
			closeErr,
		)
	}
	p.mu.Lock()
	p.drained = true
	p.mu.Unlock()
	p.sem.Release(limit)

	if closeErr != nil {
		return fmt.Errorf("close pool: %w", closeErr)
	}
	p.logger.WithField("closed", len(idle)).Debug("pool closed")
	return nil
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// report must be called with p.mu held.
func (p *Pool) report() {
	p.observer.PoolConnections(len(p.busy), len(p.idle))
}
