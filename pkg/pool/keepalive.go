package pool

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aixgo-dev/gremlin/pkg/protocol"
	"github.com/aixgo-dev/gremlin/pkg/transport"
)

// StartKeepalive schedules the keepalive job described by Config.Keepalive. It is
// stopped by Close.
func (p *Pool) StartKeepalive() error {
	if p.cfg.Keepalive == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return protocol.ErrClientClosed
	}
	if p.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(p.cfg.Keepalive, func() { p.keepalive(context.Background()) }); err != nil {
		return fmt.Errorf("invalid keepalive schedule %q: %w", p.cfg.Keepalive, err)
	}
	c.Start()
	p.cron = c
	return nil
}

// keepalive pings idle transports and evicts the ones that expired or stopped answering.
func (p *Pool) keepalive(ctx context.Context) {
	p.mu.Lock()
	idle := slices.Clone(p.idle)
	p.mu.Unlock()

	var evict []*transport.Transport
	for _, e := range idle {
		if p.cfg.IdleTimeout > 0 && time.Since(e.since) > p.cfg.IdleTimeout {
			evict = append(evict, e.t)
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
		err := e.t.Ping(pingCtx)
		cancel()
		if err != nil {
			p.logger.WithError(err).WithField("url", e.t.URL()).Warn("evicting idle transport")
			evict = append(evict, e.t)
		}
	}
	if len(evict) == 0 {
		return
	}

	p.mu.Lock()
	var removed []*transport.Transport
	p.idle = slices.DeleteFunc(p.idle, func(e idleEntry) bool {
		if slices.Contains(evict, e.t) {
			removed = append(removed, e.t)
			return true
		}
		return false
	})
	p.report()
	p.mu.Unlock()

	for _, t := range removed {
		_ = t.Close()
	}
}
