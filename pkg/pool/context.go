package pool

import "context"

type poolKey struct{}

// NewContext returns a context carrying p. Work started from that context shares p's
// connection budget; unrelated work should carry its own pool.
func NewContext(ctx context.Context, p *Pool) context.Context {
	return context.WithValue(ctx, poolKey{}, p)
}

// FromContext returns the pool stored in ctx, if any.
func FromContext(ctx context.Context) (*Pool, bool) {
	p, ok := ctx.Value(poolKey{}).(*Pool)
	return p, ok && p != nil
}
