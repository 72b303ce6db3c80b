// Package client executes traversals against a Gremlin server through a bounded pool
// of WebSocket transports.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/aixgo-dev/gremlin/internal/logging"
	tracing "github.com/aixgo-dev/gremlin/internal/observability"
	"github.com/aixgo-dev/gremlin/pkg/bytecode"
	"github.com/aixgo-dev/gremlin/pkg/config"
	"github.com/aixgo-dev/gremlin/pkg/features"
	"github.com/aixgo-dev/gremlin/pkg/observability"
	"github.com/aixgo-dev/gremlin/pkg/pool"
	"github.com/aixgo-dev/gremlin/pkg/protocol"
	"github.com/aixgo-dev/gremlin/pkg/transport"
	"github.com/aixgo-dev/gremlin/pkg/traversal"
)

// Client sends requests to one server. It is safe for concurrent use.
type Client struct {
	cfg       config.Config
	features  features.Features
	logger    logrus.FieldLogger
	pool      *pool.Pool
	ownsPool  bool
	newID     func() string
	limiter   *rate.Limiter
	shortcuts *traversal.Shortcuts
	metrics   bool
	tOpts     []transport.Option
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPool makes the client use p instead of creating its own pool. The client does
// not close a pool it was given.
func WithPool(p *pool.Pool) Option {
	return func(c *Client) { c.pool = p }
}

// WithIDGenerator replaces the request id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// WithRateLimiter limits the rate at which requests are sent.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithShortcuts makes shortcuts callable on traversals created by G.
func WithShortcuts(sc *traversal.Shortcuts) Option {
	return func(c *Client) { c.shortcuts = sc }
}

// WithTransportOptions passes options to every transport the client creates.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) { c.tOpts = append(c.tOpts, opts...) }
}

// WithMetrics records request, pool and transport metrics.
func WithMetrics() Option {
	return func(c *Client) { c.metrics = true }
}

// New creates a client for cfg. No connection is opened until the first request.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	f, err := features.For(cfg.Provider)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		features: f,
		logger:   logging.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("url", cfg.URL)

	if c.shortcuts == nil {
		c.shortcuts = traversal.NewShortcuts()
	}
	if c.limiter == nil && cfg.RateLimit.RequestsPerSecond > 0 {
		burst := max(cfg.RateLimit.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), burst)
	}
	if cfg.TLS != nil {
		tlsCfg, err := transport.BuildTLSConfig(*cfg.TLS, c.logger)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
		c.tOpts = append(c.tOpts, transport.WithTLS(tlsCfg))
	}
	if c.metrics {
		c.tOpts = append(c.tOpts, transport.WithEventHook(observability.RecordTransportEvent))
	}

	if c.pool == nil {
		popts := []pool.Option{pool.WithLogger(c.logger)}
		if c.metrics {
			popts = append(popts, pool.WithObserver(observability.PoolObserver{}))
		}
		p, err := pool.New(c.newTransport, pool.Config{
			Limit:       cfg.PoolSize,
			IdleTimeout: cfg.IdleTimeout,
			Keepalive:   cfg.Keepalive,
		}, popts...)
		if err != nil {
			return nil, err
		}
		if err := p.StartKeepalive(); err != nil {
			return nil, err
		}
		c.pool = p
		c.ownsPool = true
	}

	return c, nil
}

func (c *Client) newTransport() *transport.Transport {
	opts := append([]transport.Option{transport.WithLogger(c.logger)}, c.tOpts...)
	return transport.New(c.cfg.URL, opts...)
}

// Config returns the client configuration.
func (c *Client) Config() config.Config {
	return c.cfg
}

// Features returns the capabilities of the configured backend.
func (c *Client) Features() features.Features {
	return c.features
}

// Pool returns the client's default pool.
func (c *Client) Pool() *pool.Pool {
	return c.pool
}

// Logger returns the client logger.
func (c *Client) Logger() logrus.FieldLogger {
	return c.logger
}

// NewID returns a fresh request id.
func (c *Client) NewID() string {
	return c.newID()
}

// Source returns a traversal source whose terminal steps run on c.
func (c *Client) Source() *traversal.Source {
	return traversal.NewSource(traversal.WithExecutor(c), traversal.WithShortcuts(c.shortcuts))
}

// G returns a traversal root bound to c.
func (c *Client) G() *traversal.Action {
	return c.Source().G()
}

// Dial opens a transport outside of the pool, retrying with exponential backoff while
// the server cannot be reached. The caller owns the returned transport.
func (c *Client) Dial(ctx context.Context) (*transport.Transport, error) {
	return c.retryConnect(ctx, func() (*transport.Transport, error) {
		t := c.newTransport()
		if err := t.Connect(ctx); err != nil {
			return nil, err
		}
		return t, nil
	})
}

func (c *Client) acquire(ctx context.Context) (*pool.Pool, *transport.Transport, error) {
	p := c.pool
	if scoped, ok := pool.FromContext(ctx); ok {
		p = scoped
	}
	t, err := c.retryConnect(ctx, func() (*transport.Transport, error) {
		return p.Acquire(ctx)
	})
	return p, t, err
}

func (c *Client) retryConnect(ctx context.Context, op backoff.Operation[*transport.Transport]) (*transport.Transport, error) {
	b := backoff.NewExponentialBackOff()
	if c.cfg.ConnectBackoff > 0 {
		b.InitialInterval = c.cfg.ConnectBackoff
	}

	attempt := 0
	t, err := backoff.Retry(ctx, func() (*transport.Transport, error) {
		attempt++
		t, err := op()
		if err != nil && !errors.Is(err, protocol.ErrCannotConnect) {
			return nil, backoff.Permanent(err)
		}
		return t, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.ConnectRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.WithError(err).WithField("retry_in", next).Warn("connect failed, retrying")
		}),
	)
	if err != nil {
		if errors.Is(err, protocol.ErrCannotConnect) {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}
		return nil, err
	}
	return t, nil
}

// Submit serializes a and runs it on a pooled transport. It implements
// traversal.Executor. Traversals bound to a session are sent to the session processor.
func (c *Client) Submit(ctx context.Context, a *traversal.Action, noReturn bool) ([]any, error) {
	var opts []bytecode.Option
	if noReturn {
		opts = append(opts, bytecode.WithNoReturn())
	}
	doc, err := bytecode.FromAction(a, opts...)
	if err != nil {
		return nil, fmt.Errorf("serialize traversal: %w", err)
	}
	return c.Write(ctx, protocol.NewBytecodeRequest(c.newID(), doc, a.SessionID()))
}

// Write sends req on a pooled transport and returns its decoded results.
func (c *Client) Write(ctx context.Context, req protocol.Request) ([]any, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	ctx, span := tracing.StartRequestSpan(ctx, processorLabel(req), req.RequestID, req.Args.Session)

	results, err := func() ([]any, error) {
		p, t, err := c.acquire(ctx)
		if err != nil {
			return nil, err
		}
		results, execErr := c.Exec(ctx, t, req)
		if err := p.Release(t); err != nil {
			c.logger.WithError(err).Error("release transport")
		}
		return results, execErr
	}()

	if err == nil {
		span.SetAttribute("gremlin.result_count", len(results))
	}
	span.End(err)
	c.record(req, start, err)
	return results, err
}

// Exec sends req over t, waits for the final frame and decodes the results. If ctx
// ends while the response is streaming, t is closed, since frames still in flight
// could not be matched to a request anymore, and ErrUnknownRequestStopped is returned.
func (c *Client) Exec(ctx context.Context, t *transport.Transport, req protocol.Request) ([]any, error) {
	logger := c.logger.WithField("request_id", req.RequestID)
	if req.Args.Session != "" {
		logger = logger.WithField("session_id", req.Args.Session)
	}

	stream, err := t.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := stream.Collect(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			logger.Warn("request stopped before completion, closing transport")
			_ = t.Close()
			return nil, fmt.Errorf("%w: request %s: %w", protocol.ErrUnknownRequestStopped, req.RequestID, err)
		}
		logger.WithError(err).Debug("request failed")
		return nil, err
	}

	results, err := decodeResults(raw)
	if err != nil {
		return nil, fmt.Errorf("decode results of request %s: %w", req.RequestID, err)
	}
	logger.WithField("results", len(results)).Debug("request completed")
	return results, nil
}

// Ping runs a trivial script on a pooled transport.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Write(ctx, protocol.NewEvalRequest(c.newID(), "1+1", ""))
	return err
}

// Close closes the client's own pool, waiting for transports in use to be released.
func (c *Client) Close(ctx context.Context) error {
	if !c.ownsPool {
		return nil
	}
	return c.pool.Close(ctx)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func (c *Client) record(req protocol.Request, start time.Time, err error) {
	if !c.metrics {
		return
	}
	observability.RecordRequest(processorLabel(req), statusLabel(err), time.Since(start))
}

// processorLabel falls back to the op for requests without a processor, such as eval.
func processorLabel(req protocol.Request) string {
	if req.Processor == "" {
		return req.Op
	}
	return req.Processor
}

// statusLabel names the most specific error kind of err.
func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var kind *protocol.Kind
	if errors.As(err, &kind) {
		return strings.ReplaceAll(kind.Error(), " ", "_")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}

// decodeResults decodes every data payload and concatenates list payloads, then
// expands traversers by their bulk.
func decodeResults(raw []any) ([]any, error) {
	var out []any
	for _, data := range raw {
		v, err := protocol.Decode(data)
		if err != nil {
			return nil, err
		}
		if list, ok := v.([]any); ok {
			out = append(out, list...)
			continue
		}
		out = append(out, v)
	}
	return protocol.ExpandTraversers(out)
}
