// Package gremlin is a client for Gremlin servers that speaks bytecode over WebSocket.
//
// Open a Graph from a configuration and build traversals from its G root:
//
//	graph, err := gremlin.Open(cfg)
//	if err != nil {
//		return err
//	}
//	defer graph.Close(ctx)
//
//	names, err := graph.G().V().HasLabel("person").Values("name").ToList(ctx)
//
// Tx runs a function inside a server session and commits it when the function
// succeeds:
//
//	err = graph.Tx(ctx, func(ctx context.Context, g *traversal.Action) error {
//		return g.AddV("person").Property("name", "marko").Iterate(ctx)
//	})
package gremlin

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aixgo-dev/gremlin/internal/logging"
	"github.com/aixgo-dev/gremlin/pkg/client"
	"github.com/aixgo-dev/gremlin/pkg/config"
	"github.com/aixgo-dev/gremlin/pkg/protocol"
	"github.com/aixgo-dev/gremlin/pkg/session"
	"github.com/aixgo-dev/gremlin/pkg/traversal"
)

// ErrRollback can be returned from a Tx function to roll the transaction back
// without reporting an error.
var ErrRollback = protocol.ErrRollback

// Graph is an open connection budget to one server.
type Graph struct {
	client   *client.Client
	registry session.Registry
	logger   logrus.FieldLogger
	txOpts   []session.Option
}

type options struct {
	logger     logrus.FieldLogger
	registry   session.Registry
	clientOpts []client.Option
	txOpts     []session.Option
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. By default one is built from the log settings of the config.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry sets the session registry used by transactions.
func WithRegistry(r session.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithClientOptions passes options to the underlying client.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithTransactionOptions passes options to every transaction started by the graph.
func WithTransactionOptions(opts ...session.Option) Option {
	return func(o *options) { o.txOpts = append(o.txOpts, opts...) }
}

// Open creates a Graph. Connections are opened lazily.
func Open(cfg config.Config, opts ...Option) (*Graph, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
		if err != nil {
			return nil, err
		}
		o.logger = logger
	}

	c, err := client.New(cfg, append([]client.Option{client.WithLogger(o.logger)}, o.clientOpts...)...)
	if err != nil {
		return nil, err
	}

	if o.registry == nil {
		o.registry, err = session.NewRegistry(cfg.Registry)
		if err != nil {
			_ = c.Close(context.Background())
			return nil, fmt.Errorf("session registry: %w", err)
		}
	}

	return &Graph{
		client:   c,
		registry: o.registry,
		logger:   o.logger,
		txOpts:   o.txOpts,
	}, nil
}

// Client returns the underlying client.
func (g *Graph) Client() *client.Client {
	return g.client
}

// G returns a traversal root bound to the graph.
func (g *Graph) G() *traversal.Action {
	return g.client.G()
}

// Anon returns an anonymous traversal root sharing the graph's shortcuts.
func (g *Graph) Anon() *traversal.Action {
	return g.client.Source().Anon()
}

// Transaction creates an idle transaction.
func (g *Graph) Transaction() *session.Transaction {
	opts := append([]session.Option{
		session.WithRegistry(g.registry),
		session.WithLogger(g.logger),
	}, g.txOpts...)
	return session.New(g.client, opts...)
}

// Tx runs fn inside a transaction. It commits when fn returns nil and rolls back
// otherwise. If fn returns ErrRollback, Tx rolls back and returns nil. A panic in fn
// rolls back and is propagated.
func (g *Graph) Tx(ctx context.Context, fn func(ctx context.Context, g *traversal.Action) error) error {
	tx := g.Transaction()
	root, err := tx.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(r)
		}
	}()

	if err := fn(session.NewContext(ctx, tx), root); err != nil {
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if errors.Is(err, ErrRollback) {
			return rbErr
		}
		return errors.Join(err, rbErr)
	}
	return tx.Commit(ctx)
}

// Close waits for requests in flight, closes every connection and the session registry.
func (g *Graph) Close(ctx context.Context) error {
	return errors.Join(g.client.Close(ctx), g.registry.Close())
}
