// Package session runs traversals inside server side sessions, which is how Gremlin
// servers scope transactions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aixgo-dev/gremlin/pkg/bytecode"
	"github.com/aixgo-dev/gremlin/pkg/client"
	"github.com/aixgo-dev/gremlin/pkg/protocol"
	"github.com/aixgo-dev/gremlin/pkg/transport"
	"github.com/aixgo-dev/gremlin/pkg/traversal"
)

// State is the lifecycle state of a Transaction.
type State int

const (
	StateIdle State = iota
	StateActive
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transaction binds traversals to one server session and finishes them with a
// commit or a rollback. A Transaction is used once: after Commit or Rollback it
// cannot begin again.
type Transaction struct {
	client   *client.Client
	registry Registry
	newID    func() string
	logger   logrus.FieldLogger

	mu        sync.Mutex
	state     State
	sessionID string
	transport *transport.Transport
	source    *traversal.Source
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(tx *Transaction) { tx.newID = fn }
}

// WithRegistry records session ids in r instead of a private in-memory registry.
func WithRegistry(r Registry) Option {
	return func(tx *Transaction) { tx.registry = r }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(tx *Transaction) { tx.logger = l }
}

// New creates an idle transaction on c.
func New(c *client.Client, opts ...Option) *Transaction {
	tx := &Transaction{
		client: c,
		newID:  uuid.NewString,
		logger: c.Logger(),
	}
	for _, opt := range opts {
		opt(tx)
	}
	if tx.registry == nil {
		tx.registry = NewMemoryRegistry()
	}
	return tx
}

// State returns the current state.
func (tx *Transaction) State() State {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

// SessionID returns the session id, or "" before Begin or when the backend has no
// transaction support.
func (tx *Transaction) SessionID() string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.sessionID
}

// Begin opens the session and returns a traversal root bound to it. Calling Begin on
// an active transaction returns a root of the same session.
//
// Backends without transaction support get a root that runs on the client's pool.
func (tx *Transaction) Begin(ctx context.Context) (*traversal.Action, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	switch tx.state {
	case StateActive:
		return tx.source.G(), nil
	case StateCommitted, StateRolledBack:
		return nil, fmt.Errorf("%w: cannot begin a %s transaction", protocol.ErrTransactionState, tx.state)
	}

	if !tx.client.Features().Transactions {
		tx.logger.WithField("provider", tx.client.Features().Provider).
			Warn("backend does not support transactions, traversals run outside a session")
		tx.source = tx.client.Source()
		tx.state = StateActive
		return tx.source.G(), nil
	}

	id := tx.newID()
	if err := tx.registry.Claim(ctx, id); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	t, err := tx.client.Dial(ctx)
	if err != nil {
		_ = tx.registry.Release(context.WithoutCancel(ctx), id)
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	tx.sessionID = id
	tx.transport = t
	tx.source = tx.client.Source().WithSession(id, sessionExecutor{tx: tx})
	tx.state = StateActive
	tx.logger.WithField("session_id", id).Debug("transaction started")
	return tx.source.G(), nil
}

// Commit commits the session.
func (tx *Transaction) Commit(ctx context.Context) error {
	return tx.finish(ctx, "commit", StateCommitted)
}

// Rollback discards the session's changes.
func (tx *Transaction) Rollback(ctx context.Context) error {
	return tx.finish(ctx, "rollback", StateRolledBack)
}

// Close rolls back an active transaction. It is a no-op in any other state.
func (tx *Transaction) Close(ctx context.Context) error {
	if tx.State() != StateActive {
		return nil
	}
	err := tx.Rollback(ctx)
	if errors.Is(err, protocol.ErrTransactionState) {
		return nil
	}
	return err
}

// finish moves the transaction to its final state before sending the tx step, so a
// failed commit still ends the transaction.
func (tx *Transaction) finish(ctx context.Context, op string, next State) error {
	tx.mu.Lock()
	if tx.state != StateActive {
		state := tx.state
		tx.mu.Unlock()
		return fmt.Errorf("%w: cannot %s a %s transaction", protocol.ErrTransactionState, op, state)
	}
	t := tx.transport
	id := tx.sessionID
	tx.state = next
	tx.transport = nil
	tx.mu.Unlock()

	logger := tx.logger.WithField("session_id", id)
	if t == nil {
		logger.Infof("backend does not support transactions, %s is a no-op", op)
		return nil
	}
	defer func() {
		if err := t.Close(); err != nil {
			logger.WithError(err).Warn("close session transport")
		}
		if err := tx.registry.Release(context.WithoutCancel(ctx), id); err != nil {
			logger.WithError(err).Warn("release session id")
		}
	}()

	doc, err := bytecode.FromAction(traversal.Anon().Step("tx", op), bytecode.WithNoReturn())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.client.Exec(ctx, t, protocol.NewBytecodeRequest(tx.client.NewID(), doc, id)); err != nil {
		return fmt.Errorf("%s session %s: %w", op, id, err)
	}
	logger.Debugf("transaction %s", next)
	return nil
}

// sessionExecutor sends traversals over the transaction's own transport.
type sessionExecutor struct {
	tx *Transaction
}

func (e sessionExecutor) Submit(ctx context.Context, a *traversal.Action, noReturn bool) ([]any, error) {
	e.tx.mu.Lock()
	t := e.tx.transport
	state := e.tx.state
	e.tx.mu.Unlock()
	if state != StateActive || t == nil {
		return nil, fmt.Errorf("%w: transaction is %s", protocol.ErrTransactionState, state)
	}

	var opts []bytecode.Option
	if noReturn {
		opts = append(opts, bytecode.WithNoReturn())
	}
	doc, err := bytecode.FromAction(a, opts...)
	if err != nil {
		return nil, fmt.Errorf("serialize traversal: %w", err)
	}
	return e.tx.client.Exec(ctx, t, protocol.NewBytecodeRequest(e.tx.client.NewID(), doc, a.SessionID()))
}
