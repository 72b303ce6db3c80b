package session

import "context"

type transactionKey struct{}

// NewContext returns a context carrying tx.
func NewContext(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// FromContext retrieves the transaction stored in ctx.
func FromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(transactionKey{}).(*Transaction)
	return tx, ok && tx != nil
}
