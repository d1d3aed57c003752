// Package tx carries a database/sql transaction through a context so stores
// called inside a unit of work join it instead of using the pool.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

// WithTx returns ctx unchanged when t is nil.
func WithTx(ctx context.Context, t *sql.Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

func From(ctx context.Context) (*sql.Tx, bool) {
	t, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return t, ok
}
