package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

func WithTransaction(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func GetTransaction(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// Queryer is implemented by both *sqlx.DB and *sqlx.Tx.
type Queryer interface {
	sqlx.ExtContext
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db *sqlx.DB) Queryer {
	if tx := GetTransaction(ctx); tx != nil {
		return tx
	}
	return db
}

// InTransaction runs fn inside a transaction carried by ctx. A transaction
// already present in ctx is reused and left for its owner to commit.
func InTransaction(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context) error) (err error) {
	if GetTransaction(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(WithTransaction(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
